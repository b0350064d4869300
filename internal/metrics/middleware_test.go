package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/v1/types/{contentType}/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	r.Put("/v1/types/{contentType}/documents/{pk}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/v1/rebuild", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	return r
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	h := newTestRouter()
	for _, ct := range []string{"blog_post", "shop_item"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/types/"+ct+"/search", http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/types/{contentType}/search", "200"))
	if got < 2 {
		t.Errorf("requests_total = %f, want >= 2", got)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	h := newTestRouter()
	tests := []struct {
		method, path, route, status string
	}{
		{"PUT", "/v1/types/blog_post/documents/7", "/v1/types/{contentType}/documents/{pk}", "404"},
		{"POST", "/v1/rebuild", "/v1/rebuild", "409"},
	}
	for _, tc := range tests {
		t.Run(tc.route, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, http.NoBody))
			after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status))
			if after-before != 1 {
				t.Errorf("requests_total delta = %f, want 1", after-before)
			}
		})
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	h := newTestRouter()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/unknown/path/42", http.NoBody))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))
	if after-before != 1 {
		t.Errorf("unmatched delta = %f, want 1", after-before)
	}
}

func TestMiddleware_InFlightReturnsToZero(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	var during float64
	r.Get("/slow", func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(httpInFlight)
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/slow", http.NoBody))
	if during < 1 {
		t.Errorf("in_flight during request = %f, want >= 1", during)
	}
	if got := testutil.ToFloat64(httpInFlight); got != 0 {
		t.Errorf("in_flight after request = %f, want 0", got)
	}
}

func TestRouteLabel_NoRouteContext(t *testing.T) {
	if got := routeLabel(httptest.NewRequest("GET", "/x", http.NoBody)); got != unmatchedRoute {
		t.Errorf("routeLabel = %q, want %q", got, unmatchedRoute)
	}
}

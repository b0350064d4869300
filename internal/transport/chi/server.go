package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain"
	dombatch "github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	logpkg "github.com/kailas-cloud/indexsync/internal/logger"
	"github.com/kailas-cloud/indexsync/internal/metrics"
	healthuc "github.com/kailas-cloud/indexsync/internal/usecase/health"
	"github.com/kailas-cloud/indexsync/internal/usecase/notify"
	searchuc "github.com/kailas-cloud/indexsync/internal/usecase/search"
)

const (
	maxChangesPerRequest = 1000
	maxBodyBytes         = 1 << 20
)

// Server serves the indexsync admin and search API.
type Server struct {
	rebuild       Rebuilder
	mutator       Mutator
	search        Searcher
	changes       ChangePublisher
	types         TypeResolver
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	rebuild Rebuilder,
	mutator Mutator,
	search Searcher,
	changes ChangePublisher,
	types TypeResolver,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		rebuild:       rebuild,
		mutator:       mutator,
		search:        search,
		changes:       changes,
		types:         types,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Router mounts the API on a chi router. apiKeys protects every route except
// /health and /metrics; empty disables authentication.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(APIKeyAuth(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/rebuild", s.Rebuild)
		r.Post("/changes", s.PublishChanges)
		r.Route("/types/{contentType}", func(r chi.Router) {
			r.Get("/search", s.Search)
			r.Put("/documents/{pk}", s.PutDocument)
			r.Delete("/documents/{pk}", s.DeleteDocument)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Rebuild handles POST /v1/rebuild. The run is detached from the client
// connection so a dropped request does not leave the index half built.
func (s *Server) Rebuild(w http.ResponseWriter, r *http.Request) {
	report, err := s.rebuild.Rebuild(context.WithoutCancel(r.Context()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// PublishChanges handles POST /v1/changes.
func (s *Server) PublishChanges(w http.ResponseWriter, r *http.Request) {
	var changes []notify.Change
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&changes); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(changes) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "at least one change is required")
		return
	}
	if len(changes) > maxChangesPerRequest {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("at most %d changes per request", maxChangesPerRequest))
		return
	}
	for i, c := range changes {
		if !c.Op.IsValid() {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				fmt.Sprintf("changes[%d]: op must be %q or %q", i, notify.OpSave, notify.OpDelete))
			return
		}
	}

	for i, c := range changes {
		if err := s.changes.Publish(r.Context(), c); err != nil {
			logpkg.FromContext(r.Context()).Warn("change rejected", zap.Int("queued", i), zap.Error(err))
			s.handleDomainError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": len(changes)})
}

// PutDocument handles PUT /v1/types/{contentType}/documents/{pk}. The entity
// is loaded from the authoritative store and written to the index.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	t, pk, ok := s.target(w, r)
	if !ok {
		return
	}
	src := t.Source()
	if src == nil {
		s.handleDomainError(w, r, fmt.Errorf("type %s has no source", t.ContentType()))
		return
	}
	ents, err := src.FetchByPKs(r.Context(), []int64{pk})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if len(ents) == 0 {
		s.handleDomainError(w, r, fmt.Errorf("%s %d: %w", t.ContentType(), pk, domain.ErrEntityNotFound))
		return
	}
	if err := s.mutator.AddDocument(r.Context(), t, ents[0]); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{ContentType: t.ContentType(), PK: pk, Status: "indexed"})
}

// DeleteDocument handles DELETE /v1/types/{contentType}/documents/{pk}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	t, pk, ok := s.target(w, r)
	if !ok {
		return
	}
	if err := s.mutator.DeleteDocument(r.Context(), t, entity.Ref(pk)); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /v1/types/{contentType}/search.
// Exact-match filters are passed as repeated where=field:value parameters.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	t, err := s.types.Lookup(chi.URLParam(r, "contentType"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	qs := r.URL.Query()
	q := s.search.Search(t).Match(qs.Get("q"))
	for _, p := range []struct {
		name string
		set  func(int) *searchuc.Query
	}{{"limit", q.Limit}, {"offset", q.Offset}} {
		raw := qs.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, p.name+" must be a non-negative integer")
			return
		}
		p.set(n)
	}
	for _, where := range qs["where"] {
		field, value, found := strings.Cut(where, ":")
		if !found || field == "" {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "where must be field:value")
			return
		}
		q.Where(field, value)
	}

	ents, err := q.Execute(r.Context())
	if err != nil {
		if errors.Is(err, searchuc.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
			return
		}
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]entityResponse, len(ents))
	for i, e := range ents {
		items[i] = entityToResponse(e)
	}
	writeJSON(w, http.StatusOK, searchResponse{ContentType: t.ContentType(), Results: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// target resolves the content type and pk path parameters.
func (s *Server) target(w http.ResponseWriter, r *http.Request) (*entity.Type, int64, bool) {
	pk, err := strconv.ParseInt(chi.URLParam(r, "pk"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "pk must be an integer")
		return nil, 0, false
	}
	t, err := s.types.Lookup(chi.URLParam(r, "contentType"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, 0, false
	}
	return t, pk, true
}

type documentResponse struct {
	ContentType string `json:"content_type"`
	PK          int64  `json:"pk"`
	Status      string `json:"status"`
}

type entityResponse struct {
	PK     int64          `json:"pk"`
	Fields map[string]any `json:"fields,omitempty"`
}

type searchResponse struct {
	ContentType string           `json:"content_type"`
	Results     []entityResponse `json:"results"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

type failureResponse struct {
	ContentType string `json:"content_type"`
	PK          int64  `json:"pk"`
	Error       string `json:"error"`
}

type reportResponse struct {
	RunID      string                `json:"run_id"`
	DurationMS int64                 `json:"duration_ms"`
	Total      int                   `json:"total"`
	Indexed    int                   `json:"indexed"`
	Failed     int                   `json:"failed"`
	Types      []dombatch.TypeCounts `json:"types"`
	Failures   []failureResponse     `json:"failures,omitempty"`
}

func entityToResponse(e entity.Entity) entityResponse {
	out := entityResponse{PK: e.PK()}
	if row, ok := e.(entity.Row); ok {
		out.Fields = row.Values()
	}
	return out
}

func reportToResponse(r *dombatch.Report) reportResponse {
	failures := r.Failures()
	resp := reportResponse{
		RunID:      r.RunID(),
		DurationMS: r.Duration().Milliseconds(),
		Total:      r.Total(),
		Indexed:    r.Indexed(),
		Failed:     len(failures),
		Types:      r.Types(),
	}
	for _, f := range failures {
		resp.Failures = append(resp.Failures, failureResponse{
			ContentType: f.ContentType(),
			PK:          f.PK(),
			Error:       f.Err().Error(),
		})
	}
	return resp
}

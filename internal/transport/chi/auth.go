package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerScheme = "Bearer "

// publicRoutes are served without an API key.
var publicRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// apiKeys is the set of keys accepted by APIKeyAuth.
type apiKeys [][]byte

func newAPIKeys(keys []string) apiKeys {
	var out apiKeys
	for _, k := range keys {
		if k != "" {
			out = append(out, []byte(k))
		}
	}
	return out
}

// match compares token against every key in constant time.
func (ks apiKeys) match(token string) bool {
	ok := 0
	for _, k := range ks {
		ok |= subtle.ConstantTimeCompare(k, []byte(token))
	}
	return ok == 1
}

// APIKeyAuth guards the rebuild, change and document routes with
// "Authorization: Bearer <key>". With no non-empty key configured the
// middleware is a no-op.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	accepted := newAPIKeys(keys)
	return func(next http.Handler) http.Handler {
		if len(accepted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicRoutes[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			switch {
			case header == "":
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
			case !strings.HasPrefix(header, bearerScheme):
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header must use Bearer scheme")
			case !accepted.match(strings.TrimPrefix(header, bearerScheme)):
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

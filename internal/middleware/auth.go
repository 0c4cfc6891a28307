package middleware

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/icloudbridge/bridge/internal/auth"
	"github.com/icloudbridge/bridge/internal/metrics"
	"github.com/icloudbridge/bridge/internal/model"
)

// BearerAuth returns middleware that runs the auth decision once per request.
// The source address is the TCP peer; forwarding headers are not consulted.
func BearerAuth(authorizer *auth.Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := authorizer.Authorize(r.RemoteAddr, bearerToken(r))
			if !d.Allowed {
				metrics.AuthDenials.WithLabelValues(d.Reason).Inc()
				w.Header().Set("WWW-Authenticate", `Bearer realm="bridge"`)
				writeJSONError(w, http.StatusUnauthorized, d.Reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: true, Reason: msg})
}

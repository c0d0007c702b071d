package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"guardian/internal/platform/metrics"
	"guardian/pkg/domain"
	"guardian/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the parent it belongs
// to.
type TokenValidator interface {
	ValidateToken(tokenString string) (domain.ParentID, error)
}

// RequireParentAuth rejects requests without a valid parent bearer token and
// stores the parent on the request context.
func RequireParentAuth(validator TokenValidator, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				if m != nil {
					m.AuthFailures.Inc()
				}
				logger.WarnContext(ctx, "unauthorized: missing bearer token",
					"request_id", requestID,
				)
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			parentID, err := validator.ValidateToken(token)
			if err != nil {
				if m != nil {
					m.AuthFailures.Inc()
				}
				logger.WarnContext(ctx, "unauthorized: invalid token",
					"error", err,
					"request_id", requestID,
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithParentID(ctx, parentID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

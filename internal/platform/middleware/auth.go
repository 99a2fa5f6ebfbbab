package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	id "photobook/pkg/domain"
	"photobook/pkg/requestcontext"
)

const (
	userIDHeader     = "X-User-ID"
	adminTokenHeader = "X-Admin-Token"
	adminIDHeader    = "X-Admin-ID"
	defaultAdminID   = "admin"
)

type contextKeyAdminID struct{}

// GetAdminID returns the administrator recorded by RequireAdminToken.
func GetAdminID(ctx context.Context) string {
	if adminID, ok := ctx.Value(contextKeyAdminID{}).(string); ok {
		return adminID
	}
	return ""
}

// RequireUser trusts the X-User-ID header set by the upstream session layer.
func RequireUser(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, err := id.ParseUserID(r.Header.Get(userIDHeader))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - missing user",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "user identity required")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(ctx, userID)))
		})
	}
}

// RequireAdminToken guards admin routes with a shared token.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get(adminTokenHeader)
			// Use constant-time comparison to prevent timing attacks
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "admin token required")
				return
			}
			adminID := strings.TrimSpace(r.Header.Get(adminIDHeader))
			if adminID == "" {
				adminID = defaultAdminID
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, contextKeyAdminID{}, adminID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

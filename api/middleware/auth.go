package middleware

import (
	"net/http"
	"strings"

	pkgauth "github.com/rahulnegi20/recolora-backend/pkg/auth"
	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
)

// OptionalAuth seeds the request context with the user id when a valid
// bearer token is present. Anonymous requests pass through untouched, and so
// do requests with unparseable tokens: single-image purchases work without
// an account, so a stale token must not block checkout.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "ignoring invalid bearer token")
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rahulnegi20/recolora-backend/api/responses"
	"github.com/rahulnegi20/recolora-backend/pkg/config"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKey gates operator endpoints behind a shared key. A deployment
// without the key configured refuses all admin traffic rather than opening
// it up.
func AdminKey(cfg config.AdminConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Key == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeInternal, "admin access not configured"))
				return
			}

			provided := r.Header.Get(adminKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Key)) != 1 {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

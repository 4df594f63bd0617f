package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/shoplinehq/shopline-backend/api/responses"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
	"github.com/shoplinehq/shopline-backend/pkg/logger"
)

const adminTokenHeader = "X-Admin-Token"

// AdminToken gates the admin endpoints behind a shared token. An empty
// configured token disables the surface entirely rather than leaving it open.
func AdminToken(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(adminTokenHeader)
			if token == "" || presented == "" ||
				subtle.ConstantTimeCompare([]byte(token), []byte(presented)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

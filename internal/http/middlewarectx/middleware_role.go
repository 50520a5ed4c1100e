package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/response"
)

// RequireRole allows only requests whose token role is one of roles.
// It must run after JWTMiddleware.
func RequireRole(log *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFrom(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Warn("role not allowed", slog.String("role", role), slog.String("path", r.URL.Path))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error(response.CodeForbidden, "Access denied"))
		})
	}
}

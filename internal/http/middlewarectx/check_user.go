package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/dynasty-membership/internal/http/response"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// UserGetter loads the account behind a token.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// UserStatusMiddleware rejects tokens whose user no longer exists (401) and
// disabled customer accounts (403). It must run after JWTMiddleware.
func UserStatusMiddleware(log *slog.Logger, users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.UserStatusMiddleware"
			log := log.With(slog.String("op", op))

			userID, ok := UserIDFrom(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.CodeUnauthorized, "Not authorized, no token"))
				return
			}

			user, err := users.GetUser(r.Context(), userID)
			if errors.Is(err, models.ErrNotFound) {
				log.Info("token user not found", slog.String("user_id", userID))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.CodeUnauthorized, "Not authorized, user not found"))
				return
			}
			if err != nil {
				log.Error("failed to load user", slog.String("user_id", userID), sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error(response.CodeInternal, "internal service error"))
				return
			}

			if user.Role == models.RoleCustomer && !user.IsEnabled {
				log.Info("disabled account", slog.String("user_id", userID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(response.CodeForbidden, "Your account is disabled. Please contact support."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

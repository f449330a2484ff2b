package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/naguara/naguara-pos/internal/platform/httpx"
	"github.com/naguara/naguara-pos/internal/shared"
)

// RequireUser rejects requests without a logged-in active user and attaches
// the user to the request context.
func RequireUser(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				httpx.Error(w, http.StatusUnauthorized, "sesión requerida")
				return
			}
			user, err := service.Resolve(r.Context(), sess.User())
			if err != nil {
				if errors.Is(err, shared.ErrUnauthorized) {
					sess.SetUser("")
					httpx.Error(w, http.StatusUnauthorized, "sesión inválida")
					return
				}
				httpx.RespondError(w, r, logger, err)
				return
			}
			ctx := shared.ContextWithUser(r.Context(), user.Current())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

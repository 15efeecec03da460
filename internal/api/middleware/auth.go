package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/csrental/cees/internal/api"
	"github.com/csrental/cees/internal/domain"
)

type contextKey string

const IdentityKey contextKey = "identity"

// SessionValidator resolves a bearer session token to an identity.
type SessionValidator interface {
	ValidateSessionToken(ctx context.Context, token string) (*domain.Identity, error)
}

// SessionAuth authenticates requests with a bearer session token and puts
// the resolved identity on the request context.
func SessionAuth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			identity, err := validator.ValidateSessionToken(r.Context(), token)
			if err != nil {
				api.HandleError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose identity lacks the admin role. It
// must run after SessionAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity == nil {
			api.Error(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !identity.IsAdmin() {
			api.HandleError(w, domain.ErrInsufficientRole)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity returns the authenticated identity from context, or nil.
func GetIdentity(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(IdentityKey).(*domain.Identity)
	return identity
}

// GetUserID returns the authenticated user's ID from context.
func GetUserID(ctx context.Context) string {
	if identity := GetIdentity(ctx); identity != nil {
		return identity.UserID
	}
	return ""
}

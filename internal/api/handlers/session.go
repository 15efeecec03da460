package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/csrental/cees/internal/api"
	"github.com/csrental/cees/internal/api/middleware"
)

type SessionService interface {
	RevokeSessionByToken(ctx context.Context, token string) error
}

// SessionHandler exposes the identity of the current session and logout.
type SessionHandler struct {
	svc SessionService
}

func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type IdentityResponse struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Me returns the identity the current bearer token resolves to.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	api.Success(w, http.StatusOK, IdentityResponse{
		UserID: identity.UserID,
		Role:   string(identity.Role),
	})
}

// Logout revokes the session behind the current bearer token.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.RevokeSessionByToken(r.Context(), token); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]bool{"revoked": true})
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/csrental/cees/internal/api"
	"github.com/csrental/cees/internal/api/middleware"
	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/service"
)

type ChatService interface {
	SendMessage(ctx context.Context, input service.SendMessageInput) (*service.SendMessageOutput, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`
}

type SendMessageResponse struct {
	Response  string           `json:"response"`
	SessionID string           `json:"sessionId"`
	Sources   []service.Source `json:"sources"`
}

// SendMessage runs one chat turn. An empty sessionId starts a new session.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	output, err := h.svc.SendMessage(r.Context(), service.SendMessageInput{
		UserID:    userID,
		SessionID: req.SessionID,
		Mode:      domain.ChatMode(req.Mode),
		Message:   req.Message,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SendMessageResponse{
		Response:  output.Response,
		SessionID: output.SessionID,
		Sources:   output.Sources,
	})
}

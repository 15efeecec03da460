package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/csrental/cees/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) RevokeSessionByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func TestSessionHandler_Me(t *testing.T) {
	handler := NewSessionHandler(new(MockSessionService))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = requestWithIdentity(req, &domain.Identity{UserID: "user-1", Role: domain.RoleAdmin})
	w := httptest.NewRecorder()

	handler.Me(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
	assert.Contains(t, w.Body.String(), "ADMIN")
}

func TestSessionHandler_Me_Unauthenticated(t *testing.T) {
	handler := NewSessionHandler(new(MockSessionService))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	handler.Me(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionHandler_Logout(t *testing.T) {
	mockSvc := new(MockSessionService)
	mockSvc.On("RevokeSessionByToken", mock.Anything, "cees_sometoken").Return(nil)

	handler := NewSessionHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer cees_sometoken")
	req = requestWithIdentity(req, &domain.Identity{UserID: "user-1", Role: domain.RoleUser})
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
	mockSvc.AssertExpectations(t)
}

func TestSessionHandler_Logout_NoToken(t *testing.T) {
	handler := NewSessionHandler(new(MockSessionService))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

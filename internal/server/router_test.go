package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/csrental/cees/internal/api/handlers"
	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessionValidator struct {
	mock.Mock
}

func (m *MockSessionValidator) ValidateSessionToken(ctx context.Context, token string) (*domain.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) ListByUploader(ctx context.Context, userID string) ([]*domain.Document, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentService) ListByStatus(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListDocumentsOutput), args.Error(1)
}

func (m *MockDocumentService) Approve(ctx context.Context, documentID, adminID, reason string) (*domain.Document, error) {
	args := m.Called(ctx, documentID, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Reject(ctx context.Context, documentID, adminID, reason string) (*domain.Document, error) {
	args := m.Called(ctx, documentID, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) SendMessage(ctx context.Context, input service.SendMessageInput) (*service.SendMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendMessageOutput), args.Error(1)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) RevokeSessionByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func setupRouter() (http.Handler, *MockSessionValidator, *MockDocumentService, *MockChatService) {
	validator := new(MockSessionValidator)
	docSvc := new(MockDocumentService)
	chatSvc := new(MockChatService)
	sessionSvc := new(MockSessionService)

	cfg := RouterConfig{
		SessionValidator: validator,
		DocumentHandler:  handlers.NewDocumentHandler(docSvc, 10485760),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		SessionHandler:   handlers.NewSessionHandler(sessionSvc),
	}

	return NewRouter(cfg), validator, docSvc, chatSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, _, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents/upload"},
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/documents/123"},
		{http.MethodPost, "/chat"},
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodGet, "/admin/documents"},
		{http.MethodPost, "/admin/documents/123/approve"},
		{http.MethodPost, "/admin/documents/123/reject"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_AdminRoutes_RejectRegularUsers(t *testing.T) {
	router, validator, docSvc, _ := setupRouter()

	validator.On("ValidateSessionToken", mock.Anything, "cees_usertoken").
		Return(&domain.Identity{UserID: "user-1", Role: domain.RoleUser}, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin/documents"},
		{http.MethodPost, "/admin/documents/123/approve"},
		{http.MethodPost, "/admin/documents/123/reject"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			req.Header.Set("Authorization", "Bearer cees_usertoken")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}

	docSvc.AssertNotCalled(t, "ListByStatus")
	docSvc.AssertNotCalled(t, "Approve")
	docSvc.AssertNotCalled(t, "Reject")
}

func TestRouter_AdminRoutes_AllowAdmins(t *testing.T) {
	router, validator, docSvc, _ := setupRouter()

	validator.On("ValidateSessionToken", mock.Anything, "cees_admintoken").
		Return(&domain.Identity{UserID: "admin-1", Role: domain.RoleAdmin}, nil)
	docSvc.On("ListByStatus", mock.Anything, mock.Anything).
		Return(&service.ListDocumentsOutput{Items: nil, HasMore: false}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/documents", nil)
	req.Header.Set("Authorization", "Bearer cees_admintoken")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	docSvc.AssertExpectations(t)
}

func TestRouter_Chat_WithValidAuth(t *testing.T) {
	router, validator, _, chatSvc := setupRouter()

	validator.On("ValidateSessionToken", mock.Anything, "cees_usertoken").
		Return(&domain.Identity{UserID: "user-1", Role: domain.RoleUser}, nil)
	chatSvc.On("SendMessage", mock.Anything, mock.MatchedBy(func(input service.SendMessageInput) bool {
		return input.UserID == "user-1" && input.Message == "Hallo CeeS"
	})).Return(&service.SendMessageOutput{
		SessionID: "session-1",
		Response:  "Hallo! Waarmee kan ik je helpen?",
		Sources:   []service.Source{},
	}, nil)

	body := bytes.NewBufferString(`{"message":"Hallo CeeS","mode":"TECHNICAL"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", body)
	req.Header.Set("Authorization", "Bearer cees_usertoken")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	validator.AssertExpectations(t)
	chatSvc.AssertExpectations(t)
}

func TestRouter_Documents_ListMine(t *testing.T) {
	router, validator, docSvc, _ := setupRouter()

	validator.On("ValidateSessionToken", mock.Anything, "cees_usertoken").
		Return(&domain.Identity{UserID: "user-1", Role: domain.RoleUser}, nil)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := domain.NewDocument("doc-1", "1700000000000-rapport.txt", "rapport.txt", "text/plain", 512, "user-1", "", now)
	docSvc.On("ListByUploader", mock.Anything, "user-1").Return([]*domain.Document{doc}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/", nil)
	req.Header.Set("Authorization", "Bearer cees_usertoken")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "doc-1")
	docSvc.AssertExpectations(t)
}

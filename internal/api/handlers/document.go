package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/csrental/cees/internal/api"
	"github.com/csrental/cees/internal/api/middleware"
	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByUploader(ctx context.Context, userID string) ([]*domain.Document, error)
	ListByStatus(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
	Approve(ctx context.Context, documentID, adminID, reason string) (*domain.Document, error)
	Reject(ctx context.Context, documentID, adminID, reason string) (*domain.Document, error)
}

type DocumentHandler struct {
	svc         DocumentService
	maxFileSize int64
}

func NewDocumentHandler(svc DocumentService, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxFileSize: maxFileSize}
}

type ApproveDocumentRequest struct {
	Reason string `json:"reason"`
}

type RejectDocumentRequest struct {
	Reason string `json:"reason"`
}

type DocumentResponse struct {
	ID              string `json:"id"`
	Filename        string `json:"filename"`
	OriginalName    string `json:"originalName"`
	MimeType        string `json:"mimeType"`
	Size            int64  `json:"size"`
	UploadedBy      string `json:"uploadedBy"`
	Status          string `json:"status"`
	ApprovedBy      string `json:"approvedBy,omitempty"`
	ApprovedAt      string `json:"approvedAt,omitempty"`
	RejectedReason  string `json:"rejectedReason,omitempty"`
	ProcessingError string `json:"processingError,omitempty"`
	IsProcessed     bool   `json:"isProcessed"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:              d.ID,
		Filename:        d.Filename,
		OriginalName:    d.OriginalName,
		MimeType:        d.MimeType,
		Size:            d.Size,
		UploadedBy:      d.UploadedBy,
		Status:          string(d.Status),
		ApprovedBy:      d.ApprovedBy,
		RejectedReason:  d.RejectedReason,
		ProcessingError: d.ProcessingError,
		IsProcessed:     d.IsProcessed,
		CreatedAt:       d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       d.UpdatedAt.Format(time.RFC3339),
	}
	if d.ApprovedAt != nil {
		resp.ApprovedAt = d.ApprovedAt.Format(time.RFC3339)
	}
	return resp
}

// Upload accepts a multipart document upload and registers it as pending
// approval.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.HandleError(w, domain.ErrNoFileProvided)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	doc, err := h.svc.Upload(r.Context(), service.UploadInput{
		UploaderID:   userID,
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Content:      content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

// ListMine returns the authenticated user's own uploads.
func (h *DocumentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docs, err := h.svc.ListByUploader(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(docs))
	for i, d := range docs {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	identity := middleware.GetIdentity(r.Context())
	if identity == nil || (!identity.IsAdmin() && doc.UploadedBy != identity.UserID) {
		api.HandleError(w, domain.ErrDocumentNotFound)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"hasMore"`
}

// ListAdmin returns documents by status with cursor pagination. Admin only.
func (h *DocumentHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	status := domain.DocumentStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.DocumentStatusPending
	}

	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.ListByStatus(r.Context(), service.ListDocumentsInput{
		Status: status,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(output.Items))
	for i, d := range output.Items {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

// Approve marks a pending document as approved and queues it for
// processing. Admin only.
func (h *DocumentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetUserID(r.Context())
	if adminID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	// The reason is optional, so an empty body is fine
	var req ApproveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.Approve(r.Context(), id, adminID, req.Reason)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

// Reject marks a pending document as rejected. Admin only, reason required.
func (h *DocumentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetUserID(r.Context())
	if adminID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req RejectDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.Reject(r.Context(), id, adminID, req.Reason)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

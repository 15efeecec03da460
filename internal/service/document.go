package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/csrental/cees/internal/audit"
	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/pagination"
	"github.com/csrental/cees/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Update(ctx context.Context, d *domain.Document) error
	ListByUploader(ctx context.Context, userID string) ([]*domain.Document, error)
	ListByStatusWithCursor(ctx context.Context, status domain.DocumentStatus, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
}

// ApprovalRepositoryInterface records approve/reject decisions
type ApprovalRepositoryInterface interface {
	Create(ctx context.Context, a *domain.DocumentApproval) error
}

// BlobStore is the object storage the document service reads and writes.
type BlobStore interface {
	PutObject(ctx context.Context, key string, contentType string, data []byte) (string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// ProcessingEnqueuer hands approved documents to the background executor.
type ProcessingEnqueuer interface {
	Enqueue(documentID, userID string) error
}

// DocumentConfig carries the upload and chunking limits.
type DocumentConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
	Chunking          ChunkConfig
}

// DocumentService handles the upload, approval, and processing lifecycle.
type DocumentService struct {
	docRepo      DocumentRepositoryInterface
	chunkRepo    ChunkRepositoryInterface
	approvalRepo ApprovalRepositoryInterface
	blobs        BlobStore
	embeddings   *EmbeddingService
	queue        ProcessingEnqueuer
	txRunner     TxRunner
	auditLog     *audit.Logger
	uuidGen      UUIDGenerator
	cfg          DocumentConfig
	now          func() time.Time
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	approvalRepo ApprovalRepositoryInterface,
	blobs BlobStore,
	embeddings *EmbeddingService,
	auditLog *audit.Logger,
	cfg DocumentConfig,
) *DocumentService {
	if cfg.Chunking.ChunkSize <= 0 {
		cfg.Chunking = DefaultChunkConfig()
	}
	return &DocumentService{
		docRepo:      docRepo,
		chunkRepo:    chunkRepo,
		approvalRepo: approvalRepo,
		blobs:        blobs,
		embeddings:   embeddings,
		auditLog:     auditLog,
		uuidGen:      &DefaultUUIDGenerator{},
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetQueue wires the processing executor. Wired after construction because
// the executor needs the service as its processor.
func (s *DocumentService) SetQueue(queue ProcessingEnqueuer) {
	s.queue = queue
}

// SetTxRunner makes approval decisions atomic: the status update and the
// decision record commit together. Without a runner the two writes happen
// sequentially.
func (s *DocumentService) SetTxRunner(runner TxRunner) {
	s.txRunner = runner
}

// SetUUIDGenerator overrides the ID generator (for testing).
func (s *DocumentService) SetUUIDGenerator(gen UUIDGenerator) {
	s.uuidGen = gen
}

// SetClock overrides the clock (for testing).
func (s *DocumentService) SetClock(now func() time.Time) {
	s.now = now
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// sanitizeFilename maps a user-supplied filename onto a safe storage key
// component. Anything outside [a-zA-Z0-9.-] becomes an underscore.
func sanitizeFilename(name string) string {
	return unsafeKeyChars.ReplaceAllString(name, "_")
}

// UploadInput represents the input for uploading a document
type UploadInput struct {
	UploaderID   string
	OriginalName string
	MimeType     string
	Content      []byte
}

// Upload stores a document blob and registers it as pending approval.
// The blob is removed again if the metadata insert fails, so storage and
// database stay consistent.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		UserID:    input.UploaderID,
		Operation: "upload",
	})
	defer span.End()

	if len(input.Content) == 0 {
		return nil, domain.ErrNoFileProvided
	}
	if int64(len(input.Content)) > s.cfg.MaxFileSize {
		return nil, domain.ErrFileTooLarge
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.OriginalName), "."))
	if !s.extensionAllowed(ext) {
		return nil, domain.ErrFileTypeNotAllowed
	}

	now := s.now()
	key := fmt.Sprintf("%d-%s", now.UnixMilli(), sanitizeFilename(input.OriginalName))

	storageURL, err := s.blobs.PutObject(ctx, key, input.MimeType, input.Content)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "failed to store document", err)
	}

	doc := domain.NewDocument(
		s.uuidGen.NewString(),
		key,
		input.OriginalName,
		input.MimeType,
		int64(len(input.Content)),
		input.UploaderID,
		storageURL,
		now,
	)

	if err := domain.ValidateDocument(doc); err != nil {
		_ = s.blobs.DeleteObject(ctx, key)
		return nil, err
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		// Roll the blob back so no orphan object survives
		if delErr := s.blobs.DeleteObject(ctx, key); delErr != nil {
			log.Printf("document: failed to roll back blob %s: %v", key, delErr)
		}
		span.SetError(err)
		return nil, err
	}

	s.auditLog.LogDocument(ctx, input.UploaderID, "DOCUMENT_UPLOADED", doc.ID, audit.SeverityInfo, map[string]any{
		"filename": doc.OriginalName,
		"size":     doc.Size,
		"mimeType": doc.MimeType,
	})

	return doc, nil
}

func (s *DocumentService) extensionAllowed(ext string) bool {
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// GetByID retrieves a document by ID
func (s *DocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, id)
}

// ListByUploader retrieves all documents uploaded by a user
func (s *DocumentService) ListByUploader(ctx context.Context, userID string) ([]*domain.Document, error) {
	return s.docRepo.ListByUploader(ctx, userID)
}

type ListDocumentsInput struct {
	Status domain.DocumentStatus
	Cursor string
	Limit  int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// ListByStatus retrieves documents in a given state for the admin review queue.
func (s *DocumentService) ListByStatus(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.ListByStatus", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.docRepo.ListByStatusWithCursor(ctx, input.Status, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Approve moves a pending document to approved, records the decision with
// the optional reason, and queues it for processing.
func (s *DocumentService) Approve(ctx context.Context, documentID, adminID, reason string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Approve", telemetry.SpanAttributes{
		UserID:     adminID,
		DocumentID: documentID,
		Operation:  "approve",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := doc.Transition(domain.DocumentStatusApproved, now); err != nil {
		return nil, err
	}
	doc.ApprovedBy = adminID
	doc.ApprovedAt = &now

	approval := &domain.DocumentApproval{
		ID:         s.uuidGen.NewString(),
		DocumentID: doc.ID,
		UserID:     adminID,
		Action:     domain.ApprovalActionApprove,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  now,
	}
	if err := s.recordDecision(ctx, doc, approval); err != nil {
		span.SetError(err)
		return nil, err
	}

	s.auditLog.LogDocument(ctx, adminID, "DOCUMENT_APPROVED", doc.ID, audit.SeverityInfo, map[string]any{
		"filename": doc.OriginalName,
	})

	if s.queue != nil {
		if err := s.queue.Enqueue(doc.ID, adminID); err != nil {
			// The document stays approved; processing can be retried by
			// re-submitting once the queue drains.
			log.Printf("document: failed to enqueue %s for processing: %v", doc.ID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	return doc, nil
}

// Reject moves a pending document to rejected with a mandatory reason and
// removes the stored blob best effort.
func (s *DocumentService) Reject(ctx context.Context, documentID, adminID, reason string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Reject", telemetry.SpanAttributes{
		UserID:     adminID,
		DocumentID: documentID,
		Operation:  "reject",
	})
	defer span.End()

	if strings.TrimSpace(reason) == "" {
		return nil, domain.ErrRejectReasonRequired
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := doc.Transition(domain.DocumentStatusRejected, now); err != nil {
		return nil, err
	}
	doc.RejectedReason = reason

	approval := &domain.DocumentApproval{
		ID:         s.uuidGen.NewString(),
		DocumentID: doc.ID,
		UserID:     adminID,
		Action:     domain.ApprovalActionReject,
		Reason:     reason,
		CreatedAt:  now,
	}
	if err := s.recordDecision(ctx, doc, approval); err != nil {
		span.SetError(err)
		return nil, err
	}

	// The rejected blob is dead weight; failure to delete only leaves an
	// orphan object behind.
	if err := s.blobs.DeleteObject(ctx, doc.Filename); err != nil {
		log.Printf("document: failed to delete rejected blob %s: %v", doc.Filename, err)
	}

	s.auditLog.LogDocument(ctx, adminID, "DOCUMENT_REJECTED", doc.ID, audit.SeverityWarning, map[string]any{
		"filename": doc.OriginalName,
		"reason":   reason,
	})

	return doc, nil
}

// Process runs the ingestion pipeline for an approved document: download,
// extract, chunk, embed, persist. Any failure is recorded on the document
// and moves it to the error state.
func (s *DocumentService) Process(ctx context.Context, documentID, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Process", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: documentID,
		Operation:  "process",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := doc.Transition(domain.DocumentStatusProcessing, s.now()); err != nil {
		return err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return err
	}

	s.auditLog.LogDocument(ctx, userID, "PROCESSING_STARTED", doc.ID, audit.SeverityInfo, nil)

	if err := s.ingest(ctx, doc); err != nil {
		span.SetError(err)
		s.markFailed(ctx, doc, userID, err)
		return err
	}

	if err := doc.Transition(domain.DocumentStatusProcessed, s.now()); err != nil {
		span.SetError(err)
		s.markFailed(ctx, doc, userID, err)
		return err
	}
	doc.IsProcessed = true
	doc.ProcessingError = ""
	if err := s.docRepo.Update(ctx, doc); err != nil {
		// The PROCESSED flip never reached the store; undo the in-memory
		// transition so the document lands in ERROR instead of staying
		// stuck in PROCESSING.
		span.SetError(err)
		doc.Status = domain.DocumentStatusProcessing
		doc.IsProcessed = false
		s.markFailed(ctx, doc, userID, err)
		return err
	}

	s.auditLog.LogDocument(ctx, userID, "PROCESSING_COMPLETED", doc.ID, audit.SeverityInfo, map[string]any{
		"filename": doc.OriginalName,
	})

	return nil
}

func (s *DocumentService) ingest(ctx context.Context, doc *domain.Document) error {
	data, err := s.blobs.GetObject(ctx, doc.Filename)
	if err != nil {
		return fmt.Errorf("failed to download document: %w", err)
	}

	text, err := ExtractText(data, doc.MimeType)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyDocumentText
	}

	meta := domain.ChunkMetadata{
		DocumentID: doc.ID,
		Filename:   doc.OriginalName,
		MimeType:   doc.MimeType,
	}
	chunks := SplitIntoChunks(text, meta, s.cfg.Chunking)

	failed := s.embeddings.EmbedChunks(ctx, chunks)
	if failed > 0 {
		log.Printf("document: %d of %d chunks for %s have no embedding", failed, len(chunks), doc.ID)
	}

	now := s.now()
	for i := range chunks {
		chunks[i].ID = s.uuidGen.NewString()
		chunks[i].CreatedAt = now
	}

	if err := s.chunkRepo.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}

	return nil
}

// recordDecision persists the document's new status together with the
// immutable approval record, in one transaction when a runner is wired.
func (s *DocumentService) recordDecision(ctx context.Context, doc *domain.Document, approval *domain.DocumentApproval) error {
	if s.txRunner == nil {
		if err := s.docRepo.Update(ctx, doc); err != nil {
			return err
		}
		return s.approvalRepo.Create(ctx, approval)
	}

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Update(ctx, doc); err != nil {
			return err
		}
		return repos.Approvals().Create(ctx, approval)
	})
}

func (s *DocumentService) markFailed(ctx context.Context, doc *domain.Document, userID string, cause error) {
	doc.ProcessingError = cause.Error()
	if err := doc.Transition(domain.DocumentStatusError, s.now()); err != nil {
		log.Printf("document: cannot mark %s as errored: %v", doc.ID, err)
		return
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		log.Printf("document: failed to persist error state for %s: %v", doc.ID, err)
	}

	s.auditLog.LogDocument(ctx, userID, "PROCESSING_FAILED", doc.ID, audit.SeverityError, map[string]any{
		"error": cause.Error(),
	})
}

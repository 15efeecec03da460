package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the lifecycle state of an uploaded document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "PENDING"
	DocumentStatusApproved   DocumentStatus = "APPROVED"
	DocumentStatusRejected   DocumentStatus = "REJECTED"
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusProcessed  DocumentStatus = "PROCESSED"
	DocumentStatusError      DocumentStatus = "ERROR"
)

// Document represents an uploaded document and its approval/processing state
type Document struct {
	ID              string
	Filename        string // storage key, "{timestamp}-{sanitized original name}"
	OriginalName    string
	MimeType        string
	Size            int64
	UploadedBy      string
	Status          DocumentStatus
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedReason  string
	ProcessingError string
	IsProcessed     bool
	StorageURL      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewDocument creates a Document in the initial PENDING state
func NewDocument(id, filename, originalName, mimeType string, size int64, uploadedBy, storageURL string, now time.Time) *Document {
	return &Document{
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         size,
		UploadedBy:   uploadedBy,
		Status:       DocumentStatusPending,
		StorageURL:   storageURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// legalTransitions encodes the document state machine:
// PENDING -> APPROVED | REJECTED, APPROVED -> PROCESSING,
// PROCESSING -> PROCESSED | ERROR. REJECTED and ERROR are terminal.
var legalTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusPending:    {DocumentStatusApproved, DocumentStatusRejected},
	DocumentStatusApproved:   {DocumentStatusProcessing},
	DocumentStatusProcessing: {DocumentStatusProcessed, DocumentStatusError},
	DocumentStatusProcessed:  {},
	DocumentStatusRejected:   {},
	DocumentStatusError:      {},
}

// CanTransition reports whether the state machine allows moving from one status to another
func CanTransition(from, to DocumentStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the document to the given status or fails with a state-conflict error
func (d *Document) Transition(to DocumentStatus, now time.Time) error {
	if !CanTransition(d.Status, to) {
		return NewDomainErrorWithCause(ErrCodeStateConflict,
			fmt.Sprintf("illegal document transition %s -> %s", d.Status, to), nil)
	}
	d.Status = to
	d.UpdatedAt = now
	return nil
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if d.OriginalName == "" {
		return fmt.Errorf("document OriginalName is required")
	}

	if d.UploadedBy == "" {
		return fmt.Errorf("document UploadedBy is required")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	if d.Status == DocumentStatusRejected && d.RejectedReason == "" {
		return fmt.Errorf("rejected document requires a RejectedReason")
	}

	return nil
}

// isValidDocumentStatus checks if a DocumentStatus is valid
func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusApproved, DocumentStatusRejected,
		DocumentStatusProcessing, DocumentStatusProcessed, DocumentStatusError:
		return true
	}
	return false
}

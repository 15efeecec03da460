package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeStateConflict = "STATE_CONFLICT"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyMessage         = NewDomainError(ErrCodeValidation, "message is required")
	ErrRejectReasonRequired = NewDomainError(ErrCodeValidation, "rejection reason is required")
	ErrFileTooLarge         = NewDomainError(ErrCodeValidation, "file size exceeds the configured limit")
	ErrFileTypeNotAllowed   = NewDomainError(ErrCodeValidation, "file type not allowed")
	ErrNoFileProvided       = NewDomainError(ErrCodeValidation, "no file provided")
	ErrEmptyDocumentText    = NewDomainError(ErrCodeValidation, "no text content extracted from document")
)

// Not found errors
var (
	ErrDocumentNotFound    = NewDomainError(ErrCodeNotFound, "document not found")
	ErrSessionNotFound     = NewDomainError(ErrCodeNotFound, "chat session not found")
	ErrUserSessionNotFound = NewDomainError(ErrCodeNotFound, "user session not found")
)

// State conflict errors
var (
	ErrDocumentNotPending = NewDomainError(ErrCodeStateConflict, "document is not pending approval")
)

// Authorization errors
var (
	ErrUnauthenticated   = NewDomainError(ErrCodeUnauthorized, "not authenticated")
	ErrInsufficientRole  = NewDomainError(ErrCodeForbidden, "insufficient role for this operation")
	ErrSessionTokenStale = NewDomainError(ErrCodeUnauthorized, "session token expired")
)

// Upstream errors
var (
	ErrCompletionUnavailable = NewDomainError(ErrCodeUpstream, "failed to process chat message, please try again")
	ErrUnsupportedMimeType   = NewDomainError(ErrCodeUpstream, "unsupported file type for text extraction")
)

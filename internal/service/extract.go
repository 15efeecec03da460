package service

import (
	"fmt"

	"github.com/csrental/cees/internal/domain"
)

// ExtractText converts raw file content into plain text for chunking.
// Plain text and markdown pass through as-is; binary formats without a
// wired extractor fail loudly so the document lands in the error state
// instead of silently indexing garbage.
func ExtractText(data []byte, mimeType string) (string, error) {
	switch mimeType {
	case "text/plain", "text/markdown":
		return string(data), nil
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "", domain.NewDomainErrorWithCause(
			domain.ErrCodeUpstream,
			"unsupported file type for text extraction",
			fmt.Errorf("no extractor for %s", mimeType),
		)
	default:
		return "", domain.NewDomainErrorWithCause(
			domain.ErrCodeUpstream,
			"unsupported file type for text extraction",
			fmt.Errorf("unknown mime type %s", mimeType),
		)
	}
}

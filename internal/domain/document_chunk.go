package domain

import "time"

// ChunkMetadata carries provenance for a chunk back to its source document.
type ChunkMetadata struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
}

// DocumentChunk represents a bounded segment of a document's extracted text.
// A nil Embedding means the chunk is persisted but excluded from vector
// retrieval.
type DocumentChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	Embedding  []float32
	Tokens     int
	Metadata   ChunkMetadata
	CreatedAt  time.Time
}

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/csrental/cees/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService generates embeddings for document chunks and queries.
type EmbeddingService struct {
	client EmbeddingClient
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient) *EmbeddingService {
	return &EmbeddingService{client: client}
}

// EmbedChunks generates an embedding for each chunk in place. A failing
// chunk keeps a nil embedding and does not abort the batch; the chunk is
// still persisted so its text remains available to the lexical fallback.
// The number of failed chunks is returned.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, chunks []domain.DocumentChunk) int {
	failed := 0
	for i := range chunks {
		embedding, err := s.client.GenerateEmbedding(ctx, chunks[i].Content)
		if err != nil {
			log.Printf("embedding: chunk %d of document %s failed: %v", chunks[i].ChunkIndex, chunks[i].DocumentID, err)
			failed++
			continue
		}
		chunks[i].Embedding = embedding
	}
	return failed
}

// EmbedQuery generates an embedding for a retrieval query.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embedding, err := s.client.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return embedding, nil
}

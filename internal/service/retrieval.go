package service

import (
	"context"
	"log"
	"strings"

	"github.com/csrental/cees/internal/telemetry"
)

// DefaultRetrievalTopK is the number of chunks pulled into chat context.
const DefaultRetrievalTopK = 5

// RetrievedChunk is one chunk returned by retrieval, joined with the
// originating document's display name.
type RetrievedChunk struct {
	ChunkID    string
	DocumentID string
	Filename   string
	Content    string
	Score      float32
}

// RetrievalRepositoryInterface defines chunk search over processed documents.
type RetrievalRepositoryInterface interface {
	SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]*RetrievedChunk, error)
	SearchLexical(ctx context.Context, query string, limit int) ([]*RetrievedChunk, error)
}

// RetrievalService finds document chunks relevant to a chat message.
// Vector similarity is the primary path; a lexical match over chunk text
// covers chunks whose embedding failed and outages of the embedding API.
// Retrieval never fails a chat: all errors degrade to an empty result.
type RetrievalService struct {
	embeddings *EmbeddingService
	repo       RetrievalRepositoryInterface
	topK       int
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(embeddings *EmbeddingService, repo RetrievalRepositoryInterface, topK int) *RetrievalService {
	if topK <= 0 {
		topK = DefaultRetrievalTopK
	}
	return &RetrievalService{
		embeddings: embeddings,
		repo:       repo,
		topK:       topK,
	}
}

// Search returns up to topK chunks relevant to the query.
func (s *RetrievalService) Search(ctx context.Context, query string) []*RetrievedChunk {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil
	}

	embedding, err := s.embeddings.EmbedQuery(ctx, query)
	if err != nil {
		log.Printf("retrieval: query embedding failed, falling back to lexical: %v", err)
		return s.searchLexical(ctx, query)
	}

	results, err := s.repo.SearchSemantic(ctx, embedding, s.topK)
	if err != nil {
		log.Printf("retrieval: semantic search failed, falling back to lexical: %v", err)
		return s.searchLexical(ctx, query)
	}
	if len(results) == 0 {
		return s.searchLexical(ctx, query)
	}

	return results
}

func (s *RetrievalService) searchLexical(ctx context.Context, query string) []*RetrievedChunk {
	results, err := s.repo.SearchLexical(ctx, query, s.topK)
	if err != nil {
		log.Printf("retrieval: lexical search failed: %v", err)
		return nil
	}
	return results
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence and search of document chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones.
// Chunks without an embedding are stored with a NULL vector; they stay
// reachable through the lexical search path.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var embedding any
		if c.Embedding != nil {
			embedding = pgvector.NewVector(c.Embedding)
		}

		_, err = r.db.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding, tokens, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.DocumentID, c.ChunkIndex, c.Content, embedding, c.Tokens, metadata, createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// CountByDocument returns the number of stored chunks for a document.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}

// SearchSemantic returns the chunks closest to the query embedding by
// cosine distance. Only chunks of fully processed documents participate.
func (r *ChunkRepository) SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]*service.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.document_id, d.original_name, c.content,
		        1.0 / (1.0 + (c.embedding <=> $1)) AS score
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.status = $2 AND c.embedding IS NOT NULL
		 ORDER BY c.embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(embedding), domain.DocumentStatusProcessed, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRetrievedChunks(rows)
}

// SearchLexical matches chunk text with Postgres full-text search. It
// covers chunks whose embedding is missing and rides out embedding API
// outages.
func (r *ChunkRepository) SearchLexical(ctx context.Context, query string, limit int) ([]*service.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.document_id, d.original_name, c.content,
		        ts_rank(to_tsvector('dutch', c.content), plainto_tsquery('dutch', $1)) AS score
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.status = $2
		   AND to_tsvector('dutch', c.content) @@ plainto_tsquery('dutch', $1)
		 ORDER BY score DESC
		 LIMIT $3`,
		query, domain.DocumentStatusProcessed, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRetrievedChunks(rows)
}

// ListByDocument returns a document's chunks ordered by index.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, tokens, metadata, created_at
		 FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.Tokens, &metadata, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
			}
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func scanRetrievedChunks(rows pgx.Rows) ([]*service.RetrievedChunk, error) {
	results := make([]*service.RetrievedChunk, 0)
	for rows.Next() {
		var c service.RetrievedChunk
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Filename, &c.Content, &c.Score); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

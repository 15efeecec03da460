package repository

import (
	"context"
	"errors"

	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/pagination"
	"github.com/csrental/cees/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx dbtx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, filename, original_name, mime_type, size, uploaded_by, status,
	approved_by, approved_at, rejected_reason, processing_error, is_processed, storage_url,
	created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, filename, original_name, mime_type, size, uploaded_by, status,
			approved_by, approved_at, rejected_reason, processing_error, is_processed, storage_url,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.Filename, d.OriginalName, d.MimeType, d.Size, d.UploadedBy, d.Status,
		nullableString(d.ApprovedBy), d.ApprovedAt, nullableString(d.RejectedReason),
		nullableString(d.ProcessingError), d.IsProcessed, nullableString(d.StorageURL),
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, approved_by = $2, approved_at = $3, rejected_reason = $4,
			processing_error = $5, is_processed = $6, updated_at = $7
		 WHERE id = $8`,
		d.Status, nullableString(d.ApprovedBy), d.ApprovedAt, nullableString(d.RejectedReason),
		nullableString(d.ProcessingError), d.IsProcessed, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) ListByUploader(ctx context.Context, userID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE uploaded_by = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (r *DocumentRepository) ListByStatusWithCursor(ctx context.Context, status domain.DocumentStatus, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents
			 WHERE status = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			status, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+` FROM documents
			 WHERE status = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			status, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

type documentScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row documentScanner) (*domain.Document, error) {
	var d domain.Document
	var approvedBy, rejectedReason, processingError, storageURL *string
	err := row.Scan(
		&d.ID, &d.Filename, &d.OriginalName, &d.MimeType, &d.Size, &d.UploadedBy, &d.Status,
		&approvedBy, &d.ApprovedAt, &rejectedReason, &processingError, &d.IsProcessed, &storageURL,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approvedBy != nil {
		d.ApprovedBy = *approvedBy
	}
	if rejectedReason != nil {
		d.RejectedReason = *rejectedReason
	}
	if processingError != nil {
		d.ProcessingError = *processingError
	}
	if storageURL != nil {
		d.StorageURL = *storageURL
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

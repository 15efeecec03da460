package repository

import (
	"context"
	"fmt"

	"github.com/csrental/cees/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner executes repository operations inside a single transaction.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// WithTx starts a transaction, hands transactional repositories to fn, and
// commits when fn succeeds. Any error rolls everything back.
func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&txRepos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepos struct {
	tx pgx.Tx
}

func (t *txRepos) Documents() service.DocumentRepositoryInterface {
	return NewDocumentRepositoryWithTx(t.tx)
}

func (t *txRepos) Approvals() service.ApprovalRepositoryInterface {
	return NewApprovalRepositoryWithTx(t.tx)
}

func (t *txRepos) Chunks() service.ChunkRepositoryInterface {
	return NewChunkRepositoryWithTx(t.tx)
}

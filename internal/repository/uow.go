package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UnitOfWork is an explicit transaction boundary. The lifecycle coordinator
// opens one unit of work and passes it to every sub-operation that must
// commit or roll back together; sub-operations never commit on their own.
type UnitOfWork interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager begins units of work against the persistence backend.
type TxManager interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

type pgxTxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager returns a TxManager backed by a pgx pool. The returned units
// of work hold a single pooled connection for their lifetime; Rollback after
// Commit is a no-op, so callers can defer it unconditionally.
func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgxTxManager{pool: pool}
}

func (m *pgxTxManager) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	// pgx.Tx satisfies UnitOfWork directly.
	return tx, nil
}

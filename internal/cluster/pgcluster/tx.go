package pgcluster

import (
	"context"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// Tx is an open transaction. It is a clusterha.Session that stays in a
// transaction until Commit or Rollback, so writes issued through it are
// never replayed.
type Tx struct {
	tx   pgx.Tx
	open atomic.Bool
}

func newTx(tx pgx.Tx) *Tx {
	t := &Tx{tx: tx}
	t.open.Store(true)
	return t
}

// InTransaction reports whether the transaction is still open.
func (t *Tx) InTransaction() bool {
	return t.open.Load()
}

// Exec executes a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.tx.Exec(ctx, sql, args...)
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.open.Store(false)
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	defer t.open.Store(false)
	return t.tx.Rollback(ctx)
}

var _ clusterha.Session = (*Tx)(nil)

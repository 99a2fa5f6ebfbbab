// Package store holds the transaction runners shared by the claim stores.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "photobook/pkg/domain-errors"
	txcontext "photobook/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx runs a function inside a SQL transaction carried on the context,
// so every store call made with that context joins it.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: defaultTxTimeout}
}

// RunInTx bounds the transaction with the default timeout unless ctx already
// carries a deadline.
func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return txcontext.Run(ctx, t.db, fn)
}

// MemoryTx serializes transactional sections with a coarse lock. In-memory
// writes are not rolled back on error.
type MemoryTx struct {
	mu sync.Mutex
}

func NewMemoryTx() *MemoryTx {
	return &MemoryTx{}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

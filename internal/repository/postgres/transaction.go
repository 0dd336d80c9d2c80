package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain/repositories"
)

// Txn is the handle for one transaction scope. A borrowed handle wraps
// the caller's open transaction and End is a no-op; an owned handle
// opened the transaction itself and commits or rolls back on End.
// Ownership is decided once at Begin and carried by value, so nested
// scopes can never double-commit.
type Txn struct {
	tx    pgx.Tx
	owned bool
}

// BeginTxn opens a transaction scope. When own is false and the context
// already carries a transaction, the scope borrows it; otherwise a new
// transaction is opened and owned regardless of what was requested, so
// a store method called outside any scope still runs transactionally.
// The returned context carries the transaction for every nested call.
func BeginTxn(ctx context.Context, pool *pgxpool.Pool, own bool) (context.Context, *Txn, error) {
	if !own {
		if tx := repositories.GetTx(ctx); tx != nil {
			return ctx, &Txn{tx: tx, owned: false}, nil
		}
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return repositories.SetTx(ctx, tx), &Txn{tx: tx, owned: true}, nil
}

// End closes an owned scope: commit when commit is set, else rollback.
// Rollback failures are logged and swallowed so they never mask the
// error that caused the rollback; a commit failure is returned because
// the caller's success path depends on it. Borrowed scopes do nothing.
func (t *Txn) End(ctx context.Context, commit bool) error {
	if t == nil || !t.owned {
		return nil
	}
	if commit {
		if err := t.tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	}
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		slog.Warn("rollback failed", "error", err)
	}
	return nil
}

// EndTxn is the guaranteed-cleanup step every store operation defers:
// commit on a nil body error, rollback otherwise. The body error always
// wins over a cleanup error.
func EndTxn(ctx context.Context, txn *Txn, bodyErr error) error {
	cerr := txn.End(ctx, bodyErr == nil)
	if bodyErr != nil {
		return bodyErr
	}
	return cerr
}

// TransactionManager implements repositories.TransactionManager on top
// of the scope handle.
type TransactionManager struct {
	pool *pgxpool.Pool
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(pool *pgxpool.Pool) repositories.TransactionManager {
	return &TransactionManager{pool: pool}
}

// ExecTx executes fn within a transaction scope. A scope already bound
// to the context is joined; commit and rollback then stay with the
// outer owner.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) (err error) {
	ctx, txn, err := BeginTxn(ctx, tm.pool, false)
	if err != nil {
		return err
	}
	defer func() {
		err = EndTxn(ctx, txn, err)
	}()
	return fn(ctx)
}

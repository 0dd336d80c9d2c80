package repositories

import "context"

// TxFn is a function that runs within a transaction.
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
type TransactionManager interface {
	// ExecTx executes fn inside a transaction, committing on nil
	// return and rolling back otherwise. If the context already
	// carries a transaction, fn joins it and commit/rollback stay
	// with the outer owner.
	ExecTx(ctx context.Context, fn TxFn) error
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txContextKey string

const txKey = txContextKey("tx-context-key")

// Tx is the transaction boundary handed to callers. Nested GetTx calls
// receive a handle whose Commit and Rollback are no-ops; the outermost
// caller owns the transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Transaction struct {
	tx       *sqlx.Tx
	logger   ectologger.Logger
	isClosed bool
}

func (t *Transaction) isOpen() bool {
	return !t.isClosed
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.isClosed {
		return nil
	}

	if err := t.tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction: %w", err)
	}

	t.isClosed = true
	return nil
}

func (t *Transaction) Rollback(ctx context.Context) error {
	if t.isClosed {
		return nil // already committed or rolled back
	}

	if err := t.tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction: %w", err)
	}

	t.isClosed = true
	return nil
}

// nestedTx is returned when the context already carries an open transaction.
type nestedTx struct{}

func (nestedTx) Commit(ctx context.Context) error   { return nil }
func (nestedTx) Rollback(ctx context.Context) error { return nil }

// GetTx returns the open transaction carried by ctx, or begins a new one and
// stores it in the returned context so that nested calls join it.
func GetTx(ctx context.Context, logger ectologger.Logger, db *sqlx.DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if existing, ok := txFromContext(ctx); ok && existing.isOpen() {
		return ctx, nestedTx{}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction: %w", err)
	}

	newTx := &Transaction{tx: tx, logger: logger}
	ctx = context.WithValue(ctx, txKey, newTx)
	return ctx, newTx, nil
}

func txFromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(txKey).(*Transaction)
	return tx, ok && tx != nil
}

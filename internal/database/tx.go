package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner runs a function inside a single transaction.  State transitions
// commit together or not at all; callers signal abort by returning an error.
type TxRunner struct {
	DB *sql.DB
}

// RunTx begins a transaction, runs fn and commits.  Any error from fn rolls
// the whole transaction back.
func (r TxRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

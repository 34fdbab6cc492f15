// Package service implements the transactional core of the booking
// system: the wallet ledger, the booking state machine, the deposit
// tracker, topup approval and the expiry sweeper. Services own
// transaction boundaries; repositories supply the row-level pieces
// that run inside them.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Clock abstracts wall-clock time so policies (cancellation windows,
// expiry cutoffs) can be tested against fixed instants.
type Clock func() time.Time

// withTx runs fn inside a database transaction. Any error from fn or
// from Commit rolls the whole unit back: multi-step operations are
// all-or-nothing, never partially applied.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
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

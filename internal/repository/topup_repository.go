package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quanghuy/fieldbook/internal/model"
)

// TopupRepo provides data access to the wallet_topups table. A topup
// waits in PENDING until an admin decides it; the decision methods
// run inside the caller's transaction because approval also credits
// the wallet.
type TopupRepo struct {
	db *sql.DB
}

// NewTopupRepo returns a TopupRepo bound to the given database.
func NewTopupRepo(db *sql.DB) *TopupRepo { return &TopupRepo{db: db} }

// DB exposes the underlying sql.DB for multi-repository transactions.
func (r *TopupRepo) DB() *sql.DB { return r.db }

const topupCols = `id, user_id, amount, note, status, created_at, approved_at`

func scanTopup(row interface{ Scan(...interface{}) error }) (*model.TopupRequest, error) {
	var (
		t          model.TopupRequest
		note       sql.NullString
		approvedAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount, &note, &t.Status, &t.CreatedAt, &approvedAt); err != nil {
		return nil, err
	}
	t.Note = note.String
	if approvedAt.Valid {
		at := approvedAt.Time
		t.ApprovedAt = &at
	}
	return &t, nil
}

// Create inserts a PENDING topup request.
func (r *TopupRepo) Create(ctx context.Context, t *model.TopupRequest) error {
	var note interface{}
	if t.Note != "" {
		note = t.Note
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO wallet_topups (user_id, amount, note, status, created_at)
         VALUES (?, ?, ?, ?, UTC_TIMESTAMP())`,
		t.UserID, t.Amount, note, model.TopupPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = model.TopupPending
	return nil
}

// GetPendingForUpdateTx locks a topup row that is still PENDING.
// Returns ErrAlreadyProcessed when the row exists but has reached a
// terminal state, and ErrTopupNotFound when it does not exist at all.
// The lock prevents two admins from deciding the same request.
func (r *TopupRepo) GetPendingForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.TopupRequest, error) {
	t, err := scanTopup(tx.QueryRowContext(ctx,
		`SELECT `+topupCols+` FROM wallet_topups WHERE id = ? AND status = ? FOR UPDATE`,
		id, model.TopupPending))
	if errors.Is(err, sql.ErrNoRows) {
		var n int
		if err2 := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM wallet_topups WHERE id = ?`, id).Scan(&n); err2 != nil {
			return nil, err2
		}
		if n > 0 {
			return nil, ErrAlreadyProcessed
		}
		return nil, ErrTopupNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// MarkApprovedTx flips the locked PENDING row to APPROVED and stamps
// approved_at. The wallet credit happens in the same transaction.
func (r *TopupRepo) MarkApprovedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallet_topups SET status = ?, approved_at = UTC_TIMESTAMP() WHERE id = ?`,
		model.TopupApproved, id)
	return err
}

// MarkRejectedTx flips the locked PENDING row to REJECTED, recording
// the admin's note when present. No balance changes.
func (r *TopupRepo) MarkRejectedTx(ctx context.Context, tx *sql.Tx, id uint64, note string) error {
	var n interface{}
	if note != "" {
		n = note
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE wallet_topups SET status = ?, note = COALESCE(?, note), approved_at = UTC_TIMESTAMP() WHERE id = ?`,
		model.TopupRejected, n, id)
	return err
}

// ListByUser returns the user's topup requests, newest first.
func (r *TopupRepo) ListByUser(ctx context.Context, userID uint64) ([]model.TopupRequest, error) {
	return r.queryTopups(ctx,
		`SELECT `+topupCols+` FROM wallet_topups WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// ListAll returns every topup request for the admin review screen.
func (r *TopupRepo) ListAll(ctx context.Context) ([]model.TopupRequest, error) {
	return r.queryTopups(ctx,
		`SELECT `+topupCols+` FROM wallet_topups ORDER BY created_at DESC`)
}

func (r *TopupRepo) queryTopups(ctx context.Context, q string, args ...interface{}) ([]model.TopupRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TopupRequest
	for rows.Next() {
		t, err := scanTopup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

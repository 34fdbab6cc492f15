package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quanghuy/fieldbook/internal/model"
)

// WalletRepo provides data access to the wallets and
// wallet_transactions tables. Balance movements are exposed only as
// ...Tx methods: the read-check-write cycle on a balance must happen
// inside one transaction holding the wallet row lock, and every
// movement appends a log row in the same transaction. The ledger
// service owns that orchestration; this layer supplies the pieces.
type WalletRepo struct {
	db *sql.DB
}

// NewWalletRepo returns a WalletRepo bound to the given database.
func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *WalletRepo) DB() *sql.DB { return r.db }

// Ensure creates a zero-balance wallet for the user if none exists.
// The upsert is idempotent: an existing row is left untouched.
func (r *WalletRepo) Ensure(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES (?, 0)
         ON DUPLICATE KEY UPDATE user_id = user_id`,
		userID)
	return err
}

// EnsureTx is Ensure within the caller's transaction.
func (r *WalletRepo) EnsureTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES (?, 0)
         ON DUPLICATE KEY UPDATE user_id = user_id`,
		userID)
	return err
}

// GetByUserID fetches a user's wallet. Returns ErrWalletNotFound when
// no row exists; callers wanting lazy creation should Ensure first.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Wallet, error) {
	const q = `SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ?`
	var w model.Wallet
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// BalanceForUpdateTx reads the wallet balance under SELECT ... FOR
// UPDATE, taking the row-exclusive lock that serializes concurrent
// debits and credits on the same wallet for the rest of the
// transaction. Returns ErrWalletNotFound when no wallet row exists.
func (r *WalletRepo) BalanceForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = ? FOR UPDATE`,
		userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// AddBalanceTx shifts the wallet balance by delta (negative for
// debits). The caller must already hold the row lock via
// BalanceForUpdateTx and have verified the resulting balance is
// non-negative.
func (r *WalletRepo) AddBalanceTx(ctx context.Context, tx *sql.Tx, userID uint64, delta int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + ? WHERE user_id = ?`,
		delta, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// AppendTransactionTx appends an immutable wallet_transactions row
// within the caller's transaction. Rows are never updated or deleted.
func (r *WalletRepo) AppendTransactionTx(ctx context.Context, tx *sql.Tx, t *model.WalletTransaction) error {
	var ref interface{}
	if t.ReferenceID != nil {
		ref = *t.ReferenceID
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (user_id, amount, type, reference_id, description, created_at)
         VALUES (?, ?, ?, ?, ?, UTC_TIMESTAMP())`,
		t.UserID, t.Amount, t.Type, ref, t.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// History returns the user's transaction log, most recent first. The
// log is finite and restartable: a plain query, not a live stream.
func (r *WalletRepo) History(ctx context.Context, userID uint64) ([]model.WalletTransaction, error) {
	const q = `SELECT id, user_id, amount, type, reference_id, description, created_at
               FROM wallet_transactions
               WHERE user_id = ?
               ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []model.WalletTransaction
	for rows.Next() {
		var (
			t   model.WalletTransaction
			ref sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &ref, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		if ref.Valid {
			v := uint64(ref.Int64)
			t.ReferenceID = &v
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

package service

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

// Ledger is the single point of truth for money movement. Every
// credit or debit takes the wallet row lock, verifies the resulting
// balance and appends an audit row, all in one transaction. Nothing
// else in the system writes balances.
type Ledger struct {
	db      *sql.DB
	wallets *repository.WalletRepo
	log     *logrus.Logger
}

// NewLedger constructs a Ledger over the wallet repository.
func NewLedger(wallets *repository.WalletRepo, log *logrus.Logger) *Ledger {
	return &Ledger{db: wallets.DB(), wallets: wallets, log: log}
}

// CreditTx increases the user's balance inside the caller's
// transaction. The wallet is created lazily when missing. Fails with
// ErrInvalidAmount before any write when amount <= 0.
func (l *Ledger) CreditTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64, kind string, refID *uint64, desc string) error {
	if amount <= 0 {
		return repository.ErrInvalidAmount
	}
	if err := l.wallets.EnsureTx(ctx, tx, userID); err != nil {
		return err
	}
	if _, err := l.wallets.BalanceForUpdateTx(ctx, tx, userID); err != nil {
		return err
	}
	if err := l.wallets.AddBalanceTx(ctx, tx, userID, amount); err != nil {
		return err
	}
	return l.wallets.AppendTransactionTx(ctx, tx, &model.WalletTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        kind,
		ReferenceID: refID,
		Description: desc,
	})
}

// DebitTx decreases the user's balance inside the caller's
// transaction. The balance check and the write happen under the
// wallet row lock, so two concurrent debits on the same wallet
// serialize instead of losing an update. Fails with
// ErrInsufficientBalance when the wallet cannot cover the amount;
// the transaction then carries no partial effect.
func (l *Ledger) DebitTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64, kind string, refID *uint64, desc string) error {
	if amount <= 0 {
		return repository.ErrInvalidAmount
	}
	if err := l.wallets.EnsureTx(ctx, tx, userID); err != nil {
		return err
	}
	balance, err := l.wallets.BalanceForUpdateTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	if balance < amount {
		return repository.ErrInsufficientBalance
	}
	if err := l.wallets.AddBalanceTx(ctx, tx, userID, -amount); err != nil {
		return err
	}
	return l.wallets.AppendTransactionTx(ctx, tx, &model.WalletTransaction{
		UserID:      userID,
		Amount:      -amount,
		Type:        kind,
		ReferenceID: refID,
		Description: desc,
	})
}

// Credit is CreditTx wrapped in its own transaction, for callers that
// move money outside a larger unit (admin adjustments).
func (l *Ledger) Credit(ctx context.Context, userID uint64, amount int64, kind string, refID *uint64, desc string) error {
	return withTx(ctx, l.db, func(tx *sql.Tx) error {
		return l.CreditTx(ctx, tx, userID, amount, kind, refID, desc)
	})
}

// Debit is DebitTx wrapped in its own transaction.
func (l *Ledger) Debit(ctx context.Context, userID uint64, amount int64, kind string, refID *uint64, desc string) error {
	return withTx(ctx, l.db, func(tx *sql.Tx) error {
		return l.DebitTx(ctx, tx, userID, amount, kind, refID, desc)
	})
}

// GetBalance returns the user's balance, creating a zero-balance
// wallet first when none exists yet.
func (l *Ledger) GetBalance(ctx context.Context, userID uint64) (int64, error) {
	if err := l.wallets.Ensure(ctx, userID); err != nil {
		return 0, err
	}
	w, err := l.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// History returns the user's transaction log, most recent first.
func (l *Ledger) History(ctx context.Context, userID uint64) ([]model.WalletTransaction, error) {
	return l.wallets.History(ctx, userID)
}

package service

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

// TopupService handles manual wallet top-up requests: users file
// them, admins approve or reject. Approval credits the wallet exactly
// once; the FOR UPDATE lock on the pending row makes a second
// approve/reject of the same request fail with ErrAlreadyProcessed.
type TopupService struct {
	db     *sql.DB
	topups *repository.TopupRepo
	ledger *Ledger
	log    *logrus.Logger
}

func NewTopupService(topups *repository.TopupRepo, ledger *Ledger, log *logrus.Logger) *TopupService {
	return &TopupService{db: topups.DB(), topups: topups, ledger: ledger, log: log}
}

// Create files a new pending top-up request.
func (s *TopupService) Create(ctx context.Context, userID uint64, amount int64, note string) (*model.TopupRequest, error) {
	if amount <= 0 {
		return nil, repository.ErrInvalidAmount
	}
	t := &model.TopupRequest{UserID: userID, Amount: amount, Note: note, Status: model.TopupPending}
	if err := s.topups.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Approve locks the pending request, marks it APPROVED and credits
// the requester's wallet with a TOPUP ledger entry, all in one
// transaction.
func (s *TopupService) Approve(ctx context.Context, topupID uint64) error {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.topups.GetPendingForUpdateTx(ctx, tx, topupID)
		if err != nil {
			return err
		}
		if err := s.topups.MarkApprovedTx(ctx, tx, topupID); err != nil {
			return err
		}
		ref := t.ID
		return s.ledger.CreditTx(ctx, tx, t.UserID, t.Amount, model.TxTypeTopup, &ref, "Wallet top-up approved")
	})
	if err != nil {
		return err
	}
	s.log.WithField("topup_id", topupID).Info("top-up approved")
	return nil
}

// Reject marks the request REJECTED without moving money. A
// zero-amount TOPUP_REJECT entry is appended so the decision shows up
// in the requester's transaction history.
func (s *TopupService) Reject(ctx context.Context, topupID uint64, note string) error {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.topups.GetPendingForUpdateTx(ctx, tx, topupID)
		if err != nil {
			return err
		}
		if err := s.topups.MarkRejectedTx(ctx, tx, topupID, note); err != nil {
			return err
		}
		ref := t.ID
		if err := s.ledger.wallets.EnsureTx(ctx, tx, t.UserID); err != nil {
			return err
		}
		return s.ledger.wallets.AppendTransactionTx(ctx, tx, &model.WalletTransaction{
			UserID:      t.UserID,
			Amount:      0,
			Type:        model.TxTypeTopupReject,
			ReferenceID: &ref,
			Description: "Top-up request rejected",
		})
	})
	if err != nil {
		return err
	}
	s.log.WithField("topup_id", topupID).Info("top-up rejected")
	return nil
}

// ListByUser returns the user's own requests, newest first.
func (s *TopupService) ListByUser(ctx context.Context, userID uint64) ([]model.TopupRequest, error) {
	return s.topups.ListByUser(ctx, userID)
}

// ListAll returns every request for the admin review screen.
func (s *TopupService) ListAll(ctx context.Context) ([]model.TopupRequest, error) {
	return s.topups.ListAll(ctx)
}

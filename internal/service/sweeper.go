package service

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

// Sweeper cancels pending bookings whose hold has expired and
// refunds their deposits. It reuses the same refund path as a manual
// cancellation, so a booking swept here and one cancelled by hand end
// up in the same state.
type Sweeper struct {
	db       *sql.DB
	bookings *repository.BookingRepo
	ledger   *Ledger
	ttl      time.Duration
	interval time.Duration
	now      Clock
	running  atomic.Bool
	log      *logrus.Logger
}

func NewSweeper(bookings *repository.BookingRepo, ledger *Ledger, ttl, interval time.Duration, now Clock, log *logrus.Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		db:       bookings.DB(),
		bookings: bookings,
		ledger:   ledger,
		ttl:      ttl,
		interval: interval,
		now:      now,
		log:      log,
	}
}

// RunOnce performs a single sweep in one transaction: expired pending
// bookings are selected FOR UPDATE, each wallet-paid one gets its
// deposit credited back and its status flipped, and the batch commits
// together. A concurrent manual cancel blocks on the row lock and
// then sees a non-pending row, so no booking is refunded twice.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.ttl)
	swept := 0
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		expired, err := s.bookings.ExpiredPendingForUpdateTx(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		for i := range expired {
			b := &expired[i]
			if b.Deposit > 0 && b.PaymentStatus == model.PaymentStatusPaid {
				ref := b.ID
				if err := s.ledger.CreditTx(ctx, tx, b.UserID, b.Deposit, model.TxTypeRefund, &ref, "Refund for expired booking"); err != nil {
					return err
				}
				if err := s.bookings.MarkCancelledRefundedTx(ctx, tx, b.ID); err != nil {
					return err
				}
			} else {
				if err := s.bookings.MarkCancelledTx(ctx, tx, b.ID); err != nil {
					return err
				}
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.log.WithField("count", swept).Info("expired pending bookings cancelled")
	}
	return swept, nil
}

// Start runs the sweep loop until ctx is cancelled. Ticks that
// arrive while a previous sweep is still in flight are skipped.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.running.CompareAndSwap(false, true) {
				continue
			}
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.WithError(err).Error("booking sweep failed")
			}
			s.running.Store(false)
		}
	}
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/queue"
	"github.com/quanghuy/fieldbook/internal/repository"
)

// BookingPolicy carries the configurable booking rules. The reference
// time zone is explicit so the cancellation-eligibility predicate can
// be evaluated against injected clocks in tests instead of an
// implicit environment default.
type BookingPolicy struct {
	MinHours     int            // shortest bookable duration
	MaxHours     int            // longest bookable duration
	OpenTime     string         // earliest slot start, "15:04:05" form
	CloseTime    string         // latest slot end, "15:04:05" form
	CancelWindow time.Duration  // how long after creation a user may cancel
	Location     *time.Location // zone the eligibility rules are written in
}

// BookingService owns the booking lifecycle state machine
// (pending → confirmed/cancelled) composed on top of the Ledger and
// the slot-conflict check. Slot check, wallet debit and booking
// insert commit as one atomic unit; cancellations refund and flip
// status under the booking row lock.
type BookingService struct {
	db       *sql.DB
	bookings *repository.BookingRepo
	fields   *repository.FieldRepo
	ledger   *Ledger
	events   *queue.Publisher
	policy   BookingPolicy
	now      Clock
	log      *logrus.Logger
}

// NewBookingService wires the state machine. events may be nil when
// no broker is configured; now defaults to time.Now.
func NewBookingService(bookings *repository.BookingRepo, fields *repository.FieldRepo, ledger *Ledger, events *queue.Publisher, policy BookingPolicy, now Clock, log *logrus.Logger) *BookingService {
	if now == nil {
		now = time.Now
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.OpenTime == "" {
		policy.OpenTime = "06:00:00"
	}
	if policy.CloseTime == "" {
		policy.CloseTime = "23:00:00"
	}
	return &BookingService{
		db:       bookings.DB(),
		bookings: bookings,
		fields:   fields,
		ledger:   ledger,
		events:   events,
		policy:   policy,
		now:      now,
		log:      log,
	}
}

// slotDuration parses the "15:04:05" slot bounds and returns the
// span in hours. End must lie strictly after start on the same day.
func slotDuration(start, end string) (float64, error) {
	st, err := time.Parse("15:04:05", start)
	if err != nil {
		return 0, repository.ErrInvalidDuration
	}
	en, err := time.Parse("15:04:05", end)
	if err != nil {
		return 0, repository.ErrInvalidDuration
	}
	d := en.Sub(st)
	if d <= 0 {
		return 0, repository.ErrInvalidDuration
	}
	return d.Hours(), nil
}

// Quote computes the price of a slot on a field without booking it:
// duration hours × price per hour. Fails with ErrOutsideOpenHours or
// ErrInvalidDuration before any price is exposed.
func (s *BookingService) Quote(ctx context.Context, fieldID uint64, start, end string) (int64, error) {
	field, err := s.fields.GetByID(ctx, fieldID)
	if err != nil {
		return 0, err
	}
	return s.price(field, start, end)
}

func (s *BookingService) price(field *model.Field, start, end string) (int64, error) {
	hours, err := slotDuration(start, end)
	if err != nil {
		return 0, err
	}
	// zero-padded HH:MM:SS compares correctly as strings
	if start < s.policy.OpenTime || end > s.policy.CloseTime {
		return 0, repository.ErrOutsideOpenHours
	}
	if hours < float64(s.policy.MinHours) || hours > float64(s.policy.MaxHours) {
		return 0, repository.ErrInvalidDuration
	}
	return int64(math.Round(hours * float64(field.PricePerHour))), nil
}

// IsAvailable reports whether the requested range is free of
// conflicting pending/confirmed bookings. The same predicate runs
// inside Create; this entry point serves standalone UI checks.
func (s *BookingService) IsAvailable(ctx context.Context, fieldID uint64, date, start, end string, excludeID *uint64) (bool, error) {
	taken, err := s.bookings.SlotTaken(ctx, fieldID, date, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Create books a field slot. The payment method picks the settlement
// flow: wallet bookings debit the full price inside the same
// transaction as the insert, gateway bookings insert unpaid and are
// settled later through the deposit checkout. Either way the conflict
// check and the insert commit as one unit, so a failed debit leaves
// no booking behind and a conflicting concurrent request observes the
// pending row and fails with ErrSlotTaken. An empty method defaults
// to wallet; anything else unknown fails with ErrWrongPaymentFlow.
func (s *BookingService) Create(ctx context.Context, userID, fieldID uint64, date, start, end, method string) (*model.Booking, error) {
	if method == "" {
		method = model.PayMethodWallet
	}
	if method != model.PayMethodWallet && method != model.PayMethodGateway {
		return nil, repository.ErrWrongPaymentFlow
	}
	field, err := s.fields.GetByID(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if field.Status != model.FieldAvailable {
		return nil, repository.ErrFieldUnavailable
	}
	price, err := s.price(field, start, end)
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		UserID:        userID,
		FieldID:       fieldID,
		BookingDate:   date,
		StartTime:     start,
		EndTime:       end,
		TotalPrice:    price,
		Status:        model.BookingPending,
		PaymentMethod: method,
		PaymentStatus: model.PaymentStatusPending,
	}
	if method == model.PayMethodWallet {
		b.Deposit = price
		b.PaymentStatus = model.PaymentStatusPaid
	}
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		taken, err := s.bookings.SlotTakenTx(ctx, tx, fieldID, date, start, end, nil)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrSlotTaken
		}
		if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
			return err
		}
		if method != model.PayMethodWallet {
			return nil
		}
		ref := b.ID
		return s.ledger.DebitTx(ctx, tx, userID, price, model.TxTypeBooking, &ref, "Field booking payment")
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, queue.EventBookingCreated, b, false)
	return b, nil
}

// Confirm performs the admin-only pending→confirmed transition and
// stamps the confirmation time. No money moves. Fails with
// ErrBookingNotFound when missing and ErrInvalidTransition when the
// booking is not pending.
func (s *BookingService) Confirm(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	var confirmed *model.Booking
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return repository.ErrInvalidTransition
		}
		if err := s.bookings.MarkConfirmedTx(ctx, tx, bookingID); err != nil {
			return err
		}
		now := s.now().UTC()
		b.Status = model.BookingConfirmed
		b.ConfirmedAt = &now
		confirmed = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventBookingConfirmed, confirmed, false)
	return confirmed, nil
}

// Cancel flips a booking to cancelled without any ledger activity.
// Only the deposit flow uses it; wallet-paid bookings go through
// CancelWithRefund.
func (s *BookingService) Cancel(ctx context.Context, bookingID uint64) error {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == model.BookingCancelled {
			return repository.ErrAlreadyCancelled
		}
		return s.bookings.MarkCancelledTx(ctx, tx, bookingID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, queue.EventBookingCancelled, &model.Booking{ID: bookingID, Status: model.BookingCancelled}, false)
	return nil
}

// CancelWithRefund is the canonical cancellation path. Under the
// booking row lock: a second cancel fails with ErrAlreadyCancelled;
// a paid deposit is credited back exactly once (REFUND entry keyed to
// the booking); status and payment_status flip in the same
// transaction. When nothing is refundable only the status changes.
func (s *BookingService) CancelWithRefund(ctx context.Context, bookingID uint64) error {
	refunded := false
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == model.BookingCancelled {
			return repository.ErrAlreadyCancelled
		}
		if b.Deposit > 0 && b.PaymentStatus == model.PaymentStatusPaid {
			ref := b.ID
			if err := s.ledger.CreditTx(ctx, tx, b.UserID, b.Deposit, model.TxTypeRefund, &ref, "Refund for cancelled booking"); err != nil {
				return err
			}
			refunded = true
			return s.bookings.MarkCancelledRefundedTx(ctx, tx, bookingID)
		}
		return s.bookings.MarkCancelledTx(ctx, tx, bookingID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, queue.EventBookingCancelled, &model.Booking{ID: bookingID, Status: model.BookingCancelled}, refunded)
	return nil
}

// Get fetches one booking.
func (s *BookingService) Get(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

// CanCancel is the pure cancellation-eligibility predicate, evaluated
// before the state machine runs. An admin may cancel any
// non-cancelled booking. A regular user may cancel only their own
// pending booking, within the cancel window after creation and only
// while the scheduled start still lies in the future. All wall-clock
// comparisons happen in the policy's time zone.
func (s *BookingService) CanCancel(b *model.Booking, u *model.User) bool {
	if b == nil || u == nil || b.Status == model.BookingCancelled {
		return false
	}
	if u.Role == model.RoleAdmin {
		return true
	}
	if b.UserID != u.ID || b.Status != model.BookingPending {
		return false
	}
	now := s.now().In(s.policy.Location)
	if now.Sub(b.CreatedAt) > s.policy.CancelWindow {
		return false
	}
	startAt, err := time.ParseInLocation("2006-01-02 15:04:05",
		fmt.Sprintf("%s %s", b.BookingDate, b.StartTime), s.policy.Location)
	if err != nil {
		return false
	}
	return now.Before(startAt)
}

func (s *BookingService) publish(ctx context.Context, event string, b *model.Booking, refunded bool) {
	if s.events == nil || b == nil {
		return
	}
	ev := queue.BookingEvent{
		Event:       event,
		BookingID:   b.ID,
		UserID:      b.UserID,
		FieldID:     b.FieldID,
		BookingDate: b.BookingDate,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		TotalPrice:  b.TotalPrice,
		Status:      b.Status,
		Refunded:    refunded,
		OccurredAt:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("booking event publish failed")
	}
}

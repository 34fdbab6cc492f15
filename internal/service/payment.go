package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

// depositRate is the share of the total price collected up front for
// gateway-paid bookings.
const depositRate = 0.30

// CheckoutGateway creates an external payment and returns the URL the
// user completes it at.
type CheckoutGateway interface {
	CreateQR(ctx context.Context, amount int64, orderID string) (string, error)
}

// DepositQR is what CreateDeposit hands back to the caller.
type DepositQR struct {
	PaymentID     uint64 `json:"payment_id"`
	DepositAmount int64  `json:"deposit_amount"`
	OrderID       string `json:"order_id"`
	PayURL        string `json:"pay_url"`
}

// PaymentService tracks gateway deposits: it creates the payment
// intent, records the provider callback and resolves the deposit
// (refund or forfeit) when the booking is cancelled.
type PaymentService struct {
	payments *repository.PaymentRepo
	bookings *BookingService
	gateway  CheckoutGateway
	log      *logrus.Logger
}

func NewPaymentService(payments *repository.PaymentRepo, bookings *BookingService, gateway CheckoutGateway, log *logrus.Logger) *PaymentService {
	return &PaymentService{payments: payments, bookings: bookings, gateway: gateway, log: log}
}

// CreateDeposit opens a gateway checkout for 30% of the booking
// price. Only bookings created for gateway payment qualify; a
// wallet-paid booking already settled through the ledger and is
// rejected with ErrWrongPaymentFlow. The order id carries the booking
// id plus a random suffix so retried checkouts never collide.
// Confirmed bookings are rejected with ErrAlreadyConfirmed.
func (s *PaymentService) CreateDeposit(ctx context.Context, userID, bookingID uint64) (*DepositQR, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, repository.ErrBookingNotFound
	}
	if b.PaymentMethod != model.PayMethodGateway {
		return nil, repository.ErrWrongPaymentFlow
	}
	if b.ConfirmedAt != nil {
		return nil, repository.ErrAlreadyConfirmed
	}

	deposit := int64(math.Round(float64(b.TotalPrice) * depositRate))
	orderID := fmt.Sprintf("ORDER_%d_%s", bookingID, uuid.NewString())

	payURL, err := s.gateway.CreateQR(ctx, deposit, orderID)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{
		BookingID:     bookingID,
		Amount:        b.TotalPrice,
		DepositAmount: deposit,
		PaymentMethod: model.PayMethodGateway,
		TransactionID: orderID,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"booking_id": bookingID, "order_id": orderID}).Info("deposit checkout created")
	return &DepositQR{PaymentID: p.ID, DepositAmount: deposit, OrderID: orderID, PayURL: payURL}, nil
}

// HandleGatewayCallback records the provider's IPN. An unknown order
// id and a non-zero result code are both acknowledged without state
// change, and the status guard in MarkDepositPaid makes replayed
// success callbacks no-ops.
func (s *PaymentService) HandleGatewayCallback(ctx context.Context, orderID string, resultCode int) error {
	p, err := s.payments.GetByTransactionID(ctx, orderID)
	if err != nil {
		if err == repository.ErrPaymentNotFound {
			s.log.WithField("order_id", orderID).Warn("callback for unknown order")
			return nil
		}
		return err
	}
	if resultCode != 0 {
		s.log.WithFields(logrus.Fields{"order_id": orderID, "result_code": resultCode}).Info("gateway reported failure")
		return nil
	}
	if err := s.payments.MarkDepositPaid(ctx, p.ID); err != nil {
		return err
	}
	s.log.WithField("order_id", orderID).Info("deposit paid")
	return nil
}

// ConfirmBooking is the admin step after a deposit settles: it runs
// the pending→confirmed transition on the payment's booking and then
// forces the payment itself to completed. The second step covers
// deposits whose success callback never arrived, so a later
// cancellation can still resolve the deposit instead of tripping the
// status guard.
func (s *PaymentService) ConfirmBooking(ctx context.Context, paymentID uint64) error {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if _, err := s.bookings.Confirm(ctx, p.BookingID); err != nil {
		return err
	}
	return s.payments.MarkCompleted(ctx, p.ID)
}

// ResolveOnCancel settles a gateway deposit when its booking is
// cancelled. A confirmed booking forfeits the deposit; an unconfirmed
// one gets it marked refunded. Either way the booking flips to
// cancelled without any wallet movement, since the deposit money
// lives at the provider, not in the ledger. Wallet-paid bookings must
// cancel through the refunding path instead and are rejected with
// ErrWrongPaymentFlow.
func (s *PaymentService) ResolveOnCancel(ctx context.Context, userID, bookingID uint64) (forfeited bool, err error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if b.UserID != userID {
		return false, repository.ErrBookingNotFound
	}
	if b.PaymentMethod != model.PayMethodGateway {
		return false, repository.ErrWrongPaymentFlow
	}
	p, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if p.Status != model.DepositCompleted {
		return false, repository.ErrInvalidTransition
	}

	if b.ConfirmedAt != nil {
		if err := s.payments.Forfeit(ctx, p.ID); err != nil {
			return false, err
		}
		forfeited = true
	} else {
		if err := s.payments.Refund(ctx, p.ID); err != nil {
			return false, err
		}
	}
	if err := s.bookings.Cancel(ctx, bookingID); err != nil {
		return forfeited, err
	}
	return forfeited, nil
}

// ListByUser returns the user's payment history.
func (s *PaymentService) ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

// ListAll returns every payment for the admin screen.
func (s *PaymentService) ListAll(ctx context.Context) ([]model.Payment, error) {
	return s.payments.ListAll(ctx)
}

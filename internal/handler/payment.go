package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quanghuy/fieldbook/internal/service"
)

// PaymentHandler serves the gateway deposit flow: QR creation, the
// provider webhook and the cancel-with-deposit resolution.
type PaymentHandler struct {
	Payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments}
}

type createQRReq struct {
	BookingID uint64 `json:"booking_id"`
}

// CreateQR opens a gateway checkout for the 30% deposit.
func (h *PaymentHandler) CreateQR(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createQRReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
	}
	qr, err := h.Payments.CreateDeposit(c.Request().Context(), uid, req.BookingID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, qr)
}

type webhookReq struct {
	OrderID    string `json:"orderId"`
	ResultCode int    `json:"resultCode"`
}

// Webhook receives the gateway IPN. It always acknowledges so the
// provider stops retrying; replays and unknown orders are no-ops.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var req webhookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Payments.HandleGatewayCallback(c.Request().Context(), req.OrderID, req.ResultCode); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "webhook processed"})
}

// Confirm runs the admin confirmation of the payment's booking.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Payments.ConfirmBooking(c.Request().Context(), id); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking confirmed"})
}

// CancelBooking cancels a deposit-paid booking. Confirmed bookings
// forfeit the deposit; unconfirmed ones get it back.
func (h *PaymentHandler) CancelBooking(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "booking_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	forfeited, err := h.Payments.ResolveOnCancel(c.Request().Context(), uid, id)
	if err != nil {
		return jsonError(c, err)
	}
	msg := "booking cancelled, deposit refunded"
	if forfeited {
		msg = "booking cancelled, deposit forfeited"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// MyPayments lists the caller's payments.
func (h *PaymentHandler) MyPayments(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Payments.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": list})
}

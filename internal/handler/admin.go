package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
	"github.com/quanghuy/fieldbook/internal/service"
)

// AdminHandler groups the admin-only operations: booking oversight,
// top-up review, payment listing, user management and statistics.
type AdminHandler struct {
	Bookings *service.BookingService
	Repo     *repository.BookingRepo
	Topups   *service.TopupService
	Payments *service.PaymentService
	Ledger   *service.Ledger
	Users    *repository.UserRepo
}

func NewAdminHandler(bookings *service.BookingService, repo *repository.BookingRepo, topups *service.TopupService, payments *service.PaymentService, ledger *service.Ledger, users *repository.UserRepo) *AdminHandler {
	return &AdminHandler{Bookings: bookings, Repo: repo, Topups: topups, Payments: payments, Ledger: ledger, Users: users}
}

// ListBookings returns every booking, paginated.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	page, limit := pageParams(c)
	list, total, err := h.Repo.ListAll(c.Request().Context(), page, limit)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list, "total": total, "page": page, "limit": limit})
}

type bookingStatusReq struct {
	Status string `json:"status"`
}

// UpdateBookingStatus drives the state machine by hand: confirm a
// pending booking or cancel one with a refund.
func (h *AdminHandler) UpdateBookingStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req bookingStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	switch strings.ToLower(req.Status) {
	case model.BookingConfirmed:
		b, err := h.Bookings.Confirm(ctx, id)
		if err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, b)
	case model.BookingCancelled:
		if err := h.Bookings.CancelWithRefund(ctx, id); err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be confirmed or cancelled"})
	}
}

// ListTopups returns all top-up requests.
func (h *AdminHandler) ListTopups(c echo.Context) error {
	list, err := h.Topups.ListAll(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"topups": list})
}

type topupDecisionReq struct {
	Action string `json:"action"` // approve | reject
	Note   string `json:"note"`
}

// DecideTopup approves or rejects a pending top-up request.
func (h *AdminHandler) DecideTopup(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req topupDecisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	switch strings.ToLower(req.Action) {
	case "approve":
		if err := h.Topups.Approve(ctx, id); err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "top-up approved"})
	case "reject":
		if err := h.Topups.Reject(ctx, id, req.Note); err != nil {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "top-up rejected"})
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action must be approve or reject"})
	}
}

// ListPayments returns every gateway payment.
func (h *AdminHandler) ListPayments(c echo.Context) error {
	list, err := h.Payments.ListAll(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": list})
}

// ListUsers pages through the user table.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, limit := pageParams(c)
	list, err := h.Users.List(c.Request().Context(), page, limit)
	if err != nil {
		return jsonError(c, err)
	}
	out := make([]userPart, 0, len(list))
	for _, u := range list {
		out = append(out, userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "page": page, "limit": limit})
}

type walletAdjustReq struct {
	Amount int64  `json:"amount"` // positive credits, negative debits
	Reason string `json:"reason"`
}

// AdjustWallet moves balance on a user's wallet by hand, leaving a
// ledger entry either way.
func (h *AdminHandler) AdjustWallet(c echo.Context) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req walletAdjustReq
	if err := c.Bind(&req); err != nil || req.Amount == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "non-zero amount required"})
	}
	reason := req.Reason
	if reason == "" {
		reason = "Manual adjustment"
	}
	ctx := c.Request().Context()
	if req.Amount > 0 {
		err = h.Ledger.Credit(ctx, userID, req.Amount, model.TxTypeCredit, nil, reason)
	} else {
		err = h.Ledger.Debit(ctx, userID, -req.Amount, model.TxTypeDebit, nil, reason)
	}
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "wallet adjusted"})
}

// Statistics returns the aggregate booking and revenue counters for
// the dashboard.
func (h *AdminHandler) Statistics(c echo.Context) error {
	stats, err := h.Repo.Statistics(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

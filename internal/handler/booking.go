package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
	"github.com/quanghuy/fieldbook/internal/service"
)

// BookingHandler exposes the booking lifecycle to customers.
type BookingHandler struct {
	Bookings *service.BookingService
	Repo     *repository.BookingRepo
	Users    *repository.UserRepo
}

func NewBookingHandler(bookings *service.BookingService, repo *repository.BookingRepo, users *repository.UserRepo) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Repo: repo, Users: users}
}

type createBookingReq struct {
	FieldID       uint64 `json:"field_id"`
	BookingDate   string `json:"booking_date"` // 2006-01-02
	StartTime     string `json:"start_time"`   // 15:04:05
	EndTime       string `json:"end_time"`
	PaymentMethod string `json:"payment_method"` // wallet (default) or momo
}

// Create books a slot. payment_method selects how it is settled:
// "wallet" debits the full price atomically with the insert, "momo"
// creates an unpaid booking to be settled through the deposit
// checkout. A conflict or an insufficient balance leaves nothing
// behind.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.FieldID == 0 || req.BookingDate == "" || req.StartTime == "" || req.EndTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "field_id, booking_date, start_time and end_time required"})
	}
	b, err := h.Bookings.Create(c.Request().Context(), uid, req.FieldID, req.BookingDate, req.StartTime, req.EndTime, req.PaymentMethod)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

type bookingView struct {
	repository.BookingWithField
	CanCancel bool `json:"can_cancel"`
}

// ListMine returns the caller's bookings with field details and a
// per-row cancellation-eligibility flag.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, limit := pageParams(c)
	ctx := c.Request().Context()
	list, total, err := h.Repo.ListByUser(ctx, uid, page, limit)
	if err != nil {
		return jsonError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	views := make([]bookingView, 0, len(list))
	for i := range list {
		views = append(views, bookingView{
			BookingWithField: list[i],
			CanCancel:        h.Bookings.CanCancel(&list[i].Booking, &u),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": views, "total": total, "page": page, "limit": limit})
}

// Get fetches one booking. Regular users only see their own.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	b, err := h.Bookings.Get(c.Request().Context(), id)
	if err != nil {
		return jsonError(c, err)
	}
	if b.UserID != uid && currentRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel applies the cancellation rules and refunds the wallet
// deposit when eligible. Admins may cancel any non-cancelled
// booking; users only their own pending ones inside the window.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	b, err := h.Bookings.Get(ctx, id)
	if err != nil {
		return jsonError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !h.Bookings.CanCancel(b, &u) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "booking cannot be cancelled"})
	}
	if err := h.Bookings.CancelWithRefund(ctx, id); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
}

type availabilityResp struct {
	Available bool  `json:"available"`
	Quote     int64 `json:"quote,omitempty"`
}

// CheckAvailability answers whether a slot is free and quotes its
// price. Public endpoint.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	fieldID, err := pathQueryID(c, "field_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "field_id required"})
	}
	date := c.QueryParam("date")
	start := c.QueryParam("start_time")
	end := c.QueryParam("end_time")
	if date == "" || start == "" || end == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date, start_time and end_time required"})
	}
	ctx := c.Request().Context()
	free, err := h.Bookings.IsAvailable(ctx, fieldID, date, start, end, nil)
	if err != nil {
		return jsonError(c, err)
	}
	resp := availabilityResp{Available: free}
	if free {
		if quote, err := h.Bookings.Quote(ctx, fieldID, start, end); err == nil {
			resp.Quote = quote
		}
	}
	return c.JSON(http.StatusOK, resp)
}

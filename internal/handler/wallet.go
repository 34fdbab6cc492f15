package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quanghuy/fieldbook/internal/service"
)

// WalletHandler exposes the balance, the transaction history and the
// top-up request flow.
type WalletHandler struct {
	Ledger *service.Ledger
	Topups *service.TopupService
}

func NewWalletHandler(ledger *service.Ledger, topups *service.TopupService) *WalletHandler {
	return &WalletHandler{Ledger: ledger, Topups: topups}
}

// Balance returns the current wallet balance, creating the wallet on
// first access.
func (h *WalletHandler) Balance(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	balance, err := h.Ledger.GetBalance(c.Request().Context(), uid)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": balance})
}

// History returns the wallet ledger entries, newest first.
func (h *WalletHandler) History(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	txns, err := h.Ledger.History(c.Request().Context(), uid)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txns})
}

type topupReq struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// CreateTopup files a pending top-up request for admin review.
func (h *WalletHandler) CreateTopup(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req topupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	t, err := h.Topups.Create(c.Request().Context(), uid, req.Amount, req.Note)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// MyTopups lists the caller's own top-up requests.
func (h *WalletHandler) MyTopups(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Topups.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"topups": list})
}

// Package handler contains the HTTP endpoints. Handlers stay thin:
// they bind and validate input, call a service or repository and map
// domain errors to status codes.
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quanghuy/fieldbook/internal/repository"
)

// currentUserID reads the authenticated user id placed in context by
// the JWT middleware. Numeric JWT claims decode as float64.
func currentUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func currentRole(c echo.Context) string {
	if s, ok := c.Get("role").(string); ok {
		return s
	}
	return ""
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

func pathQueryID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.QueryParam(name), 10, 64)
}

func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// domainStatus maps repository sentinels to HTTP status codes so all
// handlers answer consistently.
func domainStatus(err error) int {
	switch err {
	case repository.ErrBookingNotFound, repository.ErrFieldNotFound,
		repository.ErrWalletNotFound, repository.ErrPaymentNotFound,
		repository.ErrTopupNotFound:
		return http.StatusNotFound
	case repository.ErrSlotTaken, repository.ErrAlreadyCancelled,
		repository.ErrAlreadyConfirmed, repository.ErrAlreadyProcessed,
		repository.ErrConflict:
		return http.StatusConflict
	case repository.ErrInsufficientBalance:
		return http.StatusPaymentRequired
	case repository.ErrInvalidAmount, repository.ErrInvalidDuration,
		repository.ErrOutsideOpenHours, repository.ErrFieldUnavailable,
		repository.ErrInvalidTransition, repository.ErrWrongPaymentFlow:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(c echo.Context, err error) error {
	status := domainStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg})
}

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quanghuy/fieldbook/internal/model"
	"github.com/quanghuy/fieldbook/internal/repository"
)

// FieldHandler serves the public field catalogue and the admin CRUD.
type FieldHandler struct {
	Fields *repository.FieldRepo
}

func NewFieldHandler(fields *repository.FieldRepo) *FieldHandler {
	return &FieldHandler{Fields: fields}
}

// List returns fields, optionally filtered by status.
func (h *FieldHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	list, err := h.Fields.List(c.Request().Context(), status)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"fields": list})
}

// Get fetches one field.
func (h *FieldHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	f, err := h.Fields.GetByID(c.Request().Context(), id)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

type fieldReq struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Location     string `json:"location"`
	PricePerHour int64  `json:"price_per_hour"`
	Status       string `json:"status"`
}

func (r *fieldReq) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "name required"
	}
	if r.PricePerHour <= 0 {
		return "price_per_hour must be positive"
	}
	if r.Status != "" && r.Status != model.FieldAvailable && r.Status != model.FieldMaintenance {
		return "invalid status"
	}
	return ""
}

// Create adds a field (admin).
func (h *FieldHandler) Create(c echo.Context) error {
	var req fieldReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if req.Status == "" {
		req.Status = model.FieldAvailable
	}
	f := &model.Field{
		Name:         strings.TrimSpace(req.Name),
		Type:         req.Type,
		Location:     req.Location,
		PricePerHour: req.PricePerHour,
		Status:       req.Status,
	}
	if err := h.Fields.Create(c.Request().Context(), f); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

// Update rewrites a field's attributes (admin).
func (h *FieldHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req fieldReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	f, err := h.Fields.GetByID(ctx, id)
	if err != nil {
		return jsonError(c, err)
	}
	f.Name = strings.TrimSpace(req.Name)
	f.Type = req.Type
	f.Location = req.Location
	f.PricePerHour = req.PricePerHour
	if req.Status != "" {
		f.Status = req.Status
	}
	if err := h.Fields.Update(ctx, f); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// Delete removes a field unless it still has active bookings (admin).
func (h *FieldHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Fields.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "field has active bookings"})
		}
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

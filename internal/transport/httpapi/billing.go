package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

// CycleStatus handles GET /patients/:id/cycle.
func (h *Handler) CycleStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	st, err := h.svc.Billing.CycleStatus(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) SetupPackage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body service.PackageRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	rec, err := h.svc.Billing.SetupPackage(c.Request().Context(), id, body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) SettleAllowance(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.Billing.SettleAllowance(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type paymentBody struct {
	// Amount in minor units.
	Amount model.Money `json:"amount"`
}

// RecordPayment handles POST /billing/:id/payments.
func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body paymentBody
	if err := bind(c, &body); err != nil {
		return err
	}
	rec, err := h.svc.Billing.RecordPayment(c.Request().Context(), id, body.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Reconcile handles POST /admin/reconcile.
func (h *Handler) Reconcile(c echo.Context) error {
	if h.svc.Reconcile == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "reconciliation is not enabled")
	}
	report, err := h.svc.Reconcile(c.Request().Context())
	if err != nil {
		return err
	}
	if report == nil {
		return echo.NewHTTPError(http.StatusConflict, "reconciliation already running")
	}
	return c.JSON(http.StatusOK, report)
}

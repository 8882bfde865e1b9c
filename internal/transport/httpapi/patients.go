package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Leganyst/clinic-scheduling/internal/service"
)

func (h *Handler) RegisterPatient(c echo.Context) error {
	var body service.NewPatient
	if err := bind(c, &body); err != nil {
		return err
	}
	p, err := h.svc.Patients.RegisterPatient(c.Request().Context(), body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Patients.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Patients.DeletePatient(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientAppointments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		return err
	}
	out, err := h.svc.Patients.ListAppointments(c.Request().Context(), id, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

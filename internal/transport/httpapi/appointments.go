package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Leganyst/clinic-scheduling/internal/service"
)

type bookingBody struct {
	PatientID       uuid.UUID `json:"patient_id"`
	ClinicianID     uuid.UUID `json:"clinician_id"`
	Date            string    `json:"date"`
	Start           string    `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	Override        bool      `json:"override"`
	Comment         string    `json:"comment"`
}

func (b bookingBody) request() (service.BookingRequest, error) {
	date, err := parseDate("date", b.Date)
	if err != nil {
		return service.BookingRequest{}, err
	}
	start, err := parseClock("start", b.Start)
	if err != nil {
		return service.BookingRequest{}, err
	}
	return service.BookingRequest{
		PatientID:       b.PatientID,
		ClinicianID:     b.ClinicianID,
		Date:            date,
		StartMinute:     start,
		DurationMinutes: b.DurationMinutes,
		Override:        b.Override,
		Comment:         b.Comment,
	}, nil
}

func (h *Handler) decodeBooking(c echo.Context) (service.BookingRequest, error) {
	var body bookingBody
	if err := bind(c, &body); err != nil {
		return service.BookingRequest{}, err
	}
	return body.request()
}

// CheckEligibility handles POST /appointments/eligibility.
func (h *Handler) CheckEligibility(c echo.Context) error {
	req, err := h.decodeBooking(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Scheduling.CheckBookingEligibility(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ConfirmBooking handles POST /appointments.
func (h *Handler) ConfirmBooking(c echo.Context) error {
	req, err := h.decodeBooking(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.Scheduling.ConfirmBooking(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) StartAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.svc.Scheduling.StartAppointment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

// CompleteAppointment handles POST /appointments/:id/complete. Repeating the
// call returns the first result.
func (h *Handler) CompleteAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.Scheduling.CompleteAppointment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body cancelBody
	if err := bind(c, &body); err != nil {
		return err
	}
	appt, err := h.svc.Scheduling.CancelAppointment(c.Request().Context(), id, body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Scheduling.DeleteAppointment(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

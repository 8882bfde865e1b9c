package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

func (h *Handler) RegisterClinician(c echo.Context) error {
	var body service.NewClinician
	if err := bind(c, &body); err != nil {
		return err
	}
	cl, err := h.svc.Clinicians.RegisterClinician(c.Request().Context(), body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) GetClinician(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cl, err := h.svc.Clinicians.GetClinician(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClinicians(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		return err
	}
	out, err := h.svc.Clinicians.ListClinicians(c.Request().Context(), page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type slotsResponse struct {
	ClinicianID string   `json:"clinician_id"`
	Date        string   `json:"date"`
	Minutes     []int    `json:"minutes"`
	Times       []string `json:"times"`
}

// ResolveSlots handles GET /clinicians/:id/slots?date=YYYY-MM-DD.
func (h *Handler) ResolveSlots(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	date, err := parseDate("date", c.QueryParam("date"))
	if err != nil {
		return err
	}
	slots, err := h.svc.Scheduling.ResolveSlots(c.Request().Context(), id, date)
	if err != nil {
		return err
	}
	times := make([]string, 0, len(slots))
	for _, m := range slots {
		times = append(times, calendar.MinuteOfDay(m))
	}
	return c.JSON(http.StatusOK, slotsResponse{
		ClinicianID: id.String(),
		Date:        date.Format(time.DateOnly),
		Minutes:     slots,
		Times:       times,
	})
}

func (h *Handler) ListAvailability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	from, err := parseDate("from", c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := parseDate("to", c.QueryParam("to"))
	if err != nil {
		return err
	}
	rows, err := h.svc.Clinicians.Availability(c.Request().Context(), id, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

type windowBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func windowsFrom(in []windowBody) ([]model.TimeWindow, error) {
	out := make([]model.TimeWindow, 0, len(in))
	for _, w := range in {
		start, err := parseClock("window start", w.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseClock("window end", w.End)
		if err != nil {
			return nil, err
		}
		out = append(out, model.TimeWindow{Start: start, End: end})
	}
	return out, nil
}

type availabilityBody struct {
	Enabled bool         `json:"enabled"`
	Windows []windowBody `json:"windows"`
}

// SetAvailability handles PUT /clinicians/:id/availability/:date.
func (h *Handler) SetAvailability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	date, err := parseDate("date", c.Param("date"))
	if err != nil {
		return err
	}
	var body availabilityBody
	if err := bind(c, &body); err != nil {
		return err
	}
	windows, err := windowsFrom(body.Windows)
	if err != nil {
		return err
	}
	row, err := h.svc.Clinicians.SetAvailability(c.Request().Context(), id, date, body.Enabled, windows)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, row)
}

type weeklyBody struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Weekdays   []time.Weekday `json:"weekdays"`
	Windows    []windowBody   `json:"windows"`
	Interval   int            `json:"interval"`
	Exceptions []string       `json:"exceptions"`
}

// ApplyWeeklyTemplate handles POST /clinicians/:id/availability/weekly.
func (h *Handler) ApplyWeeklyTemplate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body weeklyBody
	if err := bind(c, &body); err != nil {
		return err
	}
	from, err := parseDate("from", body.From)
	if err != nil {
		return err
	}
	to, err := parseDate("to", body.To)
	if err != nil {
		return err
	}
	windows, err := windowsFrom(body.Windows)
	if err != nil {
		return err
	}
	tpl := calendar.WeeklyTemplate{Weekdays: body.Weekdays, Windows: windows, Interval: body.Interval}
	for _, s := range body.Exceptions {
		d, err := parseDate("exception", s)
		if err != nil {
			return err
		}
		tpl.Exceptions = append(tpl.Exceptions, d)
	}

	n, err := h.svc.Clinicians.ApplyWeeklyTemplate(c.Request().Context(), id, tpl, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"dates_written": n})
}

type bulkCancelBody struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// BulkCancel handles POST /clinicians/:id/bulk-cancel.
func (h *Handler) BulkCancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body bulkCancelBody
	if err := bind(c, &body); err != nil {
		return err
	}
	from, err := parseDate("from", body.From)
	if err != nil {
		return err
	}
	to, err := parseDate("to", body.To)
	if err != nil {
		return err
	}
	res, err := h.svc.Scheduling.BulkCancelClinicianAppointments(c.Request().Context(), id, from, to, body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

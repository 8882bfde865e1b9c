package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
)

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s: %s", name, c.Param(name)))
	}
	return id, nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, field+" is required")
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s format: %s", field, err.Error()))
	}
	return d, nil
}

// parseClock accepts HH:MM.
func parseClock(field, s string) (int, error) {
	m, err := calendar.ParseMinuteOfDay(s)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s: %s", field, err.Error()))
	}
	return m, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s: %s", name, v))
	}
	return n, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

package calendar

import (
	"errors"
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

var ErrInvalidDateRange = errors.New("invalid date range")

// WeeklyTemplate describes a clinician's repeating week: the same windows on
// the listed weekdays, every Interval weeks starting with the week of From.
type WeeklyTemplate struct {
	Weekdays []time.Weekday
	Windows  []model.TimeWindow
	Interval int
	// Dates to skip (holidays, leave). Compared by calendar date.
	Exceptions []time.Time
}

// ExpandWeekly returns the dates in [from, to] on which tpl applies.
func ExpandWeekly(tpl WeeklyTemplate, from, to time.Time) ([]time.Time, error) {
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}
	if tpl.Interval <= 0 {
		tpl.Interval = 1
	}

	skip := make(map[time.Time]struct{}, len(tpl.Exceptions))
	for _, d := range tpl.Exceptions {
		skip[model.Day(d)] = struct{}{}
	}

	weekStart := from.AddDate(0, 0, -int(from.Weekday()))
	var dates []time.Time
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, 1) {
		weeks := int(cur.Sub(weekStart).Hours()/24) / 7
		if weeks%tpl.Interval != 0 {
			continue
		}
		if !containsWeekday(tpl.Weekdays, cur.Weekday()) {
			continue
		}
		if _, ok := skip[cur]; ok {
			continue
		}
		dates = append(dates, cur)
	}
	return dates, nil
}

func containsWeekday(list []time.Weekday, w time.Weekday) bool {
	for _, d := range list {
		if d == w {
			return true
		}
	}
	return false
}

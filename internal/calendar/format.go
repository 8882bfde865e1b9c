package calendar

import (
	"fmt"
	"time"
)

// MinuteOfDay renders minutes after midnight as HH:MM. Values past midnight
// wrap to the next day's clock.
func MinuteOfDay(m int) string {
	m = ((m % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseMinuteOfDay parses HH:MM into minutes after midnight.
func ParseMinuteOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatSlot renders a booking for people, e.g. "Monday, 06.01.2025, 09:00–09:30".
func FormatSlot(date time.Time, startMinute, durationMinutes int) string {
	return fmt.Sprintf("%s, %s, %s–%s",
		date.Weekday(),
		date.Format("02.01.2006"),
		MinuteOfDay(startMinute),
		MinuteOfDay(startMinute+durationMinutes),
	)
}

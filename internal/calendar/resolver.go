package calendar

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// DefaultGranularity is the slot length used when none is configured.
const DefaultGranularity = 30

// Options tune slot resolution.
type Options struct {
	// Granularity is the slot length in minutes.
	Granularity int
	// Location is the clinic time zone used to decide what "today" and
	// "now" mean. Nil means UTC.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.Granularity <= 0 {
		o.Granularity = DefaultGranularity
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// ResolveSlots returns the ascending, deduplicated start minutes at which the
// clinician is still bookable on date.
//
// A start b is a candidate when [b, b+granularity) lies inside one of the
// availability windows, does not touch the granularity-aligned span of any
// non-cancelled appointment of the same clinician on that date, and, when date
// is today in the clinic location, b is not earlier than the current minute.
// Windows with End <= Start run past midnight; only starts before midnight are
// returned for date.
func ResolveSlots(
	avail *model.ClinicianAvailability,
	date time.Time,
	existing []model.Appointment,
	now time.Time,
	opts Options,
) []int {
	opts = opts.withDefaults()
	out := []int{}

	if avail == nil || !avail.Enabled || len(avail.Windows) == 0 {
		return out
	}
	if !model.SameDay(avail.Day(), date) {
		return out
	}

	occupied := occupiedSpans(avail.ClinicianID, date, existing, opts.Granularity)

	cutoff := -1
	local := now.In(opts.Location)
	if model.SameDay(local, date) {
		cutoff = local.Hour()*60 + local.Minute()
	}

	seen := make(map[int]struct{})
	for _, w := range avail.Windows {
		span, ok := windowSpan(w)
		if !ok {
			continue
		}
		slots, err := SplitToSlots(span, opts.Granularity)
		if err != nil {
			return out
		}
		for _, slot := range slots {
			if slot.Start >= MinutesPerDay {
				break
			}
			if slot.Start < cutoff {
				continue
			}
			if hit, _ := HasOverlap(slot, occupied); hit {
				continue
			}
			if _, dup := seen[slot.Start]; dup {
				continue
			}
			seen[slot.Start] = struct{}{}
			out = append(out, slot.Start)
		}
	}

	sort.Ints(out)
	return out
}

// WithinAvailability reports whether [start, start+duration) lies inside a
// single window and start sits on that window's slot grid.
func WithinAvailability(avail *model.ClinicianAvailability, start, duration int, opts Options) bool {
	opts = opts.withDefaults()
	if avail == nil || !avail.Enabled || duration <= 0 {
		return false
	}
	want := Span{Start: start, End: start + duration}
	for _, w := range avail.Windows {
		span, ok := windowSpan(w)
		if !ok {
			continue
		}
		if span.Contains(want) && (start-span.Start)%opts.Granularity == 0 {
			return true
		}
	}
	return false
}

// ValidWindow reports whether w can be stored as availability.
func ValidWindow(w model.TimeWindow) bool {
	_, ok := windowSpan(w)
	return ok
}

func windowSpan(w model.TimeWindow) (Span, bool) {
	if w.Start < 0 || w.Start >= MinutesPerDay || w.End < 0 || w.End > MinutesPerDay {
		return Span{}, false
	}
	end := w.End
	if w.Wraps() {
		end += MinutesPerDay
	}
	return Span{Start: w.Start, End: end}, true
}

func occupiedSpans(clinicianID uuid.UUID, date time.Time, existing []model.Appointment, g int) []Span {
	var spans []Span
	for _, a := range existing {
		if a.ClinicianID != clinicianID || !a.Active() || !model.SameDay(a.Day(), date) {
			continue
		}
		if a.DurationMinutes <= 0 {
			continue
		}
		spans = append(spans, Span{Start: a.StartMinute, End: a.EndMinute()}.AlignOut(g))
	}
	return spans
}

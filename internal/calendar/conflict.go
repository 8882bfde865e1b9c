package calendar

import (
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// Candidate is a proposed booking checked against the existing ones.
type Candidate struct {
	ClinicianID     uuid.UUID
	Date            time.Time
	StartMinute     int
	DurationMinutes int
	// ExcludeID skips one appointment, e.g. the one being moved.
	ExcludeID uuid.UUID
}

// HasConflict reports whether the candidate overlaps a non-cancelled
// appointment of the same clinician on the same date. Back-to-back bookings
// do not conflict. When several overlap, the earliest one is returned, so the
// answer does not depend on the order of existing.
//
// The detector only reports; whether to book anyway is the caller's decision.
func HasConflict(existing []model.Appointment, c Candidate) (bool, *model.Appointment) {
	want := Span{Start: c.StartMinute, End: c.StartMinute + c.DurationMinutes}

	var hit *model.Appointment
	for i := range existing {
		a := &existing[i]
		if !a.Active() || a.ClinicianID != c.ClinicianID || !model.SameDay(a.Day(), c.Date) {
			continue
		}
		if c.ExcludeID != uuid.Nil && a.ID == c.ExcludeID {
			continue
		}
		if !want.Overlaps(Span{Start: a.StartMinute, End: a.EndMinute()}) {
			continue
		}
		if hit == nil || earlier(a, hit) {
			hit = a
		}
	}
	if hit == nil {
		return false, nil
	}
	found := *hit
	return true, &found
}

func earlier(a, b *model.Appointment) bool {
	if a.StartMinute != b.StartMinute {
		return a.StartMinute < b.StartMinute
	}
	return a.ID.String() < b.ID.String()
}

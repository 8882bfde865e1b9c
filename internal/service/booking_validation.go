package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/billing"
	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// BookingRequest proposes an appointment.
type BookingRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	ClinicianID     uuid.UUID `json:"clinician_id"`
	Date            time.Time `json:"date"`
	StartMinute     int       `json:"start_minute"`
	DurationMinutes int       `json:"duration_minutes"`
	// Override books despite an overlap or a slot outside availability.
	// Past slots are never bookable.
	Override bool   `json:"override"`
	Comment  string `json:"comment,omitempty"`
}

// Eligibility is the outcome of a dry-run booking check.
type Eligibility struct {
	Eligible            bool               `json:"eligible"`
	Reason              string             `json:"reason,omitempty"`
	Kind                apperrors.Kind     `json:"kind,omitempty"`
	Conflict            *model.Appointment `json:"conflict,omitempty"`
	CreatesConsultation bool               `json:"creates_consultation"`
	CycleState          billing.CycleState `json:"cycle_state"`
}

// validateBookingRequest checks the shape of the request, not its fit.
func validateBookingRequest(req BookingRequest, granularity, maxDuration int) (bool, string) {
	if req.PatientID == uuid.Nil || req.ClinicianID == uuid.Nil {
		return false, "patient and clinician are required"
	}
	if req.Date.IsZero() {
		return false, "date is required"
	}
	if req.StartMinute < 0 || req.StartMinute >= calendar.MinutesPerDay {
		return false, "start minute out of range"
	}
	d := req.DurationMinutes
	if d <= 0 || d%granularity != 0 {
		return false, "duration must be a positive multiple of the slot length"
	}
	if d > maxDuration {
		return false, "duration exceeds the maximum appointment length"
	}
	return true, ""
}

type evaluation struct {
	decision     billing.Decision
	facts        billing.Facts
	availability *model.ClinicianAvailability
}

// evaluate runs every booking check against tx in order: billing gate,
// request shape, conflict, availability, past. The first failure wins.
func (d deps) evaluate(
	ctx context.Context,
	tx *repository.Store,
	req BookingRequest,
	patient model.Patient,
	now time.Time,
) (*evaluation, error) {
	facts, _, err := loadFacts(ctx, tx, patient)
	if err != nil {
		return nil, translate("load billing records", "billing records", err)
	}
	ev := &evaluation{facts: facts, decision: d.cfg.Policy.BookingGate(facts, now)}
	if !ev.decision.Allowed {
		return ev, apperrors.CycleBlocked("%s", ev.decision.Reason)
	}

	if ok, reason := validateBookingRequest(req, d.cfg.Granularity, d.cfg.MaxDuration); !ok {
		return ev, apperrors.InvalidState("%s", reason)
	}

	date := model.Day(req.Date)
	existing, err := tx.Appointments.ListByClinicianDate(ctx, req.ClinicianID, date)
	if err != nil {
		return ev, translate("load appointments", "appointments", err)
	}
	conflict, with := calendar.HasConflict(existing, calendar.Candidate{
		ClinicianID:     req.ClinicianID,
		Date:            date,
		StartMinute:     req.StartMinute,
		DurationMinutes: req.DurationMinutes,
	})
	if conflict && !req.Override {
		return ev, apperrors.ConflictWarning(*with)
	}

	avail, err := tx.Availability.GetForDate(ctx, req.ClinicianID, date)
	if err != nil && !repository.IsNotFound(err) {
		return ev, translate("load availability", "availability", err)
	}
	ev.availability = avail
	if !req.Override && !calendar.WithinAvailability(avail, req.StartMinute, req.DurationMinutes, d.cfg.calendarOptions()) {
		return ev, apperrors.SlotUnavailable("%s is outside the clinician's availability",
			calendar.FormatSlot(date, req.StartMinute, req.DurationMinutes))
	}

	if d.startsInPast(date, req.StartMinute, now) {
		return ev, apperrors.SlotUnavailable("%s is in the past",
			calendar.FormatSlot(date, req.StartMinute, req.DurationMinutes))
	}
	return ev, nil
}

// startsInPast compares the slot start with now in the clinic time zone.
func (d deps) startsInPast(date time.Time, startMinute int, now time.Time) bool {
	loc := d.cfg.Location
	y, m, day := date.Date()
	start := time.Date(y, m, day, 0, 0, 0, 0, loc).Add(time.Duration(startMinute) * time.Minute)
	return start.Before(now.In(loc).Truncate(time.Minute))
}

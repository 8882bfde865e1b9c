package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/billing"
	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// translate turns a store error into a typed rejection. Errors that are
// already typed pass through.
func translate(op, what string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if repository.IsNotFound(err) {
		return apperrors.NotFound(what)
	}
	return apperrors.Persistence(op, err)
}

func recordEvent(
	ctx context.Context,
	tx *repository.Store,
	typ model.EventType,
	patientID uuid.UUID,
	appointmentID *uuid.UUID,
	details map[string]any,
) error {
	e := model.Event{
		EventType:     typ,
		PatientID:     &patientID,
		AppointmentID: appointmentID,
		Details:       datatypes.JSONMap(details),
	}
	if err := tx.Events.Create(ctx, &e); err != nil {
		return fmt.Errorf("record %s event: %w", typ, err)
	}
	return nil
}

// refreshRemaining recomputes the display-only remaining sessions counter of
// a package patient. It never feeds a decision.
func refreshRemaining(ctx context.Context, tx *repository.Store, p *model.Patient, consultation *model.BillingRecord) error {
	if p.TotalSessions == nil {
		p.RemainingSessions = nil
		return nil
	}
	var since time.Time
	if consultation != nil {
		since = consultation.CreatedDate
	}
	used, err := tx.Appointments.CountActiveSince(ctx, p.ID, since)
	if err != nil {
		return err
	}
	remaining := *p.TotalSessions - int(used)
	if remaining < 0 {
		remaining = 0
	}
	p.RemainingSessions = &remaining
	return nil
}

func loadFacts(ctx context.Context, tx *repository.Store, p model.Patient) (billing.Facts, []model.BillingRecord, error) {
	records, err := tx.Billing.ListByPatient(ctx, p.ID)
	if err != nil {
		return billing.Facts{}, nil, err
	}
	return billing.FactsFrom(p, records), records, nil
}

func slotLabel(a model.Appointment) string {
	return calendar.FormatSlot(a.Day(), a.StartMinute, a.DurationMinutes)
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

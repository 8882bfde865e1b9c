// Package allowance tracks free sessions per patient and the billable balance
// that accrues once they are used up.
package allowance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// ErrStaleAllowance means another writer changed the allowance first.
var ErrStaleAllowance = errors.New("session allowance changed concurrently")

// Store is the persistence the ledger needs. Find methods return nil, nil
// when the row does not exist.
type Store interface {
	FindAllowance(ctx context.Context, patientID uuid.UUID) (*model.SessionAllowance, error)
	FindUsage(ctx context.Context, appointmentID uuid.UUID) (*model.SessionUsage, error)
	// UpdateAllowanceIfVersion writes a only if the stored version still equals
	// expected and reports whether it did.
	UpdateAllowanceIfVersion(ctx context.Context, a *model.SessionAllowance, expected int64) (bool, error)
	// CreateUsage must fail if a usage for the same appointment exists.
	CreateUsage(ctx context.Context, u *model.SessionUsage) error
}

// Result of recording one completed appointment.
type Result struct {
	Usage   model.SessionUsage
	WasFree bool
	// Replayed is set when the usage had already been recorded.
	Replayed bool
}

// New creates the allowance given to a patient at registration.
func New(patientID uuid.UUID, freeSessions int, unitCharge model.Money) model.SessionAllowance {
	if freeSessions < 0 {
		freeSessions = 0
	}
	return model.SessionAllowance{
		PatientID:             patientID,
		FreeSessionsRemaining: freeSessions,
		UnitCharge:            unitCharge,
		Version:               1,
	}
}

// Consume applies one session: a free one while any remain, otherwise one
// billable session at the unit charge.
func Consume(a model.SessionAllowance) (updated model.SessionAllowance, wasFree bool, charge model.Money) {
	a.Version++
	if a.FreeSessionsRemaining > 0 {
		a.FreeSessionsRemaining--
		return a, true, 0
	}
	a.PendingPaidSessions++
	a.PendingChargeAmount += a.UnitCharge
	return a, false, a.UnitCharge
}

// Settle clears the pending billable balance and returns what was owed.
// Free sessions are never restored.
func Settle(a model.SessionAllowance) (model.SessionAllowance, model.Money) {
	owed := a.PendingChargeAmount
	a.PendingPaidSessions = 0
	a.PendingChargeAmount = 0
	a.Version++
	return a, owed
}

// RecordUsage consumes one session for appointmentID exactly once. A repeat
// call for the same appointment returns the stored result and writes nothing.
// Patients without an allowance get a nil result.
//
// Call it inside the transaction that completes the appointment.
func RecordUsage(ctx context.Context, store Store, patientID, appointmentID uuid.UUID, now time.Time) (*Result, error) {
	prev, err := store.FindUsage(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("find usage: %w", err)
	}
	if prev != nil {
		return &Result{Usage: *prev, WasFree: prev.WasFree, Replayed: true}, nil
	}

	current, err := store.FindAllowance(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("find allowance: %w", err)
	}
	if current == nil {
		return nil, nil
	}

	updated, wasFree, charge := Consume(*current)
	ok, err := store.UpdateAllowanceIfVersion(ctx, &updated, current.Version)
	if err != nil {
		return nil, fmt.Errorf("update allowance: %w", err)
	}
	if !ok {
		return nil, apperrors.Persistence("record session usage", ErrStaleAllowance)
	}

	usage := model.SessionUsage{
		AppointmentID:         appointmentID,
		PatientID:             patientID,
		WasFree:               wasFree,
		ChargeAmount:          charge,
		FreeSessionsRemaining: updated.FreeSessionsRemaining,
		PendingPaidSessions:   updated.PendingPaidSessions,
		PendingChargeAmount:   updated.PendingChargeAmount,
		RecordedAt:            now,
	}
	if err := store.CreateUsage(ctx, &usage); err != nil {
		return nil, apperrors.Persistence("record session usage", err)
	}
	return &Result{Usage: usage, WasFree: wasFree}, nil
}

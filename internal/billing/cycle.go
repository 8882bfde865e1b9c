// Package billing derives a patient's booking-cycle state from stored billing
// facts and computes the amounts owed on consultation and package records.
package billing

import (
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

const (
	DefaultWaitingMonths   = 6
	DefaultConsultationFee = model.Money(50000)
)

// CycleState is never stored; it is recomputed from facts on every query.
type CycleState string

const (
	CycleNone             CycleState = "no_cycle"
	CycleAwaitingPayment  CycleState = "awaiting_consultation_payment"
	CycleActive           CycleState = "active_cycle"
	CycleExpiredResetable CycleState = "cycle_expired_eligible_for_reset"
)

// Policy holds the clinic's billing constants.
type Policy struct {
	// WaitingMonths must pass after a consultation before a new cycle may start.
	WaitingMonths   int
	ConsultationFee model.Money
}

// DefaultPolicy returns the six-month cycle with the default fee.
func DefaultPolicy() Policy {
	return Policy{WaitingMonths: DefaultWaitingMonths, ConsultationFee: DefaultConsultationFee}
}

// Facts is everything the cycle decisions look at for one patient.
type Facts struct {
	Patient model.Patient
	// Consultation is the patient's active (most recent) consultation record.
	Consultation *model.BillingRecord
	// Package is the active package record of the current cycle, if any.
	Package *model.BillingRecord
}

// Decision is the outcome of the booking gate.
type Decision struct {
	State   CycleState
	Allowed bool
	// CreateConsultation is set when the booking opens a new cycle.
	CreateConsultation bool
	Reason             string
}

// WaitingElapsed reports whether the waiting period since the consultation
// date has passed.
func (p Policy) WaitingElapsed(consultation *model.BillingRecord, now time.Time) bool {
	if consultation == nil {
		return false
	}
	months := p.WaitingMonths
	if months <= 0 {
		months = DefaultWaitingMonths
	}
	return !now.Before(consultation.CreatedDate.AddDate(0, months, 0))
}

// State derives the cycle state.
func (p Policy) State(f Facts, now time.Time) CycleState {
	c := f.Consultation
	switch {
	case c == nil:
		return CycleNone
	case f.Patient.ReadyForNewAppointment:
		return CycleExpiredResetable
	case p.WaitingElapsed(c, now) && (c.Completed() || f.Patient.Exempt()):
		return CycleExpiredResetable
	case !c.Completed():
		return CycleAwaitingPayment
	default:
		return CycleActive
	}
}

// BookingGate decides whether the patient may book now and whether that
// booking starts a new consultation cycle.
func (p Policy) BookingGate(f Facts, now time.Time) Decision {
	state := p.State(f, now)
	switch state {
	case CycleNone:
		return Decision{State: state, Allowed: true, CreateConsultation: true}
	case CycleExpiredResetable:
		if packageBlocks(f) {
			return Decision{State: state, Reason: "package payment pending"}
		}
		return Decision{State: state, Allowed: true, CreateConsultation: true}
	case CycleAwaitingPayment:
		if f.Patient.Exempt() {
			return Decision{State: state, Allowed: true}
		}
		return Decision{State: state, Reason: "consultation payment pending"}
	case CycleActive:
		return Decision{State: state, Allowed: true}
	}
	return Decision{State: state, Reason: "unknown cycle state"}
}

// CanBookNewConsultation reports whether the patient may start a new cycle.
func (p Policy) CanBookNewConsultation(f Facts, now time.Time) bool {
	d := p.BookingGate(f, now)
	return d.Allowed && d.CreateConsultation
}

// ShouldReset is the reconciliation predicate: the consultation is old enough
// and either paid or on a no-paywall plan, the patient is not already marked
// ready, and no unpaid package is holding a paywalled patient.
func (p Policy) ShouldReset(f Facts, now time.Time) bool {
	c := f.Consultation
	if c == nil || f.Patient.ReadyForNewAppointment {
		return false
	}
	if !p.WaitingElapsed(c, now) {
		return false
	}
	if !c.Completed() && !f.Patient.Exempt() {
		return false
	}
	return !packageBlocks(f)
}

// ApplyReset marks the patient ready for a new cycle and clears the payment
// arrangement of the old one.
func ApplyReset(p *model.Patient) {
	p.ReadyForNewAppointment = true
	p.PaymentType = ""
	p.PackageAmount = nil
	p.ConcessionPercent = nil
	p.TotalSessions = nil
	p.RemainingSessions = nil
}

// StartCycle clears the ready flag once a new consultation is opened.
func StartCycle(p *model.Patient) {
	p.ReadyForNewAppointment = false
}

func packageBlocks(f Facts) bool {
	return !f.Patient.Exempt() && f.Package != nil && !f.Package.Completed()
}

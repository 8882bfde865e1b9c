package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanType decides whether an unpaid consultation gates new bookings.
type PlanType string

const (
	PlanTypeStandard PlanType = "standard"
	// PlanTypeNoPaywall patients are never blocked by an unpaid consultation.
	PlanTypeNoPaywall PlanType = "no_paywall"
)

const PaymentTypePackage = "package"

// patients
type Patient struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name  string `gorm:"type:varchar(255);not null"`
	Email string `gorm:"type:varchar(255)"`
	Phone string `gorm:"type:varchar(32)"`

	PlanType          PlanType `gorm:"type:varchar(32);not null;default:'standard'"`
	AllowanceEligible bool     `gorm:"not null;default:false"`

	// Set by the reconciliation sweep, cleared when a new cycle starts.
	ReadyForNewAppointment bool `gorm:"not null;default:false;index"`

	PaymentType       string   `gorm:"type:varchar(32)"`
	PackageAmount     *Money   `gorm:"type:bigint"`
	ConcessionPercent *float64 `gorm:"type:numeric(5,2)"`

	// Display projection only; never used for decisions.
	TotalSessions     *int
	RemainingSessions *int

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Exempt reports whether payment gating is waived for the patient's plan.
func (p Patient) Exempt() bool {
	return p.PlanType == PlanTypeNoPaywall
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type BillingKind string

const (
	BillingKindConsultation BillingKind = "consultation"
	BillingKindPackage      BillingKind = "package"
)

type BillingStatus string

const (
	BillingStatusPending   BillingStatus = "pending"
	BillingStatusCompleted BillingStatus = "completed"
)

// billing_records
type BillingRecord struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	PatientID uuid.UUID   `gorm:"type:uuid;not null;index:idx_billing_patient_kind"`
	Kind      BillingKind `gorm:"type:varchar(32);not null;index:idx_billing_patient_kind"`

	TotalAmount       Money    `gorm:"not null"`
	ConcessionPercent *float64 `gorm:"type:numeric(5,2)"`
	PayableAmount     Money    `gorm:"not null"`
	AmountPaid        Money    `gorm:"not null;default:0"`

	Status      BillingStatus `gorm:"type:varchar(32);not null;index"`
	CreatedDate time.Time     `gorm:"not null;index"`
	PaidAt      *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Completed reports whether the record has been fully paid.
func (b BillingRecord) Completed() bool {
	return b.Status == BillingStatusCompleted
}

// Outstanding is what is still owed on the record.
func (b BillingRecord) Outstanding() Money {
	if b.AmountPaid >= b.PayableAmount {
		return 0
	}
	return b.PayableAmount - b.AmountPaid
}

// Concession returns the concession percent, zero when unset.
func (b BillingRecord) Concession() float64 {
	if b.ConcessionPercent == nil {
		return 0
	}
	return *b.ConcessionPercent
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// session_allowances: one row per allowance-eligible patient.
type SessionAllowance struct {
	PatientID uuid.UUID `gorm:"type:uuid;primaryKey"`

	FreeSessionsRemaining int   `gorm:"not null"`
	PendingPaidSessions   int   `gorm:"not null;default:0"`
	PendingChargeAmount   Money `gorm:"not null;default:0"`

	// Charge per session once the free sessions are used up, fixed at registration.
	UnitCharge Money `gorm:"not null"`

	// Bumped on every write; updates are conditional on the previous value.
	Version int64 `gorm:"not null;default:1"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// session_usages: applied allowance consumptions keyed by appointment.
type SessionUsage struct {
	AppointmentID uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID     uuid.UUID `gorm:"type:uuid;not null;index"`

	WasFree      bool  `gorm:"not null"`
	ChargeAmount Money `gorm:"not null;default:0"`

	// Allowance state right after this usage was applied.
	FreeSessionsRemaining int   `gorm:"not null"`
	PendingPaidSessions   int   `gorm:"not null"`
	PendingChargeAmount   Money `gorm:"not null"`

	RecordedAt time.Time `gorm:"not null"`
}

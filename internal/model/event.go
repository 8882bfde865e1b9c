package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit event type.
type EventType string

const (
	EventTypeBookingCreated       EventType = "booking_created"
	EventTypeAppointmentStarted   EventType = "appointment_started"
	EventTypeAppointmentCompleted EventType = "appointment_completed"
	EventTypeAppointmentCancelled EventType = "appointment_cancelled"
	EventTypeAppointmentDeleted   EventType = "appointment_deleted"
	EventTypePaymentRecorded      EventType = "payment_recorded"
	EventTypePackageCreated       EventType = "package_created"
	EventTypeCycleReset           EventType = "cycle_reset"
	EventTypeSessionConsumed      EventType = "session_consumed"
	EventTypeAllowanceSettled     EventType = "allowance_settled"
)

// events: audit trail, written in the same transaction as the change.
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	PatientID     *uuid.UUID `gorm:"type:uuid;index"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index"`

	Details datatypes.JSONMap
}

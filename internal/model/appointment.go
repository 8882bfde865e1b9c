package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusOngoing   AppointmentStatus = "ongoing"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// appointments
type Appointment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ClinicianID uuid.UUID `gorm:"type:uuid;not null;index:idx_appointments_clinician_date"`

	// Calendar day of the visit; StartMinute is minutes after its midnight.
	Date            datatypes.Date `gorm:"type:date;not null;index:idx_appointments_clinician_date"`
	StartMinute     int            `gorm:"not null"`
	DurationMinutes int            `gorm:"not null"`

	Status      AppointmentStatus `gorm:"type:varchar(32);not null;index"`
	CancelledAt *time.Time
	CompletedAt *time.Time
	Comment     string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Day returns the appointment date as a UTC midnight.
func (a Appointment) Day() time.Time {
	return Day(time.Time(a.Date))
}

// EndMinute is the exclusive end of the booked span.
func (a Appointment) EndMinute() int {
	return a.StartMinute + a.DurationMinutes
}

// Active reports whether the appointment still occupies its span.
func (a Appointment) Active() bool {
	return a.Status != AppointmentStatusCancelled
}

// Day normalises t to midnight UTC of its own calendar date.
// Dates are compared and stored in this form everywhere.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay compares calendar dates ignoring clock and location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

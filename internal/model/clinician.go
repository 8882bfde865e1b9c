package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Clinician: the person appointments are booked with.
// Bookings lock this row, so it also serialises writes per clinician.
type Clinician struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	DisplayName string `gorm:"type:varchar(255);not null"`
	Email       string `gorm:"type:varchar(255)"`
	Phone       string `gorm:"type:varchar(32)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TimeWindow is a bookable interval [Start, End) in minutes after midnight.
// End <= Start means the window closes after midnight.
type TimeWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Wraps reports whether the window runs into the next calendar day.
func (w TimeWindow) Wraps() bool {
	return w.End <= w.Start
}

// clinician_availabilities: one row per clinician per date.
type ClinicianAvailability struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ClinicianID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_availability_clinician_date"`
	Date        datatypes.Date `gorm:"type:date;not null;uniqueIndex:uq_availability_clinician_date"`

	Enabled bool                            `gorm:"not null"`
	Windows datatypes.JSONSlice[TimeWindow] `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Day returns the availability date as a UTC midnight.
func (a ClinicianAvailability) Day() time.Time {
	return Day(time.Time(a.Date))
}

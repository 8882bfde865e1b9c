package model

import "gorm.io/gorm"

// AutoMigrate migrates every entity of the scheduling core.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Patient{},
		&Clinician{},
		&ClinicianAvailability{},
		&Appointment{},
		&BillingRecord{},
		&SessionAllowance{},
		&SessionUsage{},
		&Event{},
	)
}

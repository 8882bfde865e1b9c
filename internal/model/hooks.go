package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDs are generated client-side so the same code runs on postgres and sqlite.

func (p *Patient) BeforeCreate(*gorm.DB) error {
	p.ID = ensureID(p.ID)
	return nil
}

func (c *Clinician) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}

func (a *ClinicianAvailability) BeforeCreate(*gorm.DB) error {
	a.ID = ensureID(a.ID)
	return nil
}

func (a *Appointment) BeforeCreate(*gorm.DB) error {
	a.ID = ensureID(a.ID)
	return nil
}

func (b *BillingRecord) BeforeCreate(*gorm.DB) error {
	b.ID = ensureID(b.ID)
	return nil
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	e.ID = ensureID(e.ID)
	return nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// Package repository is the gorm-backed persistence of the scheduling core.
// Repositories return raw gorm errors; callers translate them.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchSize caps the rows touched by one batched write.
const BatchSize = 500

// Store bundles the repositories bound to one *gorm.DB. Inside Transaction
// the same set is bound to the transaction handle.
type Store struct {
	db *gorm.DB

	Patients     PatientRepository
	Clinicians   ClinicianRepository
	Availability AvailabilityRepository
	Appointments AppointmentRepository
	Billing      BillingRepository
	Allowances   AllowanceRepository
	Events       EventRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Patients:     NewGormPatientRepository(db),
		Clinicians:   NewGormClinicianRepository(db),
		Availability: NewGormAvailabilityRepository(db),
		Appointments: NewGormAppointmentRepository(db),
		Billing:      NewGormBillingRepository(db),
		Allowances:   NewGormAllowanceRepository(db),
		Events:       NewGormEventRepository(db),
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn atomically. Any error returned by fn rolls back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// IsNotFound reports whether err is gorm's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Chunk splits items into slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

// forUpdate adds SELECT ... FOR UPDATE. The sqlite dialect drops the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// deleteBatch removes at most limit rows of m matching column = value and
// returns how many were deleted.
func deleteBatch(ctx context.Context, db *gorm.DB, m any, key, column string, value any, limit int) (int64, error) {
	if limit <= 0 {
		limit = BatchSize
	}
	sub := db.WithContext(ctx).Model(m).Select(key).Where(column+" = ?", value).Limit(limit)
	res := db.WithContext(ctx).Where(key+" IN (?)", sub).Delete(m)
	return res.RowsAffected, res.Error
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type AvailabilityRepository interface {
	// GetForDate returns gorm.ErrRecordNotFound when the clinician has no row
	// for that date.
	GetForDate(ctx context.Context, clinicianID uuid.UUID, date time.Time) (*model.ClinicianAvailability, error)
	// Upsert inserts or replaces the row for (clinician, date).
	Upsert(ctx context.Context, a *model.ClinicianAvailability) error
	ListRange(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]model.ClinicianAvailability, error)
}

type GormAvailabilityRepository struct {
	db *gorm.DB
}

func NewGormAvailabilityRepository(db *gorm.DB) *GormAvailabilityRepository {
	return &GormAvailabilityRepository{db: db}
}

func (r *GormAvailabilityRepository) GetForDate(
	ctx context.Context,
	clinicianID uuid.UUID,
	date time.Time,
) (*model.ClinicianAvailability, error) {
	var a model.ClinicianAvailability
	err := r.db.WithContext(ctx).
		Where("clinician_id = ? AND date = ?", clinicianID, datatypes.Date(model.Day(date))).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAvailabilityRepository) Upsert(ctx context.Context, a *model.ClinicianAvailability) error {
	a.Date = datatypes.Date(a.Day())
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "clinician_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "windows", "updated_at"}),
		}).
		Create(a).Error
}

func (r *GormAvailabilityRepository) ListRange(
	ctx context.Context,
	clinicianID uuid.UUID,
	from, to time.Time,
) ([]model.ClinicianAvailability, error) {
	var rows []model.ClinicianAvailability
	err := r.db.WithContext(ctx).
		Where("clinician_id = ?", clinicianID).
		Where("date >= ? AND date <= ?", datatypes.Date(model.Day(from)), datatypes.Date(model.Day(to))).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

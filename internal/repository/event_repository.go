package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	// ListByPatient returns the newest events first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]model.Event, error)
	DeleteBatchByPatient(ctx context.Context, patientID uuid.UUID, limit int) (int64, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(ctx context.Context, e *model.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *GormEventRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) DeleteBatchByPatient(ctx context.Context, patientID uuid.UUID, limit int) (int64, error) {
	return deleteBatch(ctx, r.db, &model.Event{}, "id", "patient_id", patientID, limit)
}

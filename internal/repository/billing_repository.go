package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type BillingRepository interface {
	Create(ctx context.Context, rec *model.BillingRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.BillingRecord, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.BillingRecord, error)
	// ListByPatient returns the patient's full billing history, oldest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.BillingRecord, error)
	Save(ctx context.Context, rec *model.BillingRecord) error
	DeleteBatchByPatient(ctx context.Context, patientID uuid.UUID, limit int) (int64, error)
}

type GormBillingRepository struct {
	db *gorm.DB
}

func NewGormBillingRepository(db *gorm.DB) *GormBillingRepository {
	return &GormBillingRepository{db: db}
}

func (r *GormBillingRepository) Create(ctx context.Context, rec *model.BillingRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormBillingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BillingRecord, error) {
	var rec model.BillingRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormBillingRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.BillingRecord, error) {
	var rec model.BillingRecord
	if err := forUpdate(r.db.WithContext(ctx)).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormBillingRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.BillingRecord, error) {
	var recs []model.BillingRecord
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_date ASC, created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *GormBillingRepository) Save(ctx context.Context, rec *model.BillingRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *GormBillingRepository) DeleteBatchByPatient(ctx context.Context, patientID uuid.UUID, limit int) (int64, error) {
	return deleteBatch(ctx, r.db, &model.BillingRecord{}, "id", "patient_id", patientID, limit)
}

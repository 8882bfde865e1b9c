package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// AllowanceRepository persists session allowances and their usage log.
// Find methods return nil, nil for missing rows.
type AllowanceRepository interface {
	Create(ctx context.Context, a *model.SessionAllowance) error
	FindAllowance(ctx context.Context, patientID uuid.UUID) (*model.SessionAllowance, error)
	FindUsage(ctx context.Context, appointmentID uuid.UUID) (*model.SessionUsage, error)
	UpdateAllowanceIfVersion(ctx context.Context, a *model.SessionAllowance, expected int64) (bool, error)
	CreateUsage(ctx context.Context, u *model.SessionUsage) error
	DeleteUsagesBatchByPatient(ctx context.Context, patientID uuid.UUID, limit int) (int64, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
}

type GormAllowanceRepository struct {
	db *gorm.DB
}

func NewGormAllowanceRepository(db *gorm.DB) *GormAllowanceRepository {
	return &GormAllowanceRepository{db: db}
}

func (r *GormAllowanceRepository) Create(ctx context.Context, a *model.SessionAllowance) error {
	if a.Version == 0 {
		a.Version = 1
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *GormAllowanceRepository) FindAllowance(ctx context.Context, patientID uuid.UUID) (*model.SessionAllowance, error) {
	var a model.SessionAllowance
	err := r.db.WithContext(ctx).First(&a, "patient_id = ?", patientID).Error
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAllowanceRepository) FindUsage(ctx context.Context, appointmentID uuid.UUID) (*model.SessionUsage, error) {
	var u model.SessionUsage
	err := r.db.WithContext(ctx).First(&u, "appointment_id = ?", appointmentID).Error
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormAllowanceRepository) UpdateAllowanceIfVersion(
	ctx context.Context,
	a *model.SessionAllowance,
	expected int64,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SessionAllowance{}).
		Where("patient_id = ? AND version = ?", a.PatientID, expected).
		Updates(map[string]any{
			"free_sessions_remaining": a.FreeSessionsRemaining,
			"pending_paid_sessions":   a.PendingPaidSessions,
			"pending_charge_amount":   a.PendingChargeAmount,
			"version":                 a.Version,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormAllowanceRepository) CreateUsage(ctx context.Context, u *model.SessionUsage) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *GormAllowanceRepository) DeleteUsagesBatchByPatient(ctx context.Context, patientID uuid.UUID, limit int) (int64, error) {
	return deleteBatch(ctx, r.db, &model.SessionUsage{}, "appointment_id", "patient_id", patientID, limit)
}

func (r *GormAllowanceRepository) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.SessionAllowance{}, "patient_id = ?", patientID).Error
}

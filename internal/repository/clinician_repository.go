package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type ClinicianRepository interface {
	Create(ctx context.Context, c *model.Clinician) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Clinician, error)
	// LockByID serialises bookings for one clinician.
	LockByID(ctx context.Context, id uuid.UUID) (*model.Clinician, error)
	List(ctx context.Context, limit, offset int) ([]model.Clinician, int64, error)
}

type GormClinicianRepository struct {
	db *gorm.DB
}

func NewGormClinicianRepository(db *gorm.DB) *GormClinicianRepository {
	return &GormClinicianRepository{db: db}
}

func (r *GormClinicianRepository) Create(ctx context.Context, c *model.Clinician) error {
	c.Phone = NormalizePhone(c.Phone)
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormClinicianRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Clinician, error) {
	var c model.Clinician
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormClinicianRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.Clinician, error) {
	var c model.Clinician
	if err := forUpdate(r.db.WithContext(ctx)).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormClinicianRepository) List(ctx context.Context, limit, offset int) ([]model.Clinician, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Clinician{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var clinicians []model.Clinician
	if err := q.Order("display_name ASC").Limit(limit).Offset(offset).Find(&clinicians).Error; err != nil {
		return nil, 0, err
	}
	return clinicians, total, nil
}

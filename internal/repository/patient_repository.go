package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type PatientRepository interface {
	Create(ctx context.Context, p *model.Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	// LockByID reads the patient with a row lock held until the transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	FindByPhone(ctx context.Context, phone string) (*model.Patient, error)
	Save(ctx context.Context, p *model.Patient) error
	// ListNotReady pages through patients not yet marked ready for a new
	// cycle, ordered by id, starting after the given id.
	ListNotReady(ctx context.Context, after uuid.UUID, limit int) ([]model.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormPatientRepository struct {
	db *gorm.DB
}

func NewGormPatientRepository(db *gorm.DB) *GormPatientRepository {
	return &GormPatientRepository{db: db}
}

func (r *GormPatientRepository) Create(ctx context.Context, p *model.Patient) error {
	p.Phone = NormalizePhone(p.Phone)
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormPatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPatientRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// NormalizePhone keeps only the digits of phone.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if c >= '0' && c <= '9' {
			b = append(b, c)
		}
	}
	return string(b)
}

func (r *GormPatientRepository) FindByPhone(ctx context.Context, phone string) (*model.Patient, error) {
	n := NormalizePhone(phone)
	if n == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var p model.Patient
	if err := r.db.WithContext(ctx).Where("phone = ?", n).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes every column, including zero values and nil pointers.
func (r *GormPatientRepository) Save(ctx context.Context, p *model.Patient) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *GormPatientRepository) ListNotReady(ctx context.Context, after uuid.UUID, limit int) ([]model.Patient, error) {
	if limit <= 0 {
		limit = BatchSize
	}
	q := r.db.WithContext(ctx).Where("ready_for_new_appointment = ?", false)
	if after != uuid.Nil {
		q = q.Where("id > ?", after)
	}
	var patients []model.Patient
	if err := q.Order("id ASC").Limit(limit).Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *GormPatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Patient{}, "id = ?", id).Error
}

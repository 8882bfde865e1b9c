package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// ListByClinicianDate returns every appointment of the clinician on date,
	// cancelled ones included.
	ListByClinicianDate(ctx context.Context, clinicianID uuid.UUID, date time.Time) ([]model.Appointment, error)
	// ListOpenByClinicianRange returns pending and ongoing appointments
	// between two dates, both inclusive.
	ListOpenByClinicianRange(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]model.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]model.Appointment, int64, error)
	// CountActiveSince counts non-cancelled appointments dated on or after since.
	CountActiveSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int64, error)
	// UpdateStatus sets the status and stamps cancelled_at or completed_at.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, at *time.Time) error
	// LockOpenByIDs locks and returns the given appointments that are still
	// pending or ongoing.
	LockOpenByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Appointment, error)
	// CancelByIDs cancels the given appointments that are still open.
	CancelByIDs(ctx context.Context, ids []uuid.UUID, at time.Time, reason string) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBatchByPatient(ctx context.Context, patientID uuid.UUID, limit int) (int64, error)
}

type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

func (r *GormAppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	a.Date = datatypes.Date(a.Day())
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAppointmentRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	if err := forUpdate(r.db.WithContext(ctx)).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAppointmentRepository) ListByClinicianDate(
	ctx context.Context,
	clinicianID uuid.UUID,
	date time.Time,
) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Where("clinician_id = ? AND date = ?", clinicianID, datatypes.Date(model.Day(date))).
		Order("start_minute ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *GormAppointmentRepository) ListOpenByClinicianRange(
	ctx context.Context,
	clinicianID uuid.UUID,
	from, to time.Time,
) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Where("clinician_id = ?", clinicianID).
		Where("date >= ? AND date <= ?", datatypes.Date(model.Day(from)), datatypes.Date(model.Day(to))).
		Where("status IN ?", []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusOngoing}).
		Order("date ASC, start_minute ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *GormAppointmentRepository) ListByPatient(
	ctx context.Context,
	patientID uuid.UUID,
	limit, offset int,
) ([]model.Appointment, int64, error) {
	var (
		appts []model.Appointment
		total int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("patient_id = ?", patientID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("date DESC, start_minute DESC").Find(&appts).Error; err != nil {
		return nil, 0, err
	}

	return appts, total, nil
}

func (r *GormAppointmentRepository) CountActiveSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("patient_id = ?", patientID).
		Where("status <> ?", model.AppointmentStatusCancelled).
		Where("date >= ?", datatypes.Date(model.Day(since))).
		Count(&n).Error
	return n, err
}

func (r *GormAppointmentRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status model.AppointmentStatus,
	at *time.Time,
) error {
	update := map[string]any{
		"status": status,
	}
	if at != nil {
		switch status {
		case model.AppointmentStatusCancelled:
			update["cancelled_at"] = *at
		case model.AppointmentStatusCompleted:
			update["completed_at"] = *at
		}
	}
	return r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ?", id).
		Updates(update).
		Error
}

func (r *GormAppointmentRepository) LockOpenByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Appointment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var appts []model.Appointment
	err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Where("status IN ?", []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusOngoing}).
		Order("date ASC, start_minute ASC").
		Find(&appts).Error
	return appts, err
}

func (r *GormAppointmentRepository) CancelByIDs(ctx context.Context, ids []uuid.UUID, at time.Time, reason string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	update := map[string]any{
		"status":       model.AppointmentStatusCancelled,
		"cancelled_at": at,
	}
	if reason != "" {
		update["comment"] = reason
	}
	res := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id IN ?", ids).
		Where("status IN ?", []model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusOngoing}).
		Updates(update)
	return res.RowsAffected, res.Error
}

func (r *GormAppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Appointment{}, "id = ?", id).Error
}

func (r *GormAppointmentRepository) DeleteBatchByPatient(ctx context.Context, patientID uuid.UUID, limit int) (int64, error) {
	return deleteBatch(ctx, r.db, &model.Appointment{}, "id", "patient_id", patientID, limit)
}

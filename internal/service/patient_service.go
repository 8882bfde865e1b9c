package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Leganyst/clinic-scheduling/internal/allowance"
	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/logging"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/notify"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// PatientService manages patient records.
type PatientService struct {
	deps
}

func NewPatientService(
	store *repository.Store,
	cfg Config,
	notifier notify.Notifier,
	log zerolog.Logger,
) *PatientService {
	return &PatientService{deps: newDeps(store, cfg, notifier, log)}
}

// NewPatient is the registration form.
type NewPatient struct {
	Name              string         `json:"name"`
	Email             string         `json:"email,omitempty"`
	Phone             string         `json:"phone,omitempty"`
	PlanType          model.PlanType `json:"plan_type,omitempty"`
	AllowanceEligible bool           `json:"allowance_eligible"`
	// FreeSessions overrides the configured default.
	FreeSessions *int `json:"free_sessions,omitempty"`
}

// RegisterPatient creates the patient and, for allowance-eligible patients,
// the session allowance in the same transaction.
func (s *PatientService) RegisterPatient(ctx context.Context, in NewPatient) (_ *model.Patient, err error) {
	ctx, span := logging.StartSpan(ctx, "PatientService.RegisterPatient")
	defer func() { logging.EndSpan(span, err) }()

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperrors.InvalidState("patient name is required")
	}
	switch in.PlanType {
	case "":
		in.PlanType = model.PlanTypeStandard
	case model.PlanTypeStandard, model.PlanTypeNoPaywall:
	default:
		return nil, apperrors.InvalidState("unknown plan type %q", in.PlanType)
	}
	free := s.cfg.FreeSessions
	if in.FreeSessions != nil {
		free = *in.FreeSessions
	}
	if free < 0 {
		return nil, apperrors.InvalidState("free sessions must not be negative")
	}

	p := model.Patient{
		Name:              in.Name,
		Email:             strings.TrimSpace(in.Email),
		Phone:             in.Phone,
		PlanType:          in.PlanType,
		AllowanceEligible: in.AllowanceEligible,
	}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Patients.Create(ctx, &p); err != nil {
			return translate("create patient", "patient", err)
		}
		if !p.AllowanceEligible {
			return nil
		}
		a := allowance.New(p.ID, free, s.cfg.SessionUnitCharge)
		return translate("create allowance", "session allowance", tx.Allowances.Create(ctx, &a))
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Info().
		Str("patient_id", p.ID.String()).
		Bool("allowance", p.AllowanceEligible).
		Msg("patient registered")
	return &p, nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.store.Patients.GetByID(ctx, id)
	if err != nil {
		return nil, translate("load patient", "patient", err)
	}
	return p, nil
}

// ListAppointments pages through the patient's appointments, newest first.
func (s *PatientService) ListAppointments(
	ctx context.Context,
	patientID uuid.UUID,
	page, size int,
) (_ calendar.Page[model.Appointment], err error) {
	ctx, span := logging.StartSpan(ctx, "PatientService.ListAppointments",
		attribute.String("patient_id", patientID.String()))
	defer func() { logging.EndSpan(span, err) }()

	if _, err := s.store.Patients.GetByID(ctx, patientID); err != nil {
		return calendar.Page[model.Appointment]{}, translate("load patient", "patient", err)
	}
	page, size = calendar.NormalizePage(page, size)
	items, total, err := s.store.Appointments.ListByPatient(ctx, patientID, size, (page-1)*size)
	if err != nil {
		return calendar.Page[model.Appointment]{}, translate("list appointments", "appointments", err)
	}
	return calendar.NewPage(items, page, size, int(total)), nil
}

// DeletePatient removes the patient with everything that references it.
// Dependent rows go in batches of repository.BatchSize, each batch in its
// own transaction; the patient row goes last. A failure part way leaves the
// patient in place so the call can be repeated.
func (s *PatientService) DeletePatient(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := logging.StartSpan(ctx, "PatientService.DeletePatient",
		attribute.String("patient_id", id.String()))
	defer func() { logging.EndSpan(span, err) }()

	if _, err := s.store.Patients.GetByID(ctx, id); err != nil {
		return translate("load patient", "patient", err)
	}

	steps := []struct {
		what string
		run  func(ctx context.Context, tx *repository.Store) (int64, error)
	}{
		{"session usages", func(ctx context.Context, tx *repository.Store) (int64, error) {
			return tx.Allowances.DeleteUsagesBatchByPatient(ctx, id, repository.BatchSize)
		}},
		{"appointments", func(ctx context.Context, tx *repository.Store) (int64, error) {
			return tx.Appointments.DeleteBatchByPatient(ctx, id, repository.BatchSize)
		}},
		{"billing records", func(ctx context.Context, tx *repository.Store) (int64, error) {
			return tx.Billing.DeleteBatchByPatient(ctx, id, repository.BatchSize)
		}},
		{"events", func(ctx context.Context, tx *repository.Store) (int64, error) {
			return tx.Events.DeleteBatchByPatient(ctx, id, repository.BatchSize)
		}},
	}

	log := s.logger(ctx)
	for _, step := range steps {
		var total int64
		for {
			var n int64
			err := s.store.Transaction(ctx, func(tx *repository.Store) error {
				var err error
				n, err = step.run(ctx, tx)
				return err
			})
			if err != nil {
				return translate("delete "+step.what, step.what, err)
			}
			total += n
			if n < repository.BatchSize {
				break
			}
		}
		log.Debug().Str("patient_id", id.String()).Int64("rows", total).Msgf("deleted %s", step.what)
	}

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Allowances.DeleteByPatient(ctx, id); err != nil {
			return translate("delete allowance", "session allowance", err)
		}
		return translate("delete patient", "patient", tx.Patients.Delete(ctx, id))
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/Leganyst/clinic-scheduling/internal/allowance"
	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/billing"
	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/logging"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/notify"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// SchedulingService books, runs and cancels appointments. Every mutation is
// a single transaction; notifications go out after it commits.
type SchedulingService struct {
	deps
}

func NewSchedulingService(
	store *repository.Store,
	cfg Config,
	notifier notify.Notifier,
	log zerolog.Logger,
) *SchedulingService {
	return &SchedulingService{deps: newDeps(store, cfg, notifier, log)}
}

// ResolveSlots returns the free start minutes of the clinician on date.
func (s *SchedulingService) ResolveSlots(ctx context.Context, clinicianID uuid.UUID, date time.Time) (_ []int, err error) {
	ctx, span := logging.StartSpan(ctx, "SchedulingService.ResolveSlots",
		attribute.String("clinician_id", clinicianID.String()))
	defer func() { logging.EndSpan(span, err) }()

	if _, err := s.store.Clinicians.GetByID(ctx, clinicianID); err != nil {
		return nil, translate("load clinician", "clinician", err)
	}
	day := model.Day(date)
	avail, err := s.store.Availability.GetForDate(ctx, clinicianID, day)
	if repository.IsNotFound(err) {
		return []int{}, nil
	}
	if err != nil {
		return nil, translate("load availability", "availability", err)
	}
	existing, err := s.store.Appointments.ListByClinicianDate(ctx, clinicianID, day)
	if err != nil {
		return nil, translate("load appointments", "appointments", err)
	}
	return calendar.ResolveSlots(avail, day, existing, s.now(), s.cfg.calendarOptions()), nil
}

// CheckBookingEligibility runs the booking checks without writing anything.
// Rejections come back in the Eligibility; only lookups and store failures
// are returned as errors.
func (s *SchedulingService) CheckBookingEligibility(ctx context.Context, req BookingRequest) (_ *Eligibility, err error) {
	ctx, span := logging.StartSpan(ctx, "SchedulingService.CheckBookingEligibility",
		attribute.String("patient_id", req.PatientID.String()),
		attribute.String("clinician_id", req.ClinicianID.String()))
	defer func() { logging.EndSpan(span, err) }()

	if _, err := s.store.Clinicians.GetByID(ctx, req.ClinicianID); err != nil {
		return nil, translate("load clinician", "clinician", err)
	}
	patient, err := s.store.Patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, translate("load patient", "patient", err)
	}

	ev, evalErr := s.evaluate(ctx, s.store, req, *patient, s.now())
	out := &Eligibility{Eligible: evalErr == nil}
	if ev != nil {
		out.CycleState = ev.decision.State
		out.CreatesConsultation = ev.decision.CreateConsultation
	}
	if evalErr == nil {
		return out, nil
	}

	var appErr *apperrors.Error
	if !errors.As(evalErr, &appErr) || appErr.Kind == apperrors.KindPersistenceFailure || appErr.Kind == apperrors.KindNotFound {
		return nil, evalErr
	}
	out.Kind = appErr.Kind
	out.Reason = appErr.Message
	out.Conflict = appErr.Conflict
	return out, nil
}

// ConfirmBooking creates a pending appointment. Clinician and patient rows
// are locked and every check is repeated inside the transaction, so two
// operators racing for one slot cannot both succeed. The first booking of a
// cycle also opens a pending consultation record.
func (s *SchedulingService) ConfirmBooking(ctx context.Context, req BookingRequest) (_ *model.Appointment, err error) {
	ctx, span := logging.StartSpan(ctx, "SchedulingService.ConfirmBooking",
		attribute.String("patient_id", req.PatientID.String()),
		attribute.String("clinician_id", req.ClinicianID.String()),
		attribute.Int("start_minute", req.StartMinute),
		attribute.Bool("override", req.Override))
	defer func() { logging.EndSpan(span, err) }()

	now := s.now()
	var (
		appt            model.Appointment
		patient         *model.Patient
		clinician       *model.Clinician
		newConsultation bool
	)

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if clinician, err = tx.Clinicians.LockByID(ctx, req.ClinicianID); err != nil {
			return translate("lock clinician", "clinician", err)
		}
		if patient, err = tx.Patients.LockByID(ctx, req.PatientID); err != nil {
			return translate("lock patient", "patient", err)
		}

		ev, err := s.evaluate(ctx, tx, req, *patient, now)
		if err != nil {
			return err
		}

		appt = model.Appointment{
			PatientID:       patient.ID,
			ClinicianID:     clinician.ID,
			Date:            datatypes.Date(model.Day(req.Date)),
			StartMinute:     req.StartMinute,
			DurationMinutes: req.DurationMinutes,
			Status:          model.AppointmentStatusPending,
			Comment:         req.Comment,
		}
		if err := tx.Appointments.Create(ctx, &appt); err != nil {
			return translate("create appointment", "appointment", err)
		}

		consultation := ev.facts.Consultation
		if ev.decision.CreateConsultation {
			rec := s.cfg.Policy.NewConsultation(patient.ID, now)
			if err := tx.Billing.Create(ctx, &rec); err != nil {
				return translate("create consultation", "billing record", err)
			}
			consultation = &rec
			newConsultation = true
			// No sweep may have run since the waiting period ended.
			if ev.facts.Consultation != nil && !patient.ReadyForNewAppointment {
				billing.ApplyReset(patient)
			}
			billing.StartCycle(patient)
		}

		if err := refreshRemaining(ctx, tx, patient, consultation); err != nil {
			return translate("count sessions", "appointments", err)
		}
		if err := tx.Patients.Save(ctx, patient); err != nil {
			return translate("save patient", "patient", err)
		}

		return translate("record event", "event", recordEvent(ctx, tx, model.EventTypeBookingCreated, patient.ID, idPtr(appt.ID),
			map[string]any{
				"clinician_id":         clinician.ID.String(),
				"date":                 appt.Day().Format(time.DateOnly),
				"start_minute":         appt.StartMinute,
				"duration_minutes":     appt.DurationMinutes,
				"override":             req.Override,
				"created_consultation": newConsultation,
			}))
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Info().
		Str("appointment_id", appt.ID.String()).
		Str("patient_id", appt.PatientID.String()).
		Str("clinician_id", appt.ClinicianID.String()).
		Bool("new_consultation", newConsultation).
		Msg("appointment booked")

	s.notifier.Notify(ctx, notify.Notification{
		Template: notify.TemplateBookingConfirmed,
		Email:    patient.Email,
		Phone:    patient.Phone,
		Data: map[string]string{
			"name":      patient.Name,
			"clinician": clinician.DisplayName,
			"slot":      slotLabel(appt),
		},
	})
	return &appt, nil
}

// StartAppointment moves a pending appointment to ongoing.
func (s *SchedulingService) StartAppointment(ctx context.Context, id uuid.UUID) (_ *model.Appointment, err error) {
	ctx, span := logging.StartSpan(ctx, "SchedulingService.StartAppointment",
		attribute.String("appointment_id", id.String()))
	defer func() { logging.EndSpan(span, err) }()

	var appt *model.Appointment
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if appt, err = tx.Appointments.LockByID(ctx, id); err != nil {
			return translate("lock appointment", "appointment", err)
		}
		if appt.Status != model.AppointmentStatusPending {
			return apperrors.InvalidState("appointment %s is %s, only pending appointments can start", id, appt.Status)
		}
		if err := tx.Appointments.UpdateStatus(ctx, id, model.AppointmentStatusOngoing, nil); err != nil {
			return translate("start appointment", "appointment", err)
		}
		appt.Status = model.AppointmentStatusOngoing
		return translate("record event", "event",
			recordEvent(ctx, tx, model.EventTypeAppointmentStarted, appt.PatientID, idPtr(id), nil))
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// CompletionResult is the outcome of completing an appointment.
type CompletionResult struct {
	Appointment model.Appointment   `json:"appointment"`
	Usage       *model.SessionUsage `json:"session_usage,omitempty"`
	// Replayed is set when the appointment had already been completed.
	Replayed bool `json:"replayed"`
}

// CompleteAppointment marks the appointment completed and consumes one
// session from the patient's allowance, once per appointment. Completing an
// already completed appointment returns the stored usage and writes nothing.
func (s *SchedulingService) CompleteAppointment(ctx context.Context, id uuid.UUID) (_ *CompletionResult, err error) {
	ctx, span := logging.StartSpan(ctx, "SchedulingService.CompleteAppointment",
		attribute.String("appointment_id", id.String()))
	defer func() { logging.EndSpan(span, err) }()

	now := s.now()
	var (
		result  CompletionResult
		patient *model.Patient
	)
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		appt, err := tx.Appointments.LockByID(ctx, id)
		if err != nil {
			return translate("lock appointment", "appointment", err)
		}

		switch appt.Status {
		case model.AppointmentStatusCancelled:
			return apperrors.InvalidState("appointment %s is cancelled", id)
		case model.AppointmentStatusCompleted:
			usage, err := tx.Allowances.FindUsage(ctx, id)
			if err != nil {
				return translate("load session usage", "session usage", err)
			}
			result = CompletionResult{Appointment: *appt, Usage: usage, Replayed: true}
			return nil
		}

		if patient, err = tx.Patients.LockByID(ctx, appt.PatientID); err != nil {
			return translate("lock patient", "patient", err)
		}
		if err := tx.Appointments.UpdateStatus(ctx, id, model.AppointmentStatusCompleted, &now); err != nil {
			return translate("complete appointment", "appointment", err)
		}
		appt.Status = model.AppointmentStatusCompleted
		appt.CompletedAt = &now
		result.Appointment = *appt

		res, err := allowance.RecordUsage(ctx, tx.Allowances, patient.ID, id, now)
		if err != nil {
			return translate("record session usage", "session allowance", err)
		}
		if res != nil {
			result.Usage = &res.Usage
			if err := recordEvent(ctx, tx, model.EventTypeSessionConsumed, patient.ID, idPtr(id), map[string]any{
				"was_free":                res.WasFree,
				"charge_amount":           res.Usage.ChargeAmount.String(),
				"free_sessions_remaining": res.Usage.FreeSessionsRemaining,
				"pending_paid_sessions":   res.Usage.PendingPaidSessions,
			}); err != nil {
				return translate("record event", "event", err)
			}
		}

		facts, _, err := loadFacts(ctx, tx, *patient)
		if err != nil {
			return translate("load billing records", "billing records", err)
		}
		if err := refreshRemaining(ctx, tx, patient, facts.Consultation); err != nil {
			return translate("count sessions", "appointments", err)
		}
		if err := tx.Patients.Save(ctx, patient); err != nil {
			return translate("save patient", "patient", err)
		}
		return translate("record event", "event",
			recordEvent(ctx, tx, model.EventTypeAppointmentCompleted, patient.ID, idPtr(id), nil))
	})
	if err != nil {
		return nil, err
	}
	if result.Replayed {
		return &result, nil
	}

	data := map[string]string{"name": patient.Name, "slot": slotLabel(result.Appointment), "allowance": ""}
	if u := result.Usage; u != nil {
		if u.WasFree {
			data["allowance"] = fmt.Sprintf("Free sessions left: %d.", u.FreeSessionsRemaining)
		} else {
			data["allowance"] = fmt.Sprintf("Session charge: %s.", u.ChargeAmount)
		}
	}
	s.notifier.Notify(ctx, notify.Notification{
		Template: notify.TemplateAppointmentCompleted,
		Email:    patient.Email,
		Phone:    patient.Phone,
		Data:     data,
	})
	return &result, nil
}

// CancelAppointment cancels a pending or ongoing appointment. Allowance is
// never touched; cancelling twice is a no-op.
func (s *SchedulingService) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (_ *model.Appointment, err error) {
	ctx, span := logging.StartSpan(ctx, "SchedulingService.CancelAppointment",
		attribute.String("appointment_id", id.String()))
	defer func() { logging.EndSpan(span, err) }()

	now := s.now()
	var (
		appt    *model.Appointment
		patient *model.Patient
		changed bool
	)
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if appt, err = tx.Appointments.LockByID(ctx, id); err != nil {
			return translate("lock appointment", "appointment", err)
		}
		switch appt.Status {
		case model.AppointmentStatusCancelled:
			return nil
		case model.AppointmentStatusCompleted:
			return apperrors.InvalidState("appointment %s is already completed", id)
		}

		if patient, err = tx.Patients.LockByID(ctx, appt.PatientID); err != nil {
			return translate("lock patient", "patient", err)
		}
		if _, err := tx.Appointments.CancelByIDs(ctx, []uuid.UUID{id}, now, reason); err != nil {
			return translate("cancel appointment", "appointment", err)
		}
		appt.Status = model.AppointmentStatusCancelled
		appt.CancelledAt = &now
		if reason != "" {
			appt.Comment = reason
		}
		changed = true

		if err := s.refreshPatient(ctx, tx, patient); err != nil {
			return err
		}
		return translate("record event", "event",
			recordEvent(ctx, tx, model.EventTypeAppointmentCancelled, appt.PatientID, idPtr(id),
				map[string]any{"reason": reason}))
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifyCancelled(ctx, *patient, *appt, reason)
	}
	return appt, nil
}

// DeleteAppointment removes the appointment row for good.
func (s *SchedulingService) DeleteAppointment(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := logging.StartSpan(ctx, "SchedulingService.DeleteAppointment",
		attribute.String("appointment_id", id.String()))
	defer func() { logging.EndSpan(span, err) }()

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		appt, err := tx.Appointments.LockByID(ctx, id)
		if err != nil {
			return translate("lock appointment", "appointment", err)
		}
		patient, err := tx.Patients.LockByID(ctx, appt.PatientID)
		if err != nil {
			return translate("lock patient", "patient", err)
		}
		if err := tx.Appointments.Delete(ctx, id); err != nil {
			return translate("delete appointment", "appointment", err)
		}
		if err := s.refreshPatient(ctx, tx, patient); err != nil {
			return err
		}
		return translate("record event", "event",
			recordEvent(ctx, tx, model.EventTypeAppointmentDeleted, appt.PatientID, idPtr(id), map[string]any{
				"status": string(appt.Status),
				"date":   appt.Day().Format(time.DateOnly),
			}))
	})
}

// AffectedAppointment is one appointment cancelled in bulk, with the
// contacts needed to tell the patient.
type AffectedAppointment struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	PatientName   string    `json:"patient_name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Date          time.Time `json:"date"`
	StartMinute   int       `json:"start_minute"`
}

// BulkCancelResult reports a bulk cancellation.
type BulkCancelResult struct {
	Cancelled int                   `json:"cancelled"`
	Affected  []AffectedAppointment `json:"affected"`
}

// BulkCancelClinicianAppointments cancels every open appointment of the
// clinician between two dates, both inclusive. Appointments are processed in
// batches, each in its own transaction.
func (s *SchedulingService) BulkCancelClinicianAppointments(
	ctx context.Context,
	clinicianID uuid.UUID,
	from, to time.Time,
	reason string,
) (_ *BulkCancelResult, err error) {
	ctx, span := logging.StartSpan(ctx, "SchedulingService.BulkCancelClinicianAppointments",
		attribute.String("clinician_id", clinicianID.String()))
	defer func() { logging.EndSpan(span, err) }()

	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return nil, apperrors.InvalidState("end date must not be before start date")
	}
	if _, err := s.store.Clinicians.GetByID(ctx, clinicianID); err != nil {
		return nil, translate("load clinician", "clinician", err)
	}
	open, err := s.store.Appointments.ListOpenByClinicianRange(ctx, clinicianID, from, to)
	if err != nil {
		return nil, translate("list appointments", "appointments", err)
	}

	now := s.now()
	result := &BulkCancelResult{Affected: []AffectedAppointment{}}
	patients := map[uuid.UUID]model.Patient{}

	for _, batch := range repository.Chunk(open, repository.BatchSize) {
		ids := make([]uuid.UUID, 0, len(batch))
		for _, a := range batch {
			ids = append(ids, a.ID)
		}

		// Rows may have been completed or cancelled since the listing.
		var locked []model.Appointment
		err := s.store.Transaction(ctx, func(tx *repository.Store) error {
			var err error
			if locked, err = tx.Appointments.LockOpenByIDs(ctx, ids); err != nil {
				return translate("lock appointments", "appointments", err)
			}
			lockedIDs := make([]uuid.UUID, 0, len(locked))
			for _, a := range locked {
				lockedIDs = append(lockedIDs, a.ID)
			}
			if _, err := tx.Appointments.CancelByIDs(ctx, lockedIDs, now, reason); err != nil {
				return translate("cancel appointments", "appointments", err)
			}
			touched := map[uuid.UUID]bool{}
			for _, a := range locked {
				if err := recordEvent(ctx, tx, model.EventTypeAppointmentCancelled, a.PatientID, idPtr(a.ID),
					map[string]any{"reason": reason, "bulk": true}); err != nil {
					return translate("record event", "event", err)
				}
				if touched[a.PatientID] {
					continue
				}
				touched[a.PatientID] = true
				p, err := tx.Patients.LockByID(ctx, a.PatientID)
				if err != nil {
					return translate("lock patient", "patient", err)
				}
				if err := s.refreshPatient(ctx, tx, p); err != nil {
					return err
				}
				patients[p.ID] = *p
			}
			return nil
		})
		if err != nil {
			return result, err
		}
		result.Cancelled += len(locked)

		for _, a := range locked {
			p := patients[a.PatientID]
			result.Affected = append(result.Affected, AffectedAppointment{
				AppointmentID: a.ID,
				PatientID:     a.PatientID,
				PatientName:   p.Name,
				Email:         p.Email,
				Phone:         p.Phone,
				Date:          a.Day(),
				StartMinute:   a.StartMinute,
			})
			a.Status = model.AppointmentStatusCancelled
			s.notifyCancelled(ctx, p, a, reason)
		}
	}

	s.logger(ctx).Info().
		Str("clinician_id", clinicianID.String()).
		Int("cancelled", result.Cancelled).
		Msg("bulk cancellation finished")
	return result, nil
}

// refreshPatient recomputes the display projection and saves the patient.
func (s *SchedulingService) refreshPatient(ctx context.Context, tx *repository.Store, p *model.Patient) error {
	if p.TotalSessions == nil {
		return nil
	}
	facts, _, err := loadFacts(ctx, tx, *p)
	if err != nil {
		return translate("load billing records", "billing records", err)
	}
	if err := refreshRemaining(ctx, tx, p, facts.Consultation); err != nil {
		return translate("count sessions", "appointments", err)
	}
	return translate("save patient", "patient", tx.Patients.Save(ctx, p))
}

func (s *SchedulingService) notifyCancelled(ctx context.Context, p model.Patient, a model.Appointment, reason string) {
	s.notifier.Notify(ctx, notify.Notification{
		Template: notify.TemplateAppointmentCancelled,
		Email:    p.Email,
		Phone:    p.Phone,
		Data: map[string]string{
			"name":   p.Name,
			"slot":   slotLabel(a),
			"reason": reason,
		},
	})
}

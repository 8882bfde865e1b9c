package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Leganyst/clinic-scheduling/internal/allowance"
	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/billing"
	"github.com/Leganyst/clinic-scheduling/internal/logging"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/notify"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// BillingService records payments, sets up packages and runs the cycle
// reconciliation sweep.
type BillingService struct {
	deps
}

func NewBillingService(
	store *repository.Store,
	cfg Config,
	notifier notify.Notifier,
	log zerolog.Logger,
) *BillingService {
	return &BillingService{deps: newDeps(store, cfg, notifier, log)}
}

// RecordPayment adds a payment to a billing record. Partial payments
// accumulate; the record completes once the payable amount is covered.
func (s *BillingService) RecordPayment(ctx context.Context, billingID uuid.UUID, amount model.Money) (_ *model.BillingRecord, err error) {
	ctx, span := logging.StartSpan(ctx, "BillingService.RecordPayment",
		attribute.String("billing_id", billingID.String()),
		attribute.Int64("amount", int64(amount)))
	defer func() { logging.EndSpan(span, err) }()

	now := s.now()
	var (
		rec     *model.BillingRecord
		patient *model.Patient
	)
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if rec, err = tx.Billing.GetByID(ctx, billingID); err != nil {
			return translate("load billing record", "billing record", err)
		}
		if patient, err = tx.Patients.LockByID(ctx, rec.PatientID); err != nil {
			return translate("lock patient", "patient", err)
		}
		if rec, err = tx.Billing.LockByID(ctx, billingID); err != nil {
			return translate("lock billing record", "billing record", err)
		}
		if err := billing.ApplyPayment(rec, amount, now); err != nil {
			return err
		}
		if err := tx.Billing.Save(ctx, rec); err != nil {
			return translate("save billing record", "billing record", err)
		}
		return translate("record event", "event",
			recordEvent(ctx, tx, model.EventTypePaymentRecorded, rec.PatientID, nil, map[string]any{
				"billing_id":  rec.ID.String(),
				"kind":        string(rec.Kind),
				"amount":      amount.String(),
				"amount_paid": rec.AmountPaid.String(),
				"status":      string(rec.Status),
			}))
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Notification{
		Template: notify.TemplatePaymentReceived,
		Email:    patient.Email,
		Phone:    patient.Phone,
		Data: map[string]string{
			"name":        patient.Name,
			"amount":      amount.String(),
			"kind":        string(rec.Kind),
			"outstanding": rec.Outstanding().String(),
		},
	})
	return rec, nil
}

// PackageRequest describes a prepaid package for the current cycle.
type PackageRequest struct {
	Amount            model.Money `json:"amount"`
	ConcessionPercent *float64    `json:"concession_percent,omitempty"`
	TotalSessions     *int        `json:"total_sessions,omitempty"`
}

// SetupPackage opens the package record of the current cycle. The cycle's
// consultation must be paid unless the patient's plan is exempt, and a cycle
// holds at most one package.
func (s *BillingService) SetupPackage(ctx context.Context, patientID uuid.UUID, req PackageRequest) (_ *model.BillingRecord, err error) {
	ctx, span := logging.StartSpan(ctx, "BillingService.SetupPackage",
		attribute.String("patient_id", patientID.String()))
	defer func() { logging.EndSpan(span, err) }()

	if req.TotalSessions != nil && *req.TotalSessions <= 0 {
		return nil, apperrors.InvalidState("total sessions must be positive")
	}

	now := s.now()
	var rec model.BillingRecord
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		patient, err := tx.Patients.LockByID(ctx, patientID)
		if err != nil {
			return translate("lock patient", "patient", err)
		}
		facts, _, err := loadFacts(ctx, tx, *patient)
		if err != nil {
			return translate("load billing records", "billing records", err)
		}

		switch c := facts.Consultation; {
		case c == nil:
			return apperrors.CycleBlocked("no consultation on record")
		case !c.Completed() && !patient.Exempt():
			return apperrors.CycleBlocked("consultation payment pending")
		}
		if facts.Package != nil {
			return apperrors.DuplicateBillingRecord(model.BillingKindPackage)
		}

		if rec, err = billing.NewPackage(patient.ID, req.Amount, req.ConcessionPercent, now); err != nil {
			return err
		}
		if err := tx.Billing.Create(ctx, &rec); err != nil {
			return translate("create package", "billing record", err)
		}

		amount := req.Amount
		patient.PaymentType = model.PaymentTypePackage
		patient.PackageAmount = &amount
		patient.ConcessionPercent = rec.ConcessionPercent
		patient.TotalSessions = req.TotalSessions
		if err := refreshRemaining(ctx, tx, patient, facts.Consultation); err != nil {
			return translate("count sessions", "appointments", err)
		}
		if err := tx.Patients.Save(ctx, patient); err != nil {
			return translate("save patient", "patient", err)
		}
		return translate("record event", "event",
			recordEvent(ctx, tx, model.EventTypePackageCreated, patient.ID, nil, map[string]any{
				"billing_id": rec.ID.String(),
				"total":      rec.TotalAmount.String(),
				"payable":    rec.PayableAmount.String(),
			}))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CycleStatus is the derived billing view of one patient.
type CycleStatus struct {
	PatientID              uuid.UUID               `json:"patient_id"`
	State                  billing.CycleState      `json:"state"`
	CanBookNewConsultation bool                    `json:"can_book_new_consultation"`
	ReadyForNewAppointment bool                    `json:"ready_for_new_appointment"`
	Consultation           *model.BillingRecord    `json:"consultation,omitempty"`
	Package                *model.BillingRecord    `json:"package,omitempty"`
	PackageStatus          billing.PackageStatus   `json:"package_status"`
	RemainingSessions      *int                    `json:"remaining_sessions,omitempty"`
	Allowance              *model.SessionAllowance `json:"allowance,omitempty"`
}

// CycleStatus derives the cycle state from stored facts.
func (s *BillingService) CycleStatus(ctx context.Context, patientID uuid.UUID) (_ *CycleStatus, err error) {
	ctx, span := logging.StartSpan(ctx, "BillingService.CycleStatus",
		attribute.String("patient_id", patientID.String()))
	defer func() { logging.EndSpan(span, err) }()

	patient, err := s.store.Patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, translate("load patient", "patient", err)
	}
	facts, _, err := loadFacts(ctx, s.store, *patient)
	if err != nil {
		return nil, translate("load billing records", "billing records", err)
	}
	allow, err := s.store.Allowances.FindAllowance(ctx, patientID)
	if err != nil {
		return nil, translate("load allowance", "session allowance", err)
	}

	now := s.now()
	return &CycleStatus{
		PatientID:              patient.ID,
		State:                  s.cfg.Policy.State(facts, now),
		CanBookNewConsultation: s.cfg.Policy.CanBookNewConsultation(facts, now),
		ReadyForNewAppointment: patient.ReadyForNewAppointment,
		Consultation:           facts.Consultation,
		Package:                facts.Package,
		PackageStatus:          billing.StatusOfPackage(facts.Package),
		RemainingSessions:      patient.RemainingSessions,
		Allowance:              allow,
	}, nil
}

// ReconcileReport summarises one sweep.
type ReconcileReport struct {
	Scanned int         `json:"scanned"`
	Reset   []uuid.UUID `json:"reset"`
	Failed  int         `json:"failed"`
}

// ReconcileCycles marks patients whose waiting period has passed as ready
// for a new consultation. Each patient is handled in its own transaction
// under its row lock, so the sweep can run next to live bookings. Running it
// twice changes nothing the second time.
func (s *BillingService) ReconcileCycles(ctx context.Context, now time.Time) (_ *ReconcileReport, err error) {
	ctx, span := logging.StartSpan(ctx, "BillingService.ReconcileCycles")
	defer func() { logging.EndSpan(span, err) }()

	log := s.logger(ctx)
	report := &ReconcileReport{Reset: []uuid.UUID{}}
	after := uuid.Nil

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page, err := s.store.Patients.ListNotReady(ctx, after, repository.BatchSize)
		if err != nil {
			return report, translate("list patients", "patients", err)
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].ID

		for _, p := range page {
			report.Scanned++
			reset, patient, err := s.reconcileOne(ctx, p.ID, now)
			if err != nil {
				report.Failed++
				log.Error().Err(err).Str("patient_id", p.ID.String()).Msg("cycle reconciliation failed")
				continue
			}
			if !reset {
				continue
			}
			report.Reset = append(report.Reset, p.ID)
			s.notifier.Notify(ctx, notify.Notification{
				Template: notify.TemplateCycleReset,
				Email:    patient.Email,
				Phone:    patient.Phone,
				Data:     map[string]string{"name": patient.Name},
			})
		}
	}

	log.Info().
		Int("scanned", report.Scanned).
		Int("reset", len(report.Reset)).
		Int("failed", report.Failed).
		Msg("cycle reconciliation finished")
	return report, nil
}

func (s *BillingService) reconcileOne(ctx context.Context, patientID uuid.UUID, now time.Time) (bool, *model.Patient, error) {
	var (
		reset   bool
		patient *model.Patient
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if patient, err = tx.Patients.LockByID(ctx, patientID); err != nil {
			return translate("lock patient", "patient", err)
		}
		facts, _, err := loadFacts(ctx, tx, *patient)
		if err != nil {
			return translate("load billing records", "billing records", err)
		}
		if !s.cfg.Policy.ShouldReset(facts, now) {
			return nil
		}
		billing.ApplyReset(patient)
		if err := tx.Patients.Save(ctx, patient); err != nil {
			return translate("save patient", "patient", err)
		}
		reset = true
		return translate("record event", "event",
			recordEvent(ctx, tx, model.EventTypeCycleReset, patient.ID, nil, map[string]any{
				"consultation_id":   facts.Consultation.ID.String(),
				"consultation_date": facts.Consultation.CreatedDate.Format(time.DateOnly),
			}))
	})
	return reset, patient, err
}

// SettleResult reports a settled allowance balance.
type SettleResult struct {
	Allowance model.SessionAllowance `json:"allowance"`
	Settled   model.Money            `json:"settled"`
}

// SettleAllowance clears the pending paid-session balance once staff have
// collected it. Free sessions are not restored.
func (s *BillingService) SettleAllowance(ctx context.Context, patientID uuid.UUID) (_ *SettleResult, err error) {
	ctx, span := logging.StartSpan(ctx, "BillingService.SettleAllowance",
		attribute.String("patient_id", patientID.String()))
	defer func() { logging.EndSpan(span, err) }()

	var out SettleResult
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Patients.LockByID(ctx, patientID); err != nil {
			return translate("lock patient", "patient", err)
		}
		current, err := tx.Allowances.FindAllowance(ctx, patientID)
		if err != nil {
			return translate("load allowance", "session allowance", err)
		}
		if current == nil {
			return apperrors.NotFound("session allowance")
		}
		updated, owed := allowance.Settle(*current)
		ok, err := tx.Allowances.UpdateAllowanceIfVersion(ctx, &updated, current.Version)
		if err != nil {
			return translate("settle allowance", "session allowance", err)
		}
		if !ok {
			return apperrors.Persistence("settle allowance", allowance.ErrStaleAllowance)
		}
		out = SettleResult{Allowance: updated, Settled: owed}
		return translate("record event", "event",
			recordEvent(ctx, tx, model.EventTypeAllowanceSettled, patientID, nil, map[string]any{
				"settled": owed.String(),
			}))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/config"
	"github.com/Leganyst/clinic-scheduling/internal/db"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/notify"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// Sunday noon; the next day is the first bookable Monday.
var (
	testNow = time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	monday  = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Template)
	}
	return out
}

type testEnv struct {
	store      *repository.Store
	now        *time.Time
	notes      *recordingNotifier
	scheduling *SchedulingService
	billing    *BillingService
	patients   *PatientService
	clinicians *ClinicianService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.NewGormDB(&config.DBConfig{Driver: config.DriverSQLite, SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := model.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	now := testNow
	cfg := DefaultConfig()
	cfg.FreeSessions = 1
	cfg.SessionUnitCharge = 3000
	cfg.Now = func() time.Time { return now }

	store := repository.NewStore(gdb)
	notes := &recordingNotifier{}
	log := zerolog.Nop()
	return &testEnv{
		store:      store,
		now:        &now,
		notes:      notes,
		scheduling: NewSchedulingService(store, cfg, notes, log),
		billing:    NewBillingService(store, cfg, notes, log),
		patients:   NewPatientService(store, cfg, notes, log),
		clinicians: NewClinicianService(store, cfg, notes, log),
	}
}

func (e *testEnv) clinicianWithWindow(t *testing.T, date time.Time, windows ...model.TimeWindow) *model.Clinician {
	t.Helper()
	ctx := context.Background()
	c, err := e.clinicians.RegisterClinician(ctx, NewClinician{DisplayName: "Dr. Lee", Email: "lee@clinic.test"})
	if err != nil {
		t.Fatalf("register clinician: %v", err)
	}
	if _, err := e.clinicians.SetAvailability(ctx, c.ID, date, true, windows); err != nil {
		t.Fatalf("set availability: %v", err)
	}
	return c
}

func (e *testEnv) patient(t *testing.T, in NewPatient) *model.Patient {
	t.Helper()
	if in.Name == "" {
		in.Name = "Ann"
	}
	p, err := e.patients.RegisterPatient(context.Background(), in)
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}
	return p
}

func (e *testEnv) book(t *testing.T, patientID, clinicianID uuid.UUID, date time.Time, start, dur int) *model.Appointment {
	t.Helper()
	a, err := e.scheduling.ConfirmBooking(context.Background(), BookingRequest{
		PatientID:       patientID,
		ClinicianID:     clinicianID,
		Date:            date,
		StartMinute:     start,
		DurationMinutes: dur,
	})
	if err != nil {
		t.Fatalf("book %d+%d: %v", start, dur, err)
	}
	return a
}

func (e *testEnv) seedConsultation(t *testing.T, patientID uuid.UUID, created time.Time, status model.BillingStatus) model.BillingRecord {
	t.Helper()
	rec := model.BillingRecord{
		PatientID:     patientID,
		Kind:          model.BillingKindConsultation,
		TotalAmount:   50000,
		PayableAmount: 50000,
		Status:        status,
		CreatedDate:   created,
	}
	if status == model.BillingStatusCompleted {
		rec.AmountPaid = rec.PayableAmount
	}
	if err := e.store.Billing.Create(context.Background(), &rec); err != nil {
		t.Fatalf("seed consultation: %v", err)
	}
	return rec
}

func window(start, end int) model.TimeWindow {
	return model.TimeWindow{Start: start, End: end}
}

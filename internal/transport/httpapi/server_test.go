package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/config"
	"github.com/Leganyst/clinic-scheduling/internal/db"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/notify"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

var testNow = time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*echo.Echo, Services) {
	t.Helper()
	gdb, err := db.NewGormDB(&config.DBConfig{Driver: config.DriverSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := service.DefaultConfig()
	cfg.Now = func() time.Time { return testNow }
	store := repository.NewStore(gdb)
	log := zerolog.Nop()

	svc := Services{
		Scheduling: service.NewSchedulingService(store, cfg, notify.Discard{}, log),
		Billing:    service.NewBillingService(store, cfg, notify.Discard{}, log),
		Patients:   service.NewPatientService(store, cfg, notify.Discard{}, log),
		Clinicians: service.NewClinicianService(store, cfg, notify.Discard{}, log),
	}
	svc.Reconcile = func(ctx context.Context) (*service.ReconcileReport, error) {
		return svc.Billing.ReconcileCycles(ctx, testNow)
	}
	return New(svc, log), svc
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seed(t *testing.T, e *echo.Echo) (clinicianID, patientID string) {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/v1/clinicians", `{"display_name":"Dr. Lee"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	clinicianID = decode[model.Clinician](t, rec).ID.String()

	rec = do(t, e, http.MethodPut, "/api/v1/clinicians/"+clinicianID+"/availability/2025-01-06",
		`{"enabled":true,"windows":[{"start":"09:00","end":"10:00"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/v1/patients", `{"name":"Ann","email":"ann@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	patientID = decode[model.Patient](t, rec).ID.String()
	return clinicianID, patientID
}

func bookingJSON(patientID, clinicianID, start string) string {
	return `{"patient_id":"` + patientID + `","clinician_id":"` + clinicianID +
		`","date":"2025-01-06","start":"` + start + `","duration_minutes":30}`
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookingFlow(t *testing.T) {
	e, _ := newTestServer(t)
	clinicianID, patientID := seed(t, e)

	rec := do(t, e, http.MethodGet, "/api/v1/clinicians/"+clinicianID+"/slots?date=2025-01-06", "")
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[slotsResponse](t, rec)
	assert.Equal(t, []int{540, 570}, slots.Minutes)
	assert.Equal(t, []string{"09:00", "09:30"}, slots.Times)

	rec = do(t, e, http.MethodPost, "/api/v1/appointments", bookingJSON(patientID, clinicianID, "09:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decode[model.Appointment](t, rec)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)

	rec = do(t, e, http.MethodPost, "/api/v1/appointments", bookingJSON(patientID, clinicianID, "09:30"))
	require.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	assert.Equal(t, apperrors.KindCycleBlocked, body.Kind)
	assert.False(t, body.Retryable)

	rec = do(t, e, http.MethodPost, "/api/v1/appointments/eligibility", bookingJSON(patientID, clinicianID, "09:30"))
	require.Equal(t, http.StatusOK, rec.Code)
	elig := decode[service.Eligibility](t, rec)
	assert.False(t, elig.Eligible)

	rec = do(t, e, http.MethodGet, "/api/v1/patients/"+patientID+"/cycle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[service.CycleStatus](t, rec)
	require.NotNil(t, st.Consultation)

	rec = do(t, e, http.MethodPost, "/api/v1/billing/"+st.Consultation.ID.String()+"/payments", `{"amount":50000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/v1/appointments", bookingJSON(patientID, clinicianID, "09:30"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/v1/appointments/"+appt.ID.String()+"/complete", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/v1/appointments/"+appt.ID.String()+"/cancel", `{"reason":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/v1/patients/"+patientID+"/appointments?page=1&page_size=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items   []model.Appointment `json:"items"`
		Total   int                 `json:"total"`
		HasNext bool                `json:"has_next"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasNext)
}

func TestConflictReturnsExistingAppointment(t *testing.T) {
	e, _ := newTestServer(t)
	clinicianID, patientID := seed(t, e)

	rec := do(t, e, http.MethodPost, "/api/v1/patients", `{"name":"Bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	other := decode[model.Patient](t, rec).ID.String()

	rec = do(t, e, http.MethodPost, "/api/v1/appointments", bookingJSON(patientID, clinicianID, "09:00"))
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[model.Appointment](t, rec)

	rec = do(t, e, http.MethodPost, "/api/v1/appointments", bookingJSON(other, clinicianID, "09:00"))
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, apperrors.KindConflictWarning, body.Kind)
	require.NotNil(t, body.Conflict)
	assert.Equal(t, first.ID, body.Conflict.ID)
}

func TestBadInput(t *testing.T) {
	e, _ := newTestServer(t)
	clinicianID, patientID := seed(t, e)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/v1/patients/not-a-uuid", "", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/patients/" + uuid.NewString(), "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/clinicians/" + clinicianID + "/slots", "", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/clinicians/" + clinicianID + "/slots?date=06.01.2025", "", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/appointments", bookingJSON(patientID, clinicianID, "9am"), http.StatusBadRequest},
		{http.MethodPost, "/api/v1/appointments", bookingJSON(patientID, clinicianID, "11:00"), http.StatusUnprocessableEntity},
		{http.MethodPost, "/api/v1/appointments", `{"patient_id":`, http.StatusBadRequest},
		{http.MethodPut, "/api/v1/clinicians/" + clinicianID + "/availability/2025-01-07",
			`{"enabled":true,"windows":[{"start":"25:00","end":"10:00"}]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := do(t, e, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
	}
}

func TestReconcileEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	seed(t, e)

	rec := do(t, e, http.MethodPost, "/api/v1/admin/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[service.ReconcileReport](t, rec)
	assert.Equal(t, 1, report.Scanned)
	assert.Empty(t, report.Reset)
}

func TestStatusOf(t *testing.T) {
	cases := map[apperrors.Kind]int{
		apperrors.KindNotFound:               http.StatusNotFound,
		apperrors.KindCycleBlocked:           http.StatusPaymentRequired,
		apperrors.KindConflictWarning:        http.StatusConflict,
		apperrors.KindDuplicateBillingRecord: http.StatusConflict,
		apperrors.KindSlotUnavailable:        http.StatusUnprocessableEntity,
		apperrors.KindInvalidState:           http.StatusUnprocessableEntity,
		apperrors.KindPersistenceFailure:     http.StatusServiceUnavailable,
		"":                                   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusOf(kind), kind)
	}
}

package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func TestRegisterPatient(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	p, err := env.patients.RegisterPatient(ctx, NewPatient{Name: "  Ann  ", Phone: "+7 (900) 111-22-33", AllowanceEligible: true})
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, model.PlanTypeStandard, p.PlanType)

	a, err := env.store.Allowances.FindAllowance(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 1, a.FreeSessionsRemaining)
	assert.Equal(t, model.Money(3000), a.UnitCharge)

	five := 5
	custom, err := env.patients.RegisterPatient(ctx, NewPatient{Name: "Bob", AllowanceEligible: true, FreeSessions: &five})
	require.NoError(t, err)
	a, err = env.store.Allowances.FindAllowance(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, a.FreeSessionsRemaining)

	plain, err := env.patients.RegisterPatient(ctx, NewPatient{Name: "Cid"})
	require.NoError(t, err)
	a, err = env.store.Allowances.FindAllowance(ctx, plain.ID)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestRegisterPatient_Rejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	negative := -1

	cases := []NewPatient{
		{Name: " "},
		{Name: "Ann", PlanType: "gold"},
		{Name: "Ann", AllowanceEligible: true, FreeSessions: &negative},
	}
	for _, in := range cases {
		_, err := env.patients.RegisterPatient(ctx, in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState, "%+v", in)
	}
}

func TestListAppointments_Pages(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.clinicianWithWindow(t, monday, window(540, 720))
	p := env.patient(t, NewPatient{PlanType: model.PlanTypeNoPaywall})

	for _, start := range []int{540, 570, 600} {
		env.book(t, p.ID, c.ID, monday, start, 30)
	}

	page, err := env.patients.ListAppointments(ctx, p.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)

	page, err = env.patients.ListAppointments(ctx, p.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)

	_, err = env.patients.ListAppointments(ctx, uuid.New(), 1, 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeletePatient_RemovesEverything(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.clinicianWithWindow(t, monday, window(540, 720))
	p := env.patient(t, NewPatient{AllowanceEligible: true, PlanType: model.PlanTypeNoPaywall})
	other := env.patient(t, NewPatient{Name: "Other"})

	appt := env.book(t, p.ID, c.ID, monday, 540, 30)
	_, err := env.scheduling.CompleteAppointment(ctx, appt.ID)
	require.NoError(t, err)
	keep := env.book(t, other.ID, c.ID, monday, 600, 30)

	require.NoError(t, env.patients.DeletePatient(ctx, p.ID))

	_, err = env.patients.GetPatient(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	a, err := env.store.Allowances.FindAllowance(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, a)
	u, err := env.store.Allowances.FindUsage(ctx, appt.ID)
	require.NoError(t, err)
	assert.Nil(t, u)

	records, err := env.store.Billing.ListByPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	events, err := env.store.Events.ListByPatient(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = env.store.Appointments.GetByID(ctx, keep.ID)
	assert.NoError(t, err, "other patients' appointments stay")

	assert.ErrorIs(t, env.patients.DeletePatient(ctx, p.ID), apperrors.ErrNotFound)
}

func TestSetAvailability(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c, err := env.clinicians.RegisterClinician(ctx, NewClinician{DisplayName: "Dr. Kim"})
	require.NoError(t, err)

	_, err = env.clinicians.SetAvailability(ctx, c.ID, monday, true, []model.TimeWindow{{Start: -30, End: 60}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = env.clinicians.SetAvailability(ctx, uuid.New(), monday, true, []model.TimeWindow{window(540, 600)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	saved, err := env.clinicians.SetAvailability(ctx, c.ID, monday.Add(15*time.Hour), true, []model.TimeWindow{window(540, 600)})
	require.NoError(t, err)
	assert.True(t, monday.Equal(time.Time(saved.Date)))

	saved, err = env.clinicians.SetAvailability(ctx, c.ID, monday, false, nil)
	require.NoError(t, err)
	assert.False(t, saved.Enabled)

	slots, err := env.scheduling.ResolveSlots(ctx, c.ID, monday)
	require.NoError(t, err)
	assert.Empty(t, slots, "a disabled day has no slots")
}

func TestApplyWeeklyTemplate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c, err := env.clinicians.RegisterClinician(ctx, NewClinician{DisplayName: "Dr. Kim"})
	require.NoError(t, err)

	tpl := calendar.WeeklyTemplate{
		Weekdays:   []time.Weekday{time.Monday, time.Wednesday},
		Windows:    []model.TimeWindow{window(540, 600)},
		Exceptions: []time.Time{monday.AddDate(0, 0, 2)},
	}
	n, err := env.clinicians.ApplyWeeklyTemplate(ctx, c.ID, tpl, monday, monday.AddDate(0, 0, 13))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := env.clinicians.Availability(ctx, c.ID, monday, monday.AddDate(0, 0, 13))
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	slots, err := env.scheduling.ResolveSlots(ctx, c.ID, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, []int{540, 570}, slots)

	_, err = env.clinicians.ApplyWeeklyTemplate(ctx, c.ID, tpl, monday, monday.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestListClinicians(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, name := range []string{"Dr. A", "Dr. B", "Dr. C"} {
		_, err := env.clinicians.RegisterClinician(ctx, NewClinician{DisplayName: name})
		require.NoError(t, err)
	}

	page, err := env.clinicians.ListClinicians(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)

	_, err = env.clinicians.RegisterClinician(ctx, NewClinician{DisplayName: "  "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRegisterPatient_LogsThroughServiceLogger(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	svc := NewPatientService(env.store, DefaultConfig(), env.notes, zerolog.New(&buf))

	p, err := svc.RegisterPatient(context.Background(), NewPatient{Name: "Dana"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "patient registered")
	assert.Contains(t, buf.String(), p.ID.String())
}

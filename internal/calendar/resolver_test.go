package calendar

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func mustDate(t *testing.T, year int, month time.Month, day int) time.Time {
	t.Helper()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func availability(clinicianID uuid.UUID, date time.Time, windows ...model.TimeWindow) *model.ClinicianAvailability {
	return &model.ClinicianAvailability{
		ClinicianID: clinicianID,
		Date:        datatypes.Date(date),
		Enabled:     true,
		Windows:     datatypes.JSONSlice[model.TimeWindow](windows),
	}
}

func appointment(clinicianID uuid.UUID, date time.Time, start, dur int, status model.AppointmentStatus) model.Appointment {
	return model.Appointment{
		ID:              uuid.New(),
		ClinicianID:     clinicianID,
		Date:            datatypes.Date(date),
		StartMinute:     start,
		DurationMinutes: dur,
		Status:          status,
	}
}

// A day earlier than every test date so the past filter never applies.
var longAgo = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func TestResolveSlots_SingleWindow(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 9 * 60, End: 10 * 60})

	got := ResolveSlots(avail, date, nil, longAgo, Options{})
	want := []int{540, 570}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestResolveSlots_ExistingAppointmentRemovesSlot(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 540, End: 600})
	existing := []model.Appointment{appointment(clin, date, 540, 30, model.AppointmentStatusPending)}

	got := ResolveSlots(avail, date, existing, longAgo, Options{})
	if !reflect.DeepEqual(got, []int{570}) {
		t.Fatalf("slots = %v, want [570]", got)
	}
}

func TestResolveSlots_IgnoresCancelledAndOtherClinicians(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 540, End: 600})
	existing := []model.Appointment{
		appointment(clin, date, 540, 30, model.AppointmentStatusCancelled),
		appointment(uuid.New(), date, 570, 30, model.AppointmentStatusPending),
		appointment(clin, date.AddDate(0, 0, 1), 570, 30, model.AppointmentStatusPending),
	}

	got := ResolveSlots(avail, date, existing, longAgo, Options{})
	if !reflect.DeepEqual(got, []int{540, 570}) {
		t.Fatalf("slots = %v, want [540 570]", got)
	}
}

func TestResolveSlots_OccupiedSpanExpandsToBlocks(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 540, End: 660})
	// 09:40–09:55 touches only the 09:30 block.
	existing := []model.Appointment{appointment(clin, date, 580, 15, model.AppointmentStatusOngoing)}

	got := ResolveSlots(avail, date, existing, longAgo, Options{})
	if !reflect.DeepEqual(got, []int{540, 600, 630}) {
		t.Fatalf("slots = %v, want [540 600 630]", got)
	}
}

func TestResolveSlots_LongAppointmentBlocksSeveralSlots(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 540, End: 720})
	existing := []model.Appointment{appointment(clin, date, 570, 90, model.AppointmentStatusPending)}

	got := ResolveSlots(avail, date, existing, longAgo, Options{})
	if !reflect.DeepEqual(got, []int{540, 660, 690}) {
		t.Fatalf("slots = %v, want [540 660 690]", got)
	}
}

func TestResolveSlots_TodayDropsPastSlots(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 540, End: 660})
	now := time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)

	got := ResolveSlots(avail, date, nil, now, Options{})
	if !reflect.DeepEqual(got, []int{570, 600, 630}) {
		t.Fatalf("slots = %v, want [570 600 630]", got)
	}
}

func TestResolveSlots_TodayUsesClinicLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 540, End: 660})
	// 07:00 UTC is 10:00 in the clinic.
	now := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)

	got := ResolveSlots(avail, date, nil, now, Options{Location: loc})
	if !reflect.DeepEqual(got, []int{600, 630}) {
		t.Fatalf("slots = %v, want [600 630]", got)
	}
}

func TestResolveSlots_DisabledOrEmpty(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)

	disabled := availability(clin, date, model.TimeWindow{Start: 540, End: 600})
	disabled.Enabled = false
	if got := ResolveSlots(disabled, date, nil, longAgo, Options{}); len(got) != 0 {
		t.Fatalf("disabled availability gave %v", got)
	}
	if got := ResolveSlots(availability(clin, date), date, nil, longAgo, Options{}); len(got) != 0 {
		t.Fatalf("no windows gave %v", got)
	}
	if got := ResolveSlots(nil, date, nil, longAgo, Options{}); got == nil || len(got) != 0 {
		t.Fatalf("nil availability gave %v", got)
	}
}

func TestResolveSlots_OverlappingWindowsDeduplicated(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date,
		model.TimeWindow{Start: 600, End: 660},
		model.TimeWindow{Start: 540, End: 630},
	)

	got := ResolveSlots(avail, date, nil, longAgo, Options{})
	if !reflect.DeepEqual(got, []int{540, 570, 600, 630}) {
		t.Fatalf("slots = %v, want [540 570 600 630]", got)
	}
}

func TestResolveSlots_WindowPastMidnight(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 22 * 60, End: 60})

	got := ResolveSlots(avail, date, nil, longAgo, Options{})
	want := []int{1320, 1350, 1380, 1410}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestResolveSlots_TailShorterThanGranularityDropped(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 540, End: 610})

	got := ResolveSlots(avail, date, nil, longAgo, Options{})
	if !reflect.DeepEqual(got, []int{540, 570}) {
		t.Fatalf("slots = %v, want [540 570]", got)
	}
}

func TestResolveSlots_NeverIntersectsOccupiedSpan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 420, End: 1200})

	for iter := 0; iter < 200; iter++ {
		var existing []model.Appointment
		for i := 0; i < 1+rng.Intn(6); i++ {
			start := 420 + rng.Intn(780)
			dur := 15 * (1 + rng.Intn(8))
			existing = append(existing, appointment(clin, date, start, dur, model.AppointmentStatusPending))
		}

		for _, s := range ResolveSlots(avail, date, existing, longAgo, Options{}) {
			slot := Span{Start: s, End: s + DefaultGranularity}
			for _, a := range existing {
				if slot.Overlaps(Span{Start: a.StartMinute, End: a.EndMinute()}) {
					t.Fatalf("iteration %d: slot %d intersects appointment %d+%d", iter, s, a.StartMinute, a.DurationMinutes)
				}
			}
		}
	}
}

func TestWithinAvailability(t *testing.T) {
	clin := uuid.New()
	date := mustDate(t, 2025, 1, 6)
	avail := availability(clin, date, model.TimeWindow{Start: 540, End: 660})

	cases := []struct {
		start, dur int
		want       bool
	}{
		{540, 30, true},
		{540, 120, true},
		{600, 90, false}, // runs past the window
		{555, 30, false}, // off grid
		{480, 30, false},
	}
	for _, c := range cases {
		if got := WithinAvailability(avail, c.start, c.dur, Options{}); got != c.want {
			t.Fatalf("WithinAvailability(%d,%d) = %v, want %v", c.start, c.dur, got, c.want)
		}
	}
}

package calendar

import (
	"reflect"
	"testing"
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func TestSplitToSlots_Basic(t *testing.T) {
	slots, err := SplitToSlots(Span{Start: 600, End: 720}, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Span{{600, 630}, {630, 660}, {660, 690}, {690, 720}}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("expected %+v, got %+v", want, slots)
	}
}

func TestSplitToSlots_InvalidGranularity(t *testing.T) {
	if _, err := SplitToSlots(Span{Start: 600, End: 660}, 0); err == nil {
		t.Fatalf("expected error for zero granularity")
	}
}

func TestAlignOut(t *testing.T) {
	got := Span{Start: 580, End: 595}.AlignOut(30)
	if got != (Span{Start: 570, End: 600}) {
		t.Fatalf("AlignOut = %+v", got)
	}
	got = Span{Start: 540, End: 600}.AlignOut(30)
	if got != (Span{Start: 540, End: 600}) {
		t.Fatalf("aligned span changed: %+v", got)
	}
}

func TestHasOverlap_TouchingEnds(t *testing.T) {
	has, _ := HasOverlap(Span{600, 660}, []Span{{660, 720}})
	if has {
		t.Fatalf("touching spans should not overlap")
	}
	has, conflicts := HasOverlap(Span{630, 690}, []Span{{540, 600}, {660, 720}})
	if !has || len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %v", conflicts)
	}
}

func TestNewSpan_Invalid(t *testing.T) {
	if _, err := NewSpan(600, 600); err == nil {
		t.Fatalf("expected error for empty span")
	}
	if _, err := NewSpan(-30, 0); err == nil {
		t.Fatalf("expected error for negative span")
	}
}

func TestExpandWeekly(t *testing.T) {
	from := mustDate(t, 2025, 1, 1) // Wednesday
	to := mustDate(t, 2025, 1, 14)
	tpl := WeeklyTemplate{
		Weekdays:   []time.Weekday{time.Monday, time.Wednesday},
		Windows:    []model.TimeWindow{{Start: 540, End: 720}},
		Exceptions: []time.Time{mustDate(t, 2025, 1, 8)},
	}

	dates, err := ExpandWeekly(tpl, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{mustDate(t, 2025, 1, 1), mustDate(t, 2025, 1, 6), mustDate(t, 2025, 1, 13)}
	if !reflect.DeepEqual(dates, want) {
		t.Fatalf("dates = %v, want %v", dates, want)
	}
}

func TestExpandWeekly_EveryOtherWeek(t *testing.T) {
	from := mustDate(t, 2025, 1, 5) // Sunday
	to := mustDate(t, 2025, 1, 31)
	tpl := WeeklyTemplate{Weekdays: []time.Weekday{time.Monday}, Interval: 2}

	dates, err := ExpandWeekly(tpl, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{mustDate(t, 2025, 1, 6), mustDate(t, 2025, 1, 20)}
	if !reflect.DeepEqual(dates, want) {
		t.Fatalf("dates = %v, want %v", dates, want)
	}
}

func TestExpandWeekly_InvalidRange(t *testing.T) {
	if _, err := ExpandWeekly(WeeklyTemplate{}, mustDate(t, 2025, 2, 1), mustDate(t, 2025, 1, 1)); err == nil {
		t.Fatalf("expected error for reversed range")
	}
}

func TestFormatSlot(t *testing.T) {
	got := FormatSlot(mustDate(t, 2025, 1, 6), 540, 30)
	if got != "Monday, 06.01.2025, 09:00–09:30" {
		t.Fatalf("unexpected format: %q", got)
	}
	if MinuteOfDay(1470) != "00:30" {
		t.Fatalf("MinuteOfDay(1470) = %q", MinuteOfDay(1470))
	}
	m, err := ParseMinuteOfDay("13:45")
	if err != nil || m != 825 {
		t.Fatalf("ParseMinuteOfDay = %d, %v", m, err)
	}
}

func TestPaginate_Basic(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	page := Paginate(items, 1, 5)

	if len(page.Items) != 5 {
		t.Fatalf("expected 5 items on page 1, got %d", len(page.Items))
	}
	if page.HasPrev || !page.HasNext {
		t.Fatalf("unexpected prev/next on first page: %+v", page)
	}
	if page.Total != len(items) {
		t.Fatalf("expected Total=%d, got %d", len(items), page.Total)
	}
}

func TestPaginate_LastPageAndEmpty(t *testing.T) {
	page := Paginate([]int{1, 2, 3, 4, 5, 6}, 2, 4)
	if len(page.Items) != 2 || !page.HasPrev || page.HasNext {
		t.Fatalf("unexpected last page: %+v", page)
	}

	var none []int
	empty := Paginate(none, 3, 10)
	if len(empty.Items) != 0 || empty.HasNext {
		t.Fatalf("unexpected empty page: %+v", empty)
	}
}

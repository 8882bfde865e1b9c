package calendar

import "errors"

// MinutesPerDay is the length of a calendar day in minutes.
const MinutesPerDay = 24 * 60

var (
	ErrInvalidSpan = errors.New("invalid span")
	ErrGranularity = errors.New("granularity must be positive")
)

// Span is a half-open interval [Start, End) in minutes after midnight.
// End may exceed MinutesPerDay for intervals running past midnight.
type Span struct {
	Start int
	End   int
}

// NewSpan builds a span and rejects empty or negative ones.
func NewSpan(start, end int) (Span, error) {
	if start < 0 || end <= start {
		return Span{}, ErrInvalidSpan
	}
	return Span{Start: start, End: end}, nil
}

// Len is the span length in minutes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps uses half-open semantics: touching ends do not overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether o lies fully inside s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// AlignOut widens the span outward to whole blocks of g minutes.
func (s Span) AlignOut(g int) Span {
	if g <= 0 {
		return s
	}
	return Span{Start: floorDiv(s.Start, g) * g, End: ceilDiv(s.End, g) * g}
}

// SplitToSlots cuts the span into consecutive slots of g minutes starting at
// s.Start. A tail shorter than g is dropped.
func SplitToSlots(s Span, g int) ([]Span, error) {
	if g <= 0 {
		return nil, ErrGranularity
	}
	slots := []Span{}
	for cur := s.Start; cur+g <= s.End; cur += g {
		slots = append(slots, Span{Start: cur, End: cur + g})
	}
	return slots, nil
}

// HasOverlap checks s against existing spans and returns the ones it overlaps.
func HasOverlap(s Span, existing []Span) (bool, []Span) {
	var conflicts []Span
	for _, e := range existing {
		if s.Overlaps(e) {
			conflicts = append(conflicts, e)
		}
	}
	return len(conflicts) > 0, conflicts
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

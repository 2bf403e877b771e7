package ledger

import (
	"errors"
	"time"

	"lawnledger/internal/core"
)

// ErrInvertedRange is returned by NewRange when start is after end.
var ErrInvertedRange = errors.New("range start is after range end")

// Range is an inclusive interval of calendar days. A single day has
// Start == End.
type Range struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// NewRange validates and builds a range.
func NewRange(start, end core.Date) (Range, error) {
	if err := start.Validate(); err != nil {
		return Range{}, err
	}
	if err := end.Validate(); err != nil {
		return Range{}, err
	}
	if start.After(end) {
		return Range{}, ErrInvertedRange
	}
	return Range{Start: start, End: end}, nil
}

// DayRange covers the single day d.
func DayRange(d core.Date) Range {
	return Range{Start: d, End: d}
}

// WeekRange covers the Sunday-to-Saturday week containing d.
func WeekRange(d core.Date) Range {
	start := d.AddDays(-int(d.Weekday() - time.Sunday))
	return Range{Start: start, End: start.AddDays(6)}
}

// MonthRange covers every day of the given month.
func MonthRange(year, month int) Range {
	start := core.NewDate(year, month, 1)
	return Range{Start: start, End: core.NewDate(year, month+1, 0)}
}

// Contains reports whether d falls inside the range, bounds included.
func (r Range) Contains(d core.Date) bool {
	if !d.IsValid() || !r.valid() {
		return false
	}
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days is the number of days in the range, or 0 for an unusable range.
func (r Range) Days() int {
	if !r.valid() {
		return 0
	}
	return r.Start.DaysUntil(r.End) + 1
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

func (r Range) valid() bool {
	return r.Start.IsValid() && r.End.IsValid() && !r.Start.After(r.End)
}

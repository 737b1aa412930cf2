// Package timerange models half-open time intervals used throughout the
// reservation domain. A Range covers [Start, End): the end instant itself is
// not part of the occupied time, so back-to-back bookings never overlap.
package timerange

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when a range would not satisfy Start < End.
var ErrInvalidRange = errors.New("timerange: start must be before end")

// Range represents the half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// New constructs a Range, enforcing Start < End.
func New(start, end time.Time) (Range, error) {
	if start.IsZero() || end.IsZero() {
		return Range{}, ErrInvalidRange
	}
	if !start.Before(end) {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints (a.End == b.Start) do not count as overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

// DurationHours returns the length of the range in hours.
func (r Range) DurationHours() float64 {
	return r.End.Sub(r.Start).Hours()
}

// Duration returns the length of the range.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether t falls inside the half-open interval.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// IsZero reports whether the range carries no interval at all.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// String renders the range for logs and error messages.
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

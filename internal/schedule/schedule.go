// Package schedule validates event time ranges and detects overlaps inside a
// school calendar.
package schedule

import (
	"time"

	"uconnect/internal/apperr"
)

const MaxDuration = 24 * time.Hour

const (
	MsgInPast    = "Event date is in the past"
	MsgEndsFirst = "Event ends before it starts"
	MsgTooLong   = "Event is longer than 24 hours"
	MsgOverlap   = "Event overlaps with another event"
)

// Interval is the half-open range [From, To).
type Interval struct {
	ID   int64
	From time.Time
	To   time.Time
}

func (i Interval) Overlaps(o Interval) bool {
	return i.From.Before(o.To) && o.From.Before(i.To)
}

// ValidateRange checks a proposed event range. Rules are applied in order and
// the first failing one is reported.
func ValidateRange(from, to, now time.Time) error {
	if from.Before(now) {
		return apperr.Validation(MsgInPast)
	}
	if !to.After(from) {
		return apperr.Validation(MsgEndsFirst)
	}
	if to.Sub(from) > MaxDuration {
		return apperr.Validation(MsgTooLong)
	}
	return nil
}

func HasOverlap(candidate Interval, existing []Interval) bool {
	_, ok := FirstOverlap(candidate, existing)
	return ok
}

func FirstOverlap(candidate Interval, existing []Interval) (Interval, bool) {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return e, true
		}
	}
	return Interval{}, false
}

// CheckOverlap returns a conflict error when candidate collides with any
// interval of the calendar.
func CheckOverlap(candidate Interval, existing []Interval) error {
	if HasOverlap(candidate, existing) {
		return apperr.Conflict(MsgOverlap)
	}
	return nil
}

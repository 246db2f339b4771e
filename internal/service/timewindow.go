package service

import (
	"fmt"
	"time"

	"github.com/opsdesk/deskd/internal/domain"
)

// BusinessWindow is the inclusive time-of-day window in which task due
// times are allowed.
type BusinessWindow struct {
	startMinutes int
	endMinutes   int
}

// NewBusinessWindow parses "HH:MM" bounds into a window.
func NewBusinessWindow(start, end string) (BusinessWindow, error) {
	startMinutes, err := parseClock(start)
	if err != nil {
		return BusinessWindow{}, fmt.Errorf("parse window start: %w", err)
	}
	endMinutes, err := parseClock(end)
	if err != nil {
		return BusinessWindow{}, fmt.Errorf("parse window end: %w", err)
	}
	if endMinutes < startMinutes {
		return BusinessWindow{}, fmt.Errorf("window end %s before start %s", end, start)
	}
	return BusinessWindow{startMinutes: startMinutes, endMinutes: endMinutes}, nil
}

// Contains reports whether the "HH:MM" value falls inside the window,
// inclusive on both ends.
func (w BusinessWindow) Contains(clock string) bool {
	minutes, err := parseClock(clock)
	if err != nil {
		return false
	}
	return minutes >= w.startMinutes && minutes <= w.endMinutes
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(clock string) (int, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDueTime, clock)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// CombineDueMoment combines a calendar date and an optional "HH:MM"
// due time into a single instant. A missing time means start of day.
func CombineDueMoment(date time.Time, dueTime *string) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	if dueTime == nil {
		return day
	}
	minutes, err := parseClock(*dueTime)
	if err != nil {
		return day
	}
	return day.Add(time.Duration(minutes) * time.Minute)
}

// StartOfDay truncates an instant to midnight in its location.
func StartOfDay(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
}

// ElapsedFraction returns how much of the created-to-due window has
// passed at now. The denominator is floored at one millisecond so a
// due moment at or before creation yields a finite large value rather
// than a division error. Values above 1.0 mean the deadline passed;
// callers clamp for display only.
func ElapsedFraction(createdAt, dueAt, now time.Time) float64 {
	total := dueAt.Sub(createdAt)
	if total < time.Millisecond {
		total = time.Millisecond
	}
	return float64(now.Sub(createdAt)) / float64(total)
}

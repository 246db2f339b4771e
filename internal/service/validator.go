package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/opsdesk/deskd/internal/domain"
)

// Validator checks scheduling and field constraints for task writes.
type Validator struct {
	window BusinessWindow
}

// NewValidator creates a Validator over the business-hours window.
func NewValidator(window BusinessWindow) *Validator {
	return &Validator{window: window}
}

// ValidateTitle rejects empty or blank titles.
func (v *Validator) ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return domain.ErrEmptyTitle
	}
	return nil
}

// ValidateSchedule enforces the scheduling-validity gate:
//
//   - the due time, when present, must be well-formed and inside the
//     business-hours window (inclusive);
//   - a task scheduled for today may not have a combined due moment
//     earlier than now. The check only applies when a due time is
//     present; a bare date means start of day and is accepted.
func (v *Validator) ValidateSchedule(dueDate *time.Time, dueTime *string, now time.Time) error {
	if dueTime != nil {
		if _, err := parseClock(*dueTime); err != nil {
			return err
		}
		if !v.window.Contains(*dueTime) {
			return fmt.Errorf("%w: %s", domain.ErrOutsideBusinessHours, *dueTime)
		}
	}

	if dueDate != nil && dueTime != nil {
		// Dates come in at UTC midnight; now carries the server zone.
		// Compare calendar days in the date's location or "today"
		// never matches off UTC.
		now := now.In(dueDate.Location())
		if StartOfDay(*dueDate).Equal(StartOfDay(now)) {
			if CombineDueMoment(*dueDate, dueTime).Before(now) {
				return fmt.Errorf("%w: %s today", domain.ErrDueMomentInPast, *dueTime)
			}
		}
	}

	return nil
}

// ValidateRecurrence rejects descriptors with unknown frequencies.
func (v *Validator) ValidateRecurrence(descriptor *domain.RecurrenceDescriptor) error {
	if descriptor == nil || descriptor.Frequency == "" {
		return nil
	}
	if !descriptor.Frequency.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidRecurrence, descriptor.Frequency)
	}
	return nil
}

package domain

import (
	"fmt"
	"strings"
)

// RecurrenceFrequency represents how often a recurrent task repeats.
type RecurrenceFrequency string

const (
	RecurrenceNone    RecurrenceFrequency = "NONE"
	RecurrenceDaily   RecurrenceFrequency = "DAILY"
	RecurrenceWeekly  RecurrenceFrequency = "WEEKLY"
	RecurrenceMonthly RecurrenceFrequency = "MONTHLY"
	RecurrenceYearly  RecurrenceFrequency = "YEARLY"
)

// IsValid checks if the frequency is one of the allowed values.
func (f RecurrenceFrequency) IsValid() bool {
	switch f {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	default:
		return false
	}
}

// RecurrenceDescriptor is the structured input describing how a task
// repeats. It is request-only; the store keeps the compiled rule.
type RecurrenceDescriptor struct {
	Frequency RecurrenceFrequency `json:"frequency"`
	Interval  int                 `json:"interval,omitempty"`
	Count     int                 `json:"count,omitempty"`
}

// Compile converts the descriptor into the canonical rule string, or
// nil for one-off tasks. Parts are joined in a fixed order (frequency,
// interval, count) so equal descriptors always compile to the same
// string; calendar sync relies on that for idempotent comparisons.
func (d *RecurrenceDescriptor) Compile() *string {
	if d == nil || d.Frequency == "" || d.Frequency == RecurrenceNone {
		return nil
	}

	parts := []string{fmt.Sprintf("FREQ=%s", d.Frequency)}
	if d.Interval > 0 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", d.Interval))
	}
	if d.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", d.Count))
	}

	rule := strings.Join(parts, ";")
	return &rule
}

// Package config holds runtime defaults and the scheduling policy.
// Runtime knobs (port, database URL, log level) come from CLI flags
// and environment; the policy file tunes the business rules the task
// engine enforces.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""
)

// Policy tunes the task engine. Zero values are replaced by defaults
// in DefaultPolicy, so a partial YAML file only overrides what it names.
type Policy struct {
	// BusinessHoursStart and BusinessHoursEnd bound the allowed due
	// time window, inclusive on both ends, as "HH:MM".
	BusinessHoursStart string `yaml:"business_hours_start"`
	BusinessHoursEnd   string `yaml:"business_hours_end"`

	// EscalatePercent is the elapsed-deadline percentage at which a
	// priority is raised one step; ForcePercent is where medium is
	// pushed to high, and where low progress forces high outright.
	EscalatePercent    float64 `yaml:"escalate_percent"`
	ForcePercent       float64 `yaml:"force_percent"`
	LowProgressPercent int     `yaml:"low_progress_percent"`

	// Calendar mirrors task due windows to an external calendar.
	Calendar CalendarPolicy `yaml:"calendar"`
}

// CalendarPolicy configures the calendar sync adapter and dispatcher.
type CalendarPolicy struct {
	// BaseURL of the external calendar service. Empty disables sync.
	BaseURL string `yaml:"base_url"`

	// EventMinutes is the fixed length of mirrored events.
	EventMinutes int `yaml:"event_minutes"`

	// DispatchSpec is the cron schedule for draining the outbox.
	DispatchSpec string `yaml:"dispatch_spec"`

	// MaxAttempts bounds retries per outbox entry before it is
	// parked for manual inspection.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultPolicy returns the built-in scheduling policy.
func DefaultPolicy() Policy {
	return Policy{
		BusinessHoursStart: "07:30",
		BusinessHoursEnd:   "19:00",
		EscalatePercent:    50,
		ForcePercent:       70,
		LowProgressPercent: 30,
		Calendar: CalendarPolicy{
			EventMinutes: 60,
			DispatchSpec: "@every 30s",
			MaxAttempts:  5,
		},
	}
}

// LoadPolicy reads a YAML policy file and overlays it on the
// defaults. An empty path returns the defaults unchanged.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read policy file: %w", err)
	}

	var overlay Policy
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return policy, fmt.Errorf("parse policy file: %w", err)
	}

	if overlay.BusinessHoursStart != "" {
		policy.BusinessHoursStart = overlay.BusinessHoursStart
	}
	if overlay.BusinessHoursEnd != "" {
		policy.BusinessHoursEnd = overlay.BusinessHoursEnd
	}
	if overlay.EscalatePercent > 0 {
		policy.EscalatePercent = overlay.EscalatePercent
	}
	if overlay.ForcePercent > 0 {
		policy.ForcePercent = overlay.ForcePercent
	}
	if overlay.LowProgressPercent > 0 {
		policy.LowProgressPercent = overlay.LowProgressPercent
	}
	if overlay.Calendar.BaseURL != "" {
		policy.Calendar.BaseURL = overlay.Calendar.BaseURL
	}
	if overlay.Calendar.EventMinutes > 0 {
		policy.Calendar.EventMinutes = overlay.Calendar.EventMinutes
	}
	if overlay.Calendar.DispatchSpec != "" {
		policy.Calendar.DispatchSpec = overlay.Calendar.DispatchSpec
	}
	if overlay.Calendar.MaxAttempts > 0 {
		policy.Calendar.MaxAttempts = overlay.Calendar.MaxAttempts
	}

	return policy, nil
}

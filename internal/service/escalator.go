package service

import (
	"time"

	"github.com/opsdesk/deskd/internal/config"
	"github.com/opsdesk/deskd/internal/domain"
)

// Escalator raises task priority as the deadline approaches. It never
// lowers a priority; a human setting an explicit lower priority resets
// the baseline the next escalation works from.
//
// Escalation runs on every task mutation and on the explicit refresh
// pass, not on a timer, so a bump is observed at the next write.
type Escalator struct {
	escalatePercent    float64
	forcePercent       float64
	lowProgressPercent int
}

// NewEscalator builds an Escalator from the scheduling policy.
func NewEscalator(policy config.Policy) *Escalator {
	return &Escalator{
		escalatePercent:    policy.EscalatePercent,
		forcePercent:       policy.ForcePercent,
		lowProgressPercent: policy.LowProgressPercent,
	}
}

// Escalate computes the new priority for a task given its deadline
// window and progress at now.
func (e *Escalator) Escalate(
	current domain.TaskPriority,
	createdAt time.Time,
	dueAt time.Time,
	progress int,
	now time.Time,
) domain.TaskPriority {
	pct := ElapsedFraction(createdAt, dueAt, now) * 100

	next := current
	switch {
	case pct >= e.forcePercent:
		if current == domain.TaskPriorityMedium {
			next = domain.TaskPriorityHigh
		}
		if progress < e.lowProgressPercent {
			next = domain.TaskPriorityHigh
		}
	case pct >= e.escalatePercent:
		switch current {
		case domain.TaskPriorityLow:
			next = domain.TaskPriorityMedium
		case domain.TaskPriorityMedium:
			next = domain.TaskPriorityHigh
		}
	}

	// No-downgrade invariant.
	if next.Rank() < current.Rank() {
		return current
	}
	return next
}

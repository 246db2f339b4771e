package service_test

import (
	"testing"
	"time"

	"github.com/opsdesk/deskd/internal/config"
	"github.com/opsdesk/deskd/internal/domain"
	"github.com/opsdesk/deskd/internal/service"
	"github.com/stretchr/testify/assert"
)

// atPercent returns a now positioned at the given fraction of a fixed
// 100-hour deadline window.
func atPercent(createdAt time.Time, pct float64) (dueAt, now time.Time) {
	window := 100 * time.Hour
	return createdAt.Add(window), createdAt.Add(time.Duration(pct / 100 * float64(window)))
}

func TestEscalate_BelowThresholdUnchanged(t *testing.T) {
	escalator := service.NewEscalator(config.DefaultPolicy())
	createdAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	dueAt, now := atPercent(createdAt, 49)

	for _, priority := range []domain.TaskPriority{
		domain.TaskPriorityLow,
		domain.TaskPriorityMedium,
		domain.TaskPriorityHigh,
	} {
		assert.Equal(t, priority, escalator.Escalate(priority, createdAt, dueAt, 0, now))
	}
}

func TestEscalate_MidWindowBumpsOneStep(t *testing.T) {
	escalator := service.NewEscalator(config.DefaultPolicy())
	createdAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	dueAt, now := atPercent(createdAt, 60)

	assert.Equal(t, domain.TaskPriorityMedium, escalator.Escalate(domain.TaskPriorityLow, createdAt, dueAt, 50, now))
	assert.Equal(t, domain.TaskPriorityHigh, escalator.Escalate(domain.TaskPriorityMedium, createdAt, dueAt, 50, now))
	assert.Equal(t, domain.TaskPriorityHigh, escalator.Escalate(domain.TaskPriorityHigh, createdAt, dueAt, 50, now))
}

func TestEscalate_LateWindow(t *testing.T) {
	escalator := service.NewEscalator(config.DefaultPolicy())
	createdAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	dueAt, now := atPercent(createdAt, 75)

	// Past the force threshold medium always becomes high.
	assert.Equal(t, domain.TaskPriorityHigh, escalator.Escalate(domain.TaskPriorityMedium, createdAt, dueAt, 90, now))

	// With healthy progress a low task is left alone late in the
	// window; only stalled work gets forced up.
	assert.Equal(t, domain.TaskPriorityLow, escalator.Escalate(domain.TaskPriorityLow, createdAt, dueAt, 50, now))
	assert.Equal(t, domain.TaskPriorityHigh, escalator.Escalate(domain.TaskPriorityLow, createdAt, dueAt, 10, now))
}

func TestEscalate_ExactThresholds(t *testing.T) {
	escalator := service.NewEscalator(config.DefaultPolicy())
	createdAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	dueAt, now := atPercent(createdAt, 50)
	assert.Equal(t, domain.TaskPriorityMedium, escalator.Escalate(domain.TaskPriorityLow, createdAt, dueAt, 50, now))

	dueAt, now = atPercent(createdAt, 70)
	assert.Equal(t, domain.TaskPriorityHigh, escalator.Escalate(domain.TaskPriorityMedium, createdAt, dueAt, 50, now))
	assert.Equal(t, domain.TaskPriorityHigh, escalator.Escalate(domain.TaskPriorityLow, createdAt, dueAt, 29, now))
}

func TestEscalate_NeverDowngrades(t *testing.T) {
	escalator := service.NewEscalator(config.DefaultPolicy())
	createdAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	priorities := []domain.TaskPriority{
		domain.TaskPriorityLow,
		domain.TaskPriorityMedium,
		domain.TaskPriorityHigh,
	}

	for pct := 0.0; pct <= 130; pct += 5 {
		dueAt, now := atPercent(createdAt, pct)
		for _, priority := range priorities {
			for progress := 0; progress <= 100; progress += 25 {
				next := escalator.Escalate(priority, createdAt, dueAt, progress, now)
				assert.GreaterOrEqual(t, next.Rank(), priority.Rank(),
					"pct=%v priority=%s progress=%d", pct, priority, progress)
			}
		}
	}
}

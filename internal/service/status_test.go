package service_test

import (
	"testing"
	"time"

	"github.com/opsdesk/deskd/internal/domain"
	"github.com/opsdesk/deskd/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus_FullProgressWinsOverBlocked(t *testing.T) {
	reason := "waiting on review"

	got := service.DeriveStatus(domain.TaskStatusBlocked, 100, &reason)
	assert.Equal(t, domain.TaskStatusDone, got)
}

func TestDeriveStatus_BlockedReasonOverridesProgress(t *testing.T) {
	reason := "waiting on vendor"

	got := service.DeriveStatus(domain.TaskStatusInProgress, 60, &reason)
	assert.Equal(t, domain.TaskStatusBlocked, got)
}

func TestDeriveStatus_TodoWithProgressStarts(t *testing.T) {
	got := service.DeriveStatus(domain.TaskStatusTodo, 5, nil)
	assert.Equal(t, domain.TaskStatusInProgress, got)

	// Zero progress keeps the task in the backlog.
	got = service.DeriveStatus(domain.TaskStatusTodo, 0, nil)
	assert.Equal(t, domain.TaskStatusTodo, got)
}

func TestDeriveStatus_KeepsCurrentOtherwise(t *testing.T) {
	got := service.DeriveStatus(domain.TaskStatusInProgress, 40, nil)
	assert.Equal(t, domain.TaskStatusInProgress, got)
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	today := service.StartOfDay(now).Add(8 * time.Hour)

	assert.True(t, service.IsOverdue(domain.TaskStatusTodo, &yesterday, now))

	// Due earlier today is not overdue; the projection flips at
	// start of day, not at the due moment.
	assert.False(t, service.IsOverdue(domain.TaskStatusTodo, &today, now))

	// Done tasks and tasks without a deadline never show overdue.
	assert.False(t, service.IsOverdue(domain.TaskStatusDone, &yesterday, now))
	assert.False(t, service.IsOverdue(domain.TaskStatusTodo, nil, now))
}

func TestIsOverdueNonUTCServer(t *testing.T) {
	// Due moments are stored in UTC; the day boundary follows them
	// even when the server clock sits in another zone.
	zone := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2026, 3, 9, 20, 0, 0, 0, zone) // 2026-03-10 01:00 UTC
	due := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	assert.True(t, service.IsOverdue(domain.TaskStatusTodo, &due, now))

	sameDay := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	assert.False(t, service.IsOverdue(domain.TaskStatusTodo, &sameDay, now))
}

func TestPresentedStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	task := &domain.Task{Status: domain.TaskStatusInProgress, DueDate: &yesterday}
	assert.Equal(t, domain.TaskStatusOverdue, service.PresentedStatus(task, now))

	// The stored status is a projection input, never mutated.
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)

	task.Status = domain.TaskStatusDone
	assert.Equal(t, domain.TaskStatusDone, service.PresentedStatus(task, now))
}

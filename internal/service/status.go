package service

import (
	"time"

	"github.com/opsdesk/deskd/internal/domain"
)

// DeriveStatus reconciles a stored status against progress and the
// blocking condition:
//
//   - progress at 100 forces done (terminal for automatic transitions;
//     only an explicit external update moves a task back out);
//   - otherwise a non-empty blocked reason forces blocked;
//   - otherwise todo with any progress becomes in_progress.
func DeriveStatus(current domain.TaskStatus, progress int, blockedReason *string) domain.TaskStatus {
	if progress >= 100 {
		return domain.TaskStatusDone
	}
	if blockedReason != nil && *blockedReason != "" {
		return domain.TaskStatusBlocked
	}
	if current == domain.TaskStatusTodo && progress > 0 {
		return domain.TaskStatusInProgress
	}
	return current
}

// IsOverdue computes the read-only overdue projection: not done and
// due before the start of today. The result is presentation-only and
// must never feed back into the stored status.
func IsOverdue(status domain.TaskStatus, dueAt *time.Time, now time.Time) bool {
	if status == domain.TaskStatusDone || dueAt == nil {
		return false
	}
	// Start of today in the due moment's location, so a local server
	// clock does not shift the day boundary against UTC due dates.
	return dueAt.Before(StartOfDay(now.In(dueAt.Location())))
}

// PresentedStatus returns the status a read surface should show:
// the overdue projection when it applies, the stored status otherwise.
func PresentedStatus(task *domain.Task, now time.Time) domain.TaskStatus {
	if IsOverdue(task.Status, task.DueMoment(), now) {
		return domain.TaskStatusOverdue
	}
	return task.Status
}

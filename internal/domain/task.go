package domain

import "time"

// TaskStatus represents the stored status of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusDone       TaskStatus = "done"

	// TaskStatusOverdue is a read-only projection computed at read
	// time. It is never written to the store.
	TaskStatusOverdue TaskStatus = "overdue"
)

// IsValid checks if the status is one of the storable values.
// The overdue projection is deliberately not storable.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked, TaskStatusDone:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status ends automatic transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDone
}

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// IsValid checks if the priority is one of the allowed values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// Rank orders priorities for comparison: low < medium < high.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityMedium:
		return 1
	case TaskPriorityHigh:
		return 2
	default:
		return 0
	}
}

// Task represents a unit of work.
type Task struct {
	ID              int64
	Title           string
	Description     string
	DueDate         *time.Time // calendar date, midnight UTC
	DueTime         *string    // "HH:MM", nil when unscheduled within the day
	Status          TaskStatus
	Progress        int // 0..100
	Performance     int // 0..100
	Priority        TaskPriority
	BlockedReason   *string
	IsRecurrent     bool
	RecurrenceRule  *string
	CalendarEventID *string
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// AssigneeIDs is hydrated from task_assignees, not a column.
	AssigneeIDs []int64
}

// IsCreatedBy checks if the task was created by the given user.
func (t *Task) IsCreatedBy(userID int64) bool {
	return t.CreatedBy == userID
}

// IsAssignedTo checks if the task is assigned to the given user.
func (t *Task) IsAssignedTo(userID int64) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// DueMoment combines the due date and optional due time into a single
// instant, or nil when the task has no due date. A missing due time
// means start of day.
func (t *Task) DueMoment() *time.Time {
	if t.DueDate == nil {
		return nil
	}
	due := *t.DueDate
	if t.DueTime != nil {
		if parsed, err := time.Parse("15:04", *t.DueTime); err == nil {
			due = due.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute)
		}
	}
	return &due
}

// Subtask is a checklist item owned by exactly one task. Completing
// all subtasks does not complete the parent; that is a UI convenience.
type Subtask struct {
	ID          int64
	TaskID      int64
	Title       string
	Description string
	IsDone      bool
	CreatedAt   time.Time
}

// ClampPercent clamps a percentage value to [0, 100].
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

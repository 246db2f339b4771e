package dto

import "github.com/opsdesk/deskd/internal/domain"

// CreateTaskRequest represents the request body for POST /tasks.
type CreateTaskRequest struct {
	Title       string                       `json:"title"`
	Description string                       `json:"description,omitempty"`
	DueDate     string                       `json:"due_date"`           // "2006-01-02"
	DueTime     *string                      `json:"due_time,omitempty"` // "HH:MM"
	AssigneeIDs []int64                      `json:"assignee_ids,omitempty"`
	Recurrence  *domain.RecurrenceDescriptor `json:"recurrence,omitempty"`
}

// UpdateTaskRequest represents the request body for PATCH /tasks/:id.
// Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title         *string                      `json:"title,omitempty"`
	Description   *string                      `json:"description,omitempty"`
	DueDate       *string                      `json:"due_date,omitempty"`
	DueTime       *string                      `json:"due_time,omitempty"`
	Status        *string                      `json:"status,omitempty"`
	Progress      *int                         `json:"progress,omitempty"`
	Performance   *int                         `json:"performance,omitempty"`
	Priority      *string                      `json:"priority,omitempty"`
	BlockedReason *string                      `json:"blocked_reason,omitempty"`
	Recurrence    *domain.RecurrenceDescriptor `json:"recurrence,omitempty"`
	AssigneeIDs   []int64                      `json:"assignee_ids,omitempty"`
}

// CreateSubtaskRequest represents the request body for POST /tasks/:id/subtasks.
type CreateSubtaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// UpdateSubtaskRequest represents the request body for PATCH /tasks/:id/subtasks/:subtaskID.
type UpdateSubtaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsDone      *bool   `json:"is_done,omitempty"`
}

package dto

import (
	"time"

	"github.com/opsdesk/deskd/internal/domain"
)

// TaskResponse represents a task in API responses. Status carries the
// read-time overdue projection; the stored status stays untouched.
type TaskResponse struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *string    `json:"due_date"`
	DueTime        *string    `json:"due_time"`
	Status         string     `json:"status"`
	IsOverdue      bool       `json:"is_overdue"`
	Progress       int        `json:"progress"`
	Performance    int        `json:"performance"`
	Priority       string     `json:"priority"`
	BlockedReason  *string    `json:"blocked_reason"`
	IsRecurrent    bool       `json:"is_recurrent"`
	RecurrenceRule *string    `json:"recurrence_rule"`
	CreatedBy      int64      `json:"created_by"`
	AssigneeIDs    []int64    `json:"assignee_ids"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TasksListResponse represents the response for GET /tasks.
type TasksListResponse struct {
	Tasks  []TaskResponse `json:"tasks"`
	Total  int            `json:"total"`
	Scope  string         `json:"scope"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// SubtaskResponse represents a checklist item.
type SubtaskResponse struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsDone      bool      `json:"is_done"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubtasksListResponse represents the response for GET /tasks/:id/subtasks.
type SubtasksListResponse struct {
	Subtasks []SubtaskResponse `json:"subtasks"`
}

// UserResponse represents a visible user.
type UserResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	IsManager    bool   `json:"is_manager"`
	DepartmentID *int64 `json:"department_id"`
}

// UsersListResponse represents the response for GET /users.
type UsersListResponse struct {
	Users []UserResponse `json:"users"`
	Scope string         `json:"scope"`
}

// ToTaskResponse converts a domain.Task. The caller computes the
// overdue projection; when set, the response status shows "overdue"
// while the stored status stays untouched.
func ToTaskResponse(task *domain.Task, isOverdue bool) TaskResponse {
	var dueDate *string
	if task.DueDate != nil {
		formatted := task.DueDate.Format("2006-01-02")
		dueDate = &formatted
	}

	assigneeIDs := task.AssigneeIDs
	if assigneeIDs == nil {
		assigneeIDs = []int64{}
	}

	status := task.Status
	if isOverdue {
		status = domain.TaskStatusOverdue
	}

	return TaskResponse{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		DueDate:        dueDate,
		DueTime:        task.DueTime,
		Status:         string(status),
		IsOverdue:      isOverdue,
		Progress:       task.Progress,
		Performance:    task.Performance,
		Priority:       string(task.Priority),
		BlockedReason:  task.BlockedReason,
		IsRecurrent:    task.IsRecurrent,
		RecurrenceRule: task.RecurrenceRule,
		CreatedBy:      task.CreatedBy,
		AssigneeIDs:    assigneeIDs,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

// ToSubtaskResponse converts a domain.Subtask.
func ToSubtaskResponse(subtask *domain.Subtask) SubtaskResponse {
	return SubtaskResponse{
		ID:          subtask.ID,
		TaskID:      subtask.TaskID,
		Title:       subtask.Title,
		Description: subtask.Description,
		IsDone:      subtask.IsDone,
		CreatedAt:   subtask.CreatedAt,
	}
}

// ToUserResponse converts a domain.User. The token never leaves the server.
func ToUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		IsManager:    user.IsManager,
		DepartmentID: user.DepartmentID,
	}
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opsdesk/deskd/internal/domain"
	"github.com/opsdesk/deskd/internal/handler/dto"
	"github.com/opsdesk/deskd/internal/middleware"
	"github.com/opsdesk/deskd/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// parseDueDate parses a "2006-01-02" date in UTC.
func parseDueDate(raw string) (*time.Time, bool) {
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

// handleCreateTask creates a new task.
// @Summary Create a task
// @Description Creates a task owned by the caller. Without explicit assignees the creator is the sole assignee.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body dto.CreateTaskRequest true "Task creation request"
// @Success 201 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.DueDate == "" {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "due_date is required")
		return
	}
	dueDate, ok := parseDueDate(req.DueDate)
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "due_date must be YYYY-MM-DD")
		return
	}

	task, err := h.taskService.CreateTask(ctx, principal, service.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		DueTime:     req.DueTime,
		AssigneeIDs: req.AssigneeIDs,
		Recurrence:  req.Recurrence,
	})
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToTaskResponse(task, false))
}

// handleGetTask retrieves a single task.
// @Summary Get task
// @Description Get a task with assignees if the caller's scope covers it
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(ctx, principal, taskID)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	overdue := service.IsOverdue(task.Status, task.DueMoment(), time.Now())
	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task, overdue))
}

// handleListTasks lists tasks visible under the caller's scope.
// @Summary List tasks
// @Description Lists tasks whose creator or assignees fall inside the caller's resolved scope
// @Tags tasks
// @Produce json
// @Param status query string false "Comma-separated statuses: todo,in_progress,blocked,done"
// @Param priority query string false "Comma-separated priorities: low,medium,high"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.TasksListResponse
// @Security BearerAuth
// @Router /tasks [get]
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	query := r.URL.Query()

	var statuses []string
	if raw := query.Get("status"); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			if !domain.TaskStatus(status).IsValid() {
				respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid status filter: "+status)
				return
			}
			statuses = append(statuses, status)
		}
	}

	var priorities []string
	if raw := query.Get("priority"); raw != "" {
		for _, priority := range strings.Split(raw, ",") {
			if !domain.TaskPriority(priority).IsValid() {
				respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid priority filter: "+priority)
				return
			}
			priorities = append(priorities, priority)
		}
	}

	limit := defaultListLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxListLimit {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	offset := 0
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "offset must be non-negative")
			return
		}
		offset = parsed
	}

	tasks, total, tier, err := h.taskService.ListTasks(ctx, principal, service.ListTasksParams{
		Statuses:   statuses,
		Priorities: priorities,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	now := time.Now()
	response := dto.TasksListResponse{
		Tasks:  make([]dto.TaskResponse, len(tasks)),
		Total:  total,
		Scope:  string(tier),
		Limit:  limit,
		Offset: offset,
	}
	for i, task := range tasks {
		overdue := service.IsOverdue(task.Status, task.DueMoment(), now)
		response.Tasks[i] = dto.ToTaskResponse(task, overdue)
	}

	respondJSON(w, http.StatusOK, response)
}

// handleUpdateTask applies a field patch to a task.
// @Summary Update task
// @Description Patches task fields; derived priority and status are recomputed in the same transaction
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body dto.UpdateTaskRequest true "Field patch"
// @Success 200 {object} dto.TaskResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [patch]
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	params := service.UpdateTaskParams{
		Title:         req.Title,
		Description:   req.Description,
		DueTime:       req.DueTime,
		Progress:      req.Progress,
		Performance:   req.Performance,
		BlockedReason: req.BlockedReason,
		Recurrence:    req.Recurrence,
		AssigneeIDs:   req.AssigneeIDs,
	}
	if req.DueDate != nil {
		dueDate, ok := parseDueDate(*req.DueDate)
		if !ok {
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "due_date must be YYYY-MM-DD")
			return
		}
		params.DueDate = dueDate
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		params.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		params.Priority = &priority
	}

	task, err := h.taskService.UpdateTask(ctx, principal, taskID, params)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	overdue := service.IsOverdue(task.Status, task.DueMoment(), time.Now())
	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task, overdue))
}

// handleDeleteTask deletes a task with its subtasks and assignments.
// @Summary Delete task
// @Description Deletes the task, its subtasks and assignments; the mirrored calendar event is removed asynchronously
// @Tags tasks
// @Param id path int true "Task ID"
// @Success 204
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := middleware.GetPrincipalFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(ctx, principal, taskID); err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

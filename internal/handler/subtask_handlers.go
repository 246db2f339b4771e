package handler

import (
	"encoding/json"
	"net/http"

	"github.com/opsdesk/deskd/internal/handler/dto"
	"github.com/opsdesk/deskd/internal/middleware"
	"github.com/opsdesk/deskd/internal/service"
)

// handleListSubtasks lists the checklist items of a task.
// @Summary List subtasks
// @Tags subtasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} dto.SubtasksListResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/subtasks [get]
func (h *Handler) handleListSubtasks(w http.ResponseWriter, r *http.Request) {
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

	subtasks, err := h.taskService.ListSubtasks(ctx, principal, taskID)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	response := dto.SubtasksListResponse{Subtasks: make([]dto.SubtaskResponse, len(subtasks))}
	for i, subtask := range subtasks {
		response.Subtasks[i] = dto.ToSubtaskResponse(subtask)
	}

	respondJSON(w, http.StatusOK, response)
}

// handleCreateSubtask adds a checklist item to a task.
// @Summary Create subtask
// @Tags subtasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body dto.CreateSubtaskRequest true "Subtask creation request"
// @Success 201 {object} dto.SubtaskResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/subtasks [post]
func (h *Handler) handleCreateSubtask(w http.ResponseWriter, r *http.Request) {
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

	var req dto.CreateSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	subtask, err := h.taskService.CreateSubtask(ctx, principal, taskID, service.CreateSubtaskParams{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToSubtaskResponse(subtask))
}

// handleUpdateSubtask patches a checklist item.
// @Summary Update subtask
// @Tags subtasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param subtaskID path int true "Subtask ID"
// @Param request body dto.UpdateSubtaskRequest true "Field patch"
// @Success 200 {object} dto.SubtaskResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/subtasks/{subtaskID} [patch]
func (h *Handler) handleUpdateSubtask(w http.ResponseWriter, r *http.Request) {
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
	subtaskID, ok := extractID(w, r, "subtaskID")
	if !ok {
		return
	}

	var req dto.UpdateSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	subtask, err := h.taskService.UpdateSubtask(ctx, principal, taskID, subtaskID, service.UpdateSubtaskParams{
		Title:       req.Title,
		Description: req.Description,
		IsDone:      req.IsDone,
	})
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToSubtaskResponse(subtask))
}

// handleDeleteSubtask removes a checklist item.
// @Summary Delete subtask
// @Tags subtasks
// @Param id path int true "Task ID"
// @Param subtaskID path int true "Subtask ID"
// @Success 204
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/subtasks/{subtaskID} [delete]
func (h *Handler) handleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
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
	subtaskID, ok := extractID(w, r, "subtaskID")
	if !ok {
		return
	}

	if err := h.taskService.DeleteSubtask(ctx, principal, taskID, subtaskID); err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

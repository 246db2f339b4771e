package service

import (
	"context"
	"log/slog"

	"github.com/opsdesk/deskd/internal/domain"
)

// Subtask operations ride on the parent task's authorization: anyone
// whose scope covers the task may manage its checklist. Subtask state
// never feeds back into the parent's status.

// CreateSubtaskParams carries the request fields for CreateSubtask.
type CreateSubtaskParams struct {
	Title       string
	Description string
}

// CreateSubtask adds a checklist item to a task.
func (s *TaskService) CreateSubtask(ctx context.Context, principal domain.Principal, taskID int64, params CreateSubtaskParams) (*domain.Subtask, error) {
	if err := s.validator.ValidateTitle(params.Title); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, principal, taskID); err != nil {
		return nil, err
	}

	subtask := &domain.Subtask{
		TaskID:      taskID,
		Title:       params.Title,
		Description: params.Description,
	}
	if _, err := s.subtaskRepo.Create(ctx, subtask); err != nil {
		return nil, err
	}

	slog.Info("subtask created", "task_id", taskID, "subtask_id", subtask.ID)
	return subtask, nil
}

// ListSubtasks returns a task's checklist.
func (s *TaskService) ListSubtasks(ctx context.Context, principal domain.Principal, taskID int64) ([]*domain.Subtask, error) {
	if _, err := s.authorize(ctx, principal, taskID); err != nil {
		return nil, err
	}
	return s.subtaskRepo.ListByTaskID(ctx, taskID)
}

// UpdateSubtaskParams is a field patch; nil pointers leave fields alone.
type UpdateSubtaskParams struct {
	Title       *string
	Description *string
	IsDone      *bool
}

// UpdateSubtask patches a checklist item.
func (s *TaskService) UpdateSubtask(ctx context.Context, principal domain.Principal, taskID, subtaskID int64, params UpdateSubtaskParams) (*domain.Subtask, error) {
	if _, err := s.authorize(ctx, principal, taskID); err != nil {
		return nil, err
	}

	subtask, err := s.subtaskRepo.GetByID(ctx, taskID, subtaskID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		if err := s.validator.ValidateTitle(*params.Title); err != nil {
			return nil, err
		}
		subtask.Title = *params.Title
	}
	if params.Description != nil {
		subtask.Description = *params.Description
	}
	if params.IsDone != nil {
		subtask.IsDone = *params.IsDone
	}

	if err := s.subtaskRepo.Update(ctx, subtask); err != nil {
		return nil, err
	}
	return subtask, nil
}

// DeleteSubtask removes a checklist item.
func (s *TaskService) DeleteSubtask(ctx context.Context, principal domain.Principal, taskID, subtaskID int64) error {
	if _, err := s.authorize(ctx, principal, taskID); err != nil {
		return err
	}
	if err := s.subtaskRepo.Delete(ctx, taskID, subtaskID); err != nil {
		return err
	}
	slog.Info("subtask deleted", "task_id", taskID, "subtask_id", subtaskID)
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsdesk/deskd/internal/calendar"
	"github.com/opsdesk/deskd/internal/config"
	"github.com/opsdesk/deskd/internal/domain"
	"github.com/opsdesk/deskd/internal/repository"
)

// TaskService orchestrates the task lifecycle: scheduling validation,
// recurrence compilation, priority escalation, status derivation and
// calendar-sync intents, all inside a single transaction per write.
type TaskService struct {
	pool        *pgxpool.Pool
	taskRepo    *repository.TaskRepository
	subtaskRepo *repository.SubtaskRepository
	userRepo    *repository.UserRepository
	outboxRepo  *repository.OutboxRepository
	scopes      *ScopeResolver
	escalator   *Escalator
	validator   *Validator
	policy      config.Policy

	// Now supplies the clock; tests override it with fixed instants.
	Now func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	subtaskRepo *repository.SubtaskRepository,
	userRepo *repository.UserRepository,
	outboxRepo *repository.OutboxRepository,
	policy config.Policy,
) (*TaskService, error) {
	window, err := NewBusinessWindow(policy.BusinessHoursStart, policy.BusinessHoursEnd)
	if err != nil {
		return nil, fmt.Errorf("build business window: %w", err)
	}

	return &TaskService{
		pool:        pool,
		taskRepo:    taskRepo,
		subtaskRepo: subtaskRepo,
		userRepo:    userRepo,
		outboxRepo:  outboxRepo,
		scopes:      NewScopeResolver(userRepo),
		escalator:   NewEscalator(policy),
		validator:   NewValidator(window),
		policy:      policy,
		Now:         time.Now,
	}, nil
}

// Scopes exposes the resolver for read surfaces that filter by scope.
func (s *TaskService) Scopes() *ScopeResolver {
	return s.scopes
}

// CreateTaskParams carries the validated request fields for Create.
type CreateTaskParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	DueTime     *string
	AssigneeIDs []int64
	Recurrence  *domain.RecurrenceDescriptor
}

// CreateTask validates scheduling, compiles the recurrence rule,
// inserts the task with its assignments, runs one escalation pass and
// records the calendar create intent, in one transaction.
func (s *TaskService) CreateTask(ctx context.Context, principal domain.Principal, params CreateTaskParams) (*domain.Task, error) {
	now := s.Now()

	if err := s.validator.ValidateTitle(params.Title); err != nil {
		return nil, err
	}
	if params.DueDate == nil {
		return nil, domain.ErrMissingDueDate
	}
	if err := s.validator.ValidateSchedule(params.DueDate, params.DueTime, now); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateRecurrence(params.Recurrence); err != nil {
		return nil, err
	}

	scope, err := s.scopes.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	// A task with no explicit assignees belongs to its creator.
	assigneeIDs := params.AssigneeIDs
	if len(assigneeIDs) == 0 {
		assigneeIDs = []int64{principal.UserID}
	} else if !scope.ContainsAll(assigneeIDs) {
		return nil, fmt.Errorf("%w: assignee outside resolved scope", domain.ErrPermissionDenied)
	}

	rule := params.Recurrence.Compile()
	task := &domain.Task{
		Title:          params.Title,
		Description:    params.Description,
		DueDate:        params.DueDate,
		DueTime:        params.DueTime,
		Status:         domain.TaskStatusTodo,
		Priority:       domain.TaskPriorityLow,
		IsRecurrent:    rule != nil,
		RecurrenceRule: rule,
		CreatedBy:      principal.UserID,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	if _, err := s.taskRepo.Create(ctx, tx, task); err != nil {
		return nil, err
	}
	if err := s.taskRepo.ReplaceAssignees(ctx, tx, task.ID, assigneeIDs); err != nil {
		return nil, err
	}

	// One escalation pass against zero progress; a task created close
	// to its deadline starts above low.
	due := CombineDueMoment(*task.DueDate, task.DueTime)
	escalated := s.escalator.Escalate(task.Priority, task.CreatedAt, due, task.Progress, now)
	if escalated != task.Priority {
		task.Priority = escalated
		if err := s.taskRepo.Update(ctx, tx, task); err != nil {
			return nil, err
		}
	}

	if err := s.enqueueCalendarSync(ctx, tx, task, principal, repository.OutboxOpCreate); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	task.AssigneeIDs = assigneeIDs

	slog.Info("task created",
		"task_id", task.ID,
		"creator_id", principal.UserID,
		"priority", task.Priority,
		"assignees", len(assigneeIDs),
	)

	return task, nil
}

// UpdateTaskParams is a field patch; nil pointers leave fields alone.
type UpdateTaskParams struct {
	Title         *string
	Description   *string
	DueDate       *time.Time
	DueTime       *string
	Status        *domain.TaskStatus
	Progress      *int
	Performance   *int
	Priority      *domain.TaskPriority
	BlockedReason *string
	Recurrence    *domain.RecurrenceDescriptor
	AssigneeIDs   []int64
}

// UpdateTask applies a field patch and recomputes the derived fields
// in one transaction: scheduling re-validation, recurrence recompile,
// progress/performance clamping, escalation, status derivation and a
// calendar update-or-create intent.
func (s *TaskService) UpdateTask(ctx context.Context, principal domain.Principal, taskID int64, params UpdateTaskParams) (*domain.Task, error) {
	now := s.Now()

	scope, err := s.authorize(ctx, principal, taskID)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		if err := s.validator.ValidateTitle(*params.Title); err != nil {
			return nil, err
		}
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}

	if params.DueDate != nil || params.DueTime != nil {
		if params.DueDate != nil {
			task.DueDate = params.DueDate
		}
		if params.DueTime != nil {
			task.DueTime = params.DueTime
		}
		if err := s.validator.ValidateSchedule(task.DueDate, task.DueTime, now); err != nil {
			return nil, err
		}
	}

	if params.Recurrence != nil {
		if err := s.validator.ValidateRecurrence(params.Recurrence); err != nil {
			return nil, err
		}
		rule := params.Recurrence.Compile()
		task.IsRecurrent = rule != nil
		task.RecurrenceRule = rule
	}

	if params.Progress != nil {
		task.Progress = domain.ClampPercent(*params.Progress)
	}
	if params.Performance != nil {
		task.Performance = domain.ClampPercent(*params.Performance)
	}
	if params.BlockedReason != nil {
		if *params.BlockedReason == "" {
			task.BlockedReason = nil
		} else {
			task.BlockedReason = params.BlockedReason
		}
	}
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, domain.ErrInvalidStatus
		}
		task.Status = *params.Status
	}

	// An explicit priority is a human decision: downgrades are allowed
	// and reset the baseline the escalator works from.
	if params.Priority != nil {
		if !params.Priority.IsValid() {
			return nil, domain.ErrInvalidPriority
		}
		task.Priority = *params.Priority
	}

	// Full completion wins over everything the patch said.
	if task.Progress >= 100 {
		task.Performance = 100
	}
	task.Status = DeriveStatus(task.Status, task.Progress, task.BlockedReason)

	if task.DueDate != nil {
		due := CombineDueMoment(*task.DueDate, task.DueTime)
		task.Priority = s.escalator.Escalate(task.Priority, task.CreatedAt, due, task.Progress, now)
	}

	if err := s.taskRepo.Update(ctx, tx, task); err != nil {
		return nil, err
	}

	if params.AssigneeIDs != nil {
		if !scope.ContainsAll(params.AssigneeIDs) {
			return nil, fmt.Errorf("%w: assignee outside resolved scope", domain.ErrPermissionDenied)
		}
		if err := s.taskRepo.ReplaceAssignees(ctx, tx, taskID, params.AssigneeIDs); err != nil {
			return nil, err
		}
	}

	op := repository.OutboxOpCreate
	if task.CalendarEventID != nil {
		op = repository.OutboxOpUpdate
	}
	if err := s.enqueueCalendarSync(ctx, tx, task, principal, op); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("task updated",
		"task_id", task.ID,
		"actor_id", principal.UserID,
		"status", task.Status,
		"priority", task.Priority,
	)

	return s.hydrate(ctx, task)
}

// DeleteTask removes a task and its owned rows. Subtasks and
// assignments go first; the cascade belongs to the orchestrator, not
// the store. The calendar delete intent rides in the same transaction
// and is dispatched after commit.
func (s *TaskService) DeleteTask(ctx context.Context, principal domain.Principal, taskID int64) error {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task, err = s.hydrate(ctx, task); err != nil {
		return err
	}
	if _, err := s.authorizeTask(ctx, principal, task); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	if s.calendarEnabled() && task.CalendarEventID != nil {
		entry := &repository.OutboxEntry{
			TaskID:     taskID,
			Op:         repository.OutboxOpDelete,
			ExternalID: task.CalendarEventID,
			Payload:    []byte("{}"),
		}
		if err := s.outboxRepo.Enqueue(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := s.subtaskRepo.DeleteByTaskID(ctx, tx, taskID); err != nil {
		return err
	}
	if err := s.taskRepo.DeleteAssignees(ctx, tx, taskID); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, tx, taskID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("task deleted", "task_id", taskID, "actor_id", principal.UserID)
	return nil
}

// GetTask returns a task with assignees if the principal's scope
// covers it.
func (s *TaskService) GetTask(ctx context.Context, principal domain.Principal, taskID int64) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task, err = s.hydrate(ctx, task)
	if err != nil {
		return nil, err
	}

	scope, err := s.scopes.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}
	if !scope.CoversTask(task) {
		return nil, fmt.Errorf("%w: task %d outside resolved scope", domain.ErrPermissionDenied, taskID)
	}

	return task, nil
}

// ListTasksParams are the caller-supplied list filters; the visibility
// predicate comes from the resolved scope, never from the caller.
type ListTasksParams struct {
	Statuses   []string
	Priorities []string
	Limit      int
	Offset     int
}

// ListTasks returns the tasks visible to the principal plus the
// unpaginated total and the authoritative scope tier.
func (s *TaskService) ListTasks(ctx context.Context, principal domain.Principal, params ListTasksParams) ([]*domain.Task, int, domain.ScopeTier, error) {
	scope, err := s.scopes.Resolve(ctx, principal)
	if err != nil {
		return nil, 0, "", err
	}

	tasks, total, err := s.taskRepo.List(ctx, repository.TaskListFilters{
		VisibleUserIDs: scope.UserIDs,
		Statuses:       params.Statuses,
		Priorities:     params.Priorities,
		Limit:          params.Limit,
		Offset:         params.Offset,
	})
	if err != nil {
		return nil, 0, "", err
	}

	for i, task := range tasks {
		if tasks[i], err = s.hydrate(ctx, task); err != nil {
			return nil, 0, "", err
		}
	}

	return tasks, total, scope.Tier, nil
}

// VisibleUsers returns the active users inside the principal's scope.
func (s *TaskService) VisibleUsers(ctx context.Context, principal domain.Principal) ([]*domain.User, domain.ScopeTier, error) {
	scope, err := s.scopes.Resolve(ctx, principal)
	if err != nil {
		return nil, "", err
	}

	users, err := s.userRepo.ListByIDs(ctx, scope.UserIDs)
	if err != nil {
		return nil, "", err
	}
	return users, scope.Tier, nil
}

// RefreshPriorities re-runs escalation and status derivation over all
// open tasks; this is the explicit refresh counterpart to the per-write
// re-evaluation. Returns how many tasks changed.
func (s *TaskService) RefreshPriorities(ctx context.Context) (int, error) {
	now := s.Now()

	tasks, err := s.taskRepo.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open tasks: %w", err)
	}

	changed := 0
	for _, task := range tasks {
		priority := task.Priority
		if task.DueDate != nil {
			due := CombineDueMoment(*task.DueDate, task.DueTime)
			priority = s.escalator.Escalate(task.Priority, task.CreatedAt, due, task.Progress, now)
		}
		status := DeriveStatus(task.Status, task.Progress, task.BlockedReason)

		if priority == task.Priority && status == task.Status {
			continue
		}
		task.Priority = priority
		task.Status = status

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return changed, fmt.Errorf("begin transaction: %w", err)
		}
		if err := s.taskRepo.Update(ctx, tx, task); err != nil {
			rollback(ctx, tx)
			slog.Error("priority refresh failed", "task_id", task.ID, "error", err)
			continue
		}
		if err := tx.Commit(ctx); err != nil {
			return changed, fmt.Errorf("commit transaction: %w", err)
		}
		changed++
	}

	slog.Info("priorities refreshed", "open", len(tasks), "changed", changed)
	return changed, nil
}

// authorize resolves the principal's scope and checks it covers the
// task. Forbidden is reported distinctly from not found.
func (s *TaskService) authorize(ctx context.Context, principal domain.Principal, taskID int64) (Scope, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return Scope{}, err
	}
	if task, err = s.hydrate(ctx, task); err != nil {
		return Scope{}, err
	}
	return s.authorizeTask(ctx, principal, task)
}

// authorizeTask checks an already-hydrated task against the
// principal's resolved scope.
func (s *TaskService) authorizeTask(ctx context.Context, principal domain.Principal, task *domain.Task) (Scope, error) {
	scope, err := s.scopes.Resolve(ctx, principal)
	if err != nil {
		return Scope{}, err
	}
	if !scope.CoversTask(task) {
		return Scope{}, fmt.Errorf("%w: task %d outside resolved scope", domain.ErrPermissionDenied, task.ID)
	}
	return scope, nil
}

// hydrate attaches the assignee IDs to a task.
func (s *TaskService) hydrate(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	ids, err := s.taskRepo.GetAssigneeIDs(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	task.AssigneeIDs = ids
	return task, nil
}

func (s *TaskService) calendarEnabled() bool {
	return s.policy.Calendar.BaseURL != ""
}

// enqueueCalendarSync records a create/update intent for the task's
// due window inside the open transaction. The event always spans the
// fixed policy length from the due moment.
func (s *TaskService) enqueueCalendarSync(ctx context.Context, tx pgx.Tx, task *domain.Task, principal domain.Principal, op repository.OutboxOp) error {
	if !s.calendarEnabled() || task.DueDate == nil {
		return nil
	}

	startAt := CombineDueMoment(*task.DueDate, task.DueTime)
	event := calendar.Event{
		Title:          task.Title,
		Description:    task.Description,
		StartAt:        startAt,
		EndAt:          startAt.Add(time.Duration(s.policy.Calendar.EventMinutes) * time.Minute),
		RecurrenceRule: task.RecurrenceRule,
		Metadata: calendar.EventMetadata{
			TaskID:       task.ID,
			DepartmentID: principal.DepartmentID,
		},
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal calendar event: %w", err)
	}

	entry := &repository.OutboxEntry{
		TaskID:     task.ID,
		Op:         op,
		ExternalID: task.CalendarEventID,
		Payload:    payload,
	}
	return s.outboxRepo.Enqueue(ctx, tx, entry)
}

// rollback is the shared deferred rollback; a commit makes it a no-op.
func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		slog.Error("failed to rollback transaction", "error", err)
	}
}

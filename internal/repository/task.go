package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsdesk/deskd/internal/domain"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "title", "description", "due_date", "due_time",
	"status", "progress", "performance", "priority", "blocked_reason",
	"is_recurrent", "recurrence_rule", "calendar_event_id",
	"created_by", "created_at", "updated_at",
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.DueTime,
		&task.Status,
		&task.Progress,
		&task.Performance,
		&task.Priority,
		&task.BlockedReason,
		&task.IsRecurrent,
		&task.RecurrenceRule,
		&task.CalendarEventID,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// GetByID retrieves a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, taskID int64) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// GetByIDForUpdate retrieves a task by ID with FOR UPDATE lock (within transaction).
func (r *TaskRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, taskID int64) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByIDForUpdate query for task %d: %w", taskID, err)
	}

	return scanTask(tx.QueryRow(ctx, query, args...))
}

// Create inserts a new task row within a transaction and returns it
// with ID, CreatedAt and UpdatedAt populated.
func (r *TaskRepository) Create(ctx context.Context, tx pgx.Tx, task *domain.Task) (*domain.Task, error) {
	query, args, err := psql.
		Insert("tasks").
		Columns(
			"title", "description", "due_date", "due_time",
			"status", "progress", "performance", "priority", "blocked_reason",
			"is_recurrent", "recurrence_rule", "created_by",
		).
		Values(
			task.Title,
			task.Description,
			task.DueDate,
			task.DueTime,
			task.Status,
			task.Progress,
			task.Performance,
			task.Priority,
			task.BlockedReason,
			task.IsRecurrent,
			task.RecurrenceRule,
			task.CreatedBy,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for task: %w", err)
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// Update writes all mutable task fields back within a transaction.
// Every write is a full-value SET, so a retried update is idempotent
// at the field level.
func (r *TaskRepository) Update(ctx context.Context, tx pgx.Tx, task *domain.Task) error {
	query, args, err := psql.
		Update("tasks").
		Set("title", task.Title).
		Set("description", task.Description).
		Set("due_date", task.DueDate).
		Set("due_time", task.DueTime).
		Set("status", task.Status).
		Set("progress", task.Progress).
		Set("performance", task.Performance).
		Set("priority", task.Priority).
		Set("blocked_reason", task.BlockedReason).
		Set("is_recurrent", task.IsRecurrent).
		Set("recurrence_rule", task.RecurrenceRule).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": task.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Update query for task %d: %w", task.ID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}

	return nil
}

// SetCalendarEventID records the external calendar reference for a task.
// It runs on the pool because the dispatcher calls it outside any task
// transaction.
func (r *TaskRepository) SetCalendarEventID(ctx context.Context, taskID int64, externalID *string) error {
	query, args, err := psql.
		Update("tasks").
		Set("calendar_event_id", externalID).
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build SetCalendarEventID query for task %d: %w", taskID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set calendar event id: %w", err)
	}
	return nil
}

// Delete removes the task row. Assignees and subtasks must be deleted
// first; foreign keys enforce the ordering.
func (r *TaskRepository) Delete(ctx context.Context, tx pgx.Tx, taskID int64) error {
	query, args, err := psql.
		Delete("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for task %d: %w", taskID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}

	return nil
}

// GetAssigneeIDs retrieves the assignee user IDs for a task.
func (r *TaskRepository) GetAssigneeIDs(ctx context.Context, taskID int64) ([]int64, error) {
	query, args, err := psql.
		Select("user_id").
		From("task_assignees").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("user_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetAssigneeIDs query for task %d: %w", taskID, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return ids, nil
}

// ReplaceAssignees replaces the full assignee set for a task within a
// transaction.
func (r *TaskRepository) ReplaceAssignees(ctx context.Context, tx pgx.Tx, taskID int64, userIDs []int64) error {
	delQuery, delArgs, err := psql.
		Delete("task_assignees").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build assignee delete query for task %d: %w", taskID, err)
	}
	if _, err := tx.Exec(ctx, delQuery, delArgs...); err != nil {
		return fmt.Errorf("clear assignees: %w", err)
	}

	if len(userIDs) == 0 {
		return nil
	}

	insert := psql.Insert("task_assignees").Columns("task_id", "user_id")
	for _, userID := range userIDs {
		insert = insert.Values(taskID, userID)
	}
	insQuery, insArgs, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build assignee insert query for task %d: %w", taskID, err)
	}
	if _, err := tx.Exec(ctx, insQuery, insArgs...); err != nil {
		return fmt.Errorf("insert assignees: %w", err)
	}

	return nil
}

// DeleteAssignees removes all assignment rows for a task.
func (r *TaskRepository) DeleteAssignees(ctx context.Context, tx pgx.Tx, taskID int64) error {
	query, args, err := psql.
		Delete("task_assignees").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build DeleteAssignees query for task %d: %w", taskID, err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete assignees: %w", err)
	}
	return nil
}

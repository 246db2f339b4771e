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

// SubtaskRepository handles database operations for subtasks.
type SubtaskRepository struct {
	pool *pgxpool.Pool
}

// NewSubtaskRepository creates a new SubtaskRepository.
func NewSubtaskRepository(pool *pgxpool.Pool) *SubtaskRepository {
	return &SubtaskRepository{pool: pool}
}

var subtaskColumns = []string{"id", "task_id", "title", "description", "is_done", "created_at"}

func scanSubtask(row pgx.Row) (*domain.Subtask, error) {
	var subtask domain.Subtask
	err := row.Scan(
		&subtask.ID,
		&subtask.TaskID,
		&subtask.Title,
		&subtask.Description,
		&subtask.IsDone,
		&subtask.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubtaskNotFound
		}
		return nil, fmt.Errorf("scan subtask: %w", err)
	}
	return &subtask, nil
}

// Create inserts a new subtask row.
func (r *SubtaskRepository) Create(ctx context.Context, subtask *domain.Subtask) (*domain.Subtask, error) {
	query, args, err := psql.
		Insert("task_subtasks").
		Columns("task_id", "title", "description", "is_done").
		Values(subtask.TaskID, subtask.Title, subtask.Description, subtask.IsDone).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for subtask: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&subtask.ID, &subtask.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create subtask: %w", err)
	}

	return subtask, nil
}

// GetByID retrieves a subtask scoped to its parent task.
func (r *SubtaskRepository) GetByID(ctx context.Context, taskID, subtaskID int64) (*domain.Subtask, error) {
	query, args, err := psql.
		Select(subtaskColumns...).
		From("task_subtasks").
		Where(sq.Eq{"id": subtaskID, "task_id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for subtask %d: %w", subtaskID, err)
	}

	return scanSubtask(r.pool.QueryRow(ctx, query, args...))
}

// ListByTaskID retrieves all subtasks for a task.
func (r *SubtaskRepository) ListByTaskID(ctx context.Context, taskID int64) ([]*domain.Subtask, error) {
	query, args, err := psql.
		Select(subtaskColumns...).
		From("task_subtasks").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByTaskID query for task %d: %w", taskID, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []*domain.Subtask
	for rows.Next() {
		subtask, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, subtask)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return subtasks, nil
}

// Update writes the mutable subtask fields back.
func (r *SubtaskRepository) Update(ctx context.Context, subtask *domain.Subtask) error {
	query, args, err := psql.
		Update("task_subtasks").
		Set("title", subtask.Title).
		Set("description", subtask.Description).
		Set("is_done", subtask.IsDone).
		Where(sq.Eq{"id": subtask.ID, "task_id": subtask.TaskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Update query for subtask %d: %w", subtask.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update subtask: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubtaskNotFound
	}
	return nil
}

// Delete removes a single subtask scoped to its parent task.
func (r *SubtaskRepository) Delete(ctx context.Context, taskID, subtaskID int64) error {
	query, args, err := psql.
		Delete("task_subtasks").
		Where(sq.Eq{"id": subtaskID, "task_id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for subtask %d: %w", subtaskID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubtaskNotFound
	}
	return nil
}

// DeleteByTaskID removes all subtasks for a task within a transaction.
// Called by the task delete cascade before the task row goes away.
func (r *SubtaskRepository) DeleteByTaskID(ctx context.Context, tx pgx.Tx, taskID int64) error {
	query, args, err := psql.
		Delete("task_subtasks").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build DeleteByTaskID query for task %d: %w", taskID, err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete subtasks: %w", err)
	}
	return nil
}

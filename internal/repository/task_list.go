package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/opsdesk/deskd/internal/domain"
)

// TaskListFilters holds all supported filters for task listing.
type TaskListFilters struct {
	VisibleUserIDs []int64  // Required: resolved scope; tasks are visible through creator or assignees
	Statuses       []string // Optional: filter by stored status
	Priorities     []string // Optional: filter by priority
	Limit          int      // Required: page size
	Offset         int      // Required: page offset
}

// scopePredicate builds the visibility predicate for a resolved user
// set: a task is visible iff its creator or at least one assignee is
// in the set. Task-level visibility is always derived from the user
// set, never computed independently.
func scopePredicate(visibleUserIDs []int64) sq.Sqlizer {
	return sq.Or{
		sq.Expr("tasks.created_by = ANY(?)", visibleUserIDs),
		sq.Expr("EXISTS (SELECT 1 FROM task_assignees ta WHERE ta.task_id = tasks.id AND ta.user_id = ANY(?))", visibleUserIDs),
	}
}

// List retrieves tasks visible under the resolved scope, with filters
// and pagination, plus the unpaginated total. An empty scope returns
// no rows; callers treat that as authorized-but-nothing-to-show.
func (r *TaskRepository) List(ctx context.Context, filters TaskListFilters) ([]*domain.Task, int, error) {
	if len(filters.VisibleUserIDs) == 0 {
		return nil, 0, nil
	}

	qb := psql.Select(taskColumns...).From("tasks").
		Where(scopePredicate(filters.VisibleUserIDs))

	if len(filters.Statuses) > 0 {
		qb = qb.Where(sq.Eq{"status": filters.Statuses})
	}
	if len(filters.Priorities) > 0 {
		qb = qb.Where(sq.Eq{"priority": filters.Priorities})
	}

	qb = qb.OrderBy("CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 END ASC")
	qb = qb.OrderBy("due_date ASC NULLS LAST", "id ASC")
	qb = qb.Limit(uint64(filters.Limit)).Offset(uint64(filters.Offset))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build List query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, 0, err
	}

	countQb := psql.Select("COUNT(*)").From("tasks").
		Where(scopePredicate(filters.VisibleUserIDs))
	if len(filters.Statuses) > 0 {
		countQb = countQb.Where(sq.Eq{"status": filters.Statuses})
	}
	if len(filters.Priorities) > 0 {
		countQb = countQb.Where(sq.Eq{"priority": filters.Priorities})
	}

	countQuery, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	return tasks, total, nil
}

// ListOpen retrieves every non-done task, used by the priority
// refresh pass.
func (r *TaskRepository) ListOpen(ctx context.Context) ([]*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.NotEq{"status": "done"}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListOpen query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query open tasks: %w", err)
	}

	return scanTasks(rows)
}

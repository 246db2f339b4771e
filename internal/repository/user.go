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

var userColumns = []string{
	"id", "name", "email", "token", "is_admin", "is_manager", "is_active",
	"department_id", "created_at",
}

// UserRepository handles database operations for users and the org
// chart lookups the scope resolver needs.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Token,
		&user.IsAdmin,
		&user.IsManager,
		&user.IsActive,
		&user.DepartmentID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

// GetByToken finds a user by authentication token.
func (r *UserRepository) GetByToken(ctx context.Context, token string) (*domain.User, error) {
	query, args, err := psql.
		Select(userColumns...).
		From("users").
		Where(sq.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByToken query: %w", err)
	}

	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	query, args, err := psql.
		Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for user %d: %w", userID, err)
	}

	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// ListByIDs retrieves users for a resolved scope, active ones only.
func (r *UserRepository) ListByIDs(ctx context.Context, userIDs []int64) ([]*domain.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args, err := psql.
		Select(userColumns...).
		From("users").
		Where(sq.Expr("id = ANY(?)", userIDs)).
		Where(sq.Eq{"is_active": true}).
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByIDs query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return users, nil
}

// queryIDs runs a single-column int64 query.
func (r *UserRepository) queryIDs(ctx context.Context, qb sq.SelectBuilder, what string) ([]int64, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", what, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return ids, nil
}

// ActiveUserIDs returns every active user in the organization.
func (r *UserRepository) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	return r.queryIDs(ctx, psql.
		Select("id").From("users").
		Where(sq.Eq{"is_active": true}).
		OrderBy("id ASC"), "active users")
}

// ManagedDepartmentIDs returns the departments the user manages.
func (r *UserRepository) ManagedDepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.queryIDs(ctx, psql.
		Select("id").From("departments").
		Where(sq.Eq{"manager_id": userID}).
		OrderBy("id ASC"), "managed departments")
}

// UserIDsByDepartments returns active users belonging to the given departments.
func (r *UserRepository) UserIDsByDepartments(ctx context.Context, departmentIDs []int64) ([]int64, error) {
	if len(departmentIDs) == 0 {
		return nil, nil
	}
	return r.queryIDs(ctx, psql.
		Select("id").From("users").
		Where(sq.Expr("department_id = ANY(?)", departmentIDs)).
		Where(sq.Eq{"is_active": true}).
		OrderBy("id ASC"), "department users")
}

// ManagedProjectIDs returns the projects the user manages.
func (r *UserRepository) ManagedProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.queryIDs(ctx, psql.
		Select("id").From("projects").
		Where(sq.Eq{"manager_id": userID}).
		OrderBy("id ASC"), "managed projects")
}

// UserIDsByProjects returns members of any team attached to the given projects.
func (r *UserRepository) UserIDsByProjects(ctx context.Context, projectIDs []int64) ([]int64, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return r.queryIDs(ctx, psql.
		Select("DISTINCT tm.user_id").
		From("team_members tm").
		Join("project_assignments pa ON pa.team_id = tm.team_id").
		Where(sq.Expr("pa.project_id = ANY(?)", projectIDs)).
		OrderBy("tm.user_id ASC"), "project users")
}

// LedTeamIDs returns the teams the user leads.
func (r *UserRepository) LedTeamIDs(ctx context.Context, userID int64) ([]int64, error) {
	return r.queryIDs(ctx, psql.
		Select("id").From("teams").
		Where(sq.Eq{"lead_id": userID}).
		OrderBy("id ASC"), "led teams")
}

// UserIDsByTeams returns members of the given teams.
func (r *UserRepository) UserIDsByTeams(ctx context.Context, teamIDs []int64) ([]int64, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	return r.queryIDs(ctx, psql.
		Select("DISTINCT user_id").
		From("team_members").
		Where(sq.Expr("team_id = ANY(?)", teamIDs)).
		OrderBy("user_id ASC"), "team users")
}

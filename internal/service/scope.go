package service

import (
	"context"
	"fmt"

	"github.com/opsdesk/deskd/internal/domain"
)

// Directory is the org-chart lookup surface the scope resolver needs.
// repository.UserRepository implements it against the store.
type Directory interface {
	ActiveUserIDs(ctx context.Context) ([]int64, error)
	ManagedDepartmentIDs(ctx context.Context, userID int64) ([]int64, error)
	UserIDsByDepartments(ctx context.Context, departmentIDs []int64) ([]int64, error)
	ManagedProjectIDs(ctx context.Context, userID int64) ([]int64, error)
	UserIDsByProjects(ctx context.Context, projectIDs []int64) ([]int64, error)
	LedTeamIDs(ctx context.Context, userID int64) ([]int64, error)
	UserIDsByTeams(ctx context.Context, teamIDs []int64) ([]int64, error)
}

// Scope is the resolved visibility set for one request.
type Scope struct {
	Tier    domain.ScopeTier
	UserIDs []int64
}

// Contains reports whether a user is inside the resolved set.
func (s Scope) Contains(userID int64) bool {
	for _, id := range s.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every given user is inside the set.
func (s Scope) ContainsAll(userIDs []int64) bool {
	for _, id := range userIDs {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// CoversTask reports whether a task is visible under the scope: at
// least one assignee, or the creator, is in the resolved user set.
// Task visibility is always derived from the user set.
func (s Scope) CoversTask(task *domain.Task) bool {
	if s.Contains(task.CreatedBy) {
		return true
	}
	for _, id := range task.AssigneeIDs {
		if s.Contains(id) {
			return true
		}
	}
	return false
}

// ScopeResolver computes the visible user set for a principal through
// the role fallback chain. Tiers are evaluated in a fixed order and
// the first tier whose capability holds is authoritative, even when
// the principal would satisfy later tiers too. That precedence is a
// policy choice callers depend on, not a derived fact.
type ScopeResolver struct {
	dir Directory
}

// NewScopeResolver creates a new ScopeResolver.
func NewScopeResolver(dir Directory) *ScopeResolver {
	return &ScopeResolver{dir: dir}
}

// Resolve walks the fallback chain for the principal:
//
//  1. organization admin: every active user;
//  2. department manager: active users of every department the
//     principal manages (union across departments);
//  3. project manager: members of any team attached to a project the
//     principal manages;
//  4. team lead: members of any team the principal leads;
//  5. default: the principal alone.
//
// Each tier's capability check short-circuits the chain, bounding the
// number of sequential lookups per request. A tier that holds but
// yields no members still wins; callers must treat the empty set as
// authorized-but-nothing-to-show, not as an error.
func (r *ScopeResolver) Resolve(ctx context.Context, principal domain.Principal) (Scope, error) {
	if principal.IsAdmin {
		ids, err := r.dir.ActiveUserIDs(ctx)
		if err != nil {
			return Scope{}, fmt.Errorf("resolve admin scope: %w", err)
		}
		return Scope{Tier: domain.ScopeTierAdmin, UserIDs: ids}, nil
	}

	departmentIDs, err := r.dir.ManagedDepartmentIDs(ctx, principal.UserID)
	if err != nil {
		return Scope{}, fmt.Errorf("lookup managed departments: %w", err)
	}
	if len(departmentIDs) > 0 {
		ids, err := r.dir.UserIDsByDepartments(ctx, departmentIDs)
		if err != nil {
			return Scope{}, fmt.Errorf("resolve department scope: %w", err)
		}
		return Scope{Tier: domain.ScopeTierDepartmentManager, UserIDs: ids}, nil
	}

	projectIDs, err := r.dir.ManagedProjectIDs(ctx, principal.UserID)
	if err != nil {
		return Scope{}, fmt.Errorf("lookup managed projects: %w", err)
	}
	if len(projectIDs) > 0 {
		ids, err := r.dir.UserIDsByProjects(ctx, projectIDs)
		if err != nil {
			return Scope{}, fmt.Errorf("resolve project scope: %w", err)
		}
		return Scope{Tier: domain.ScopeTierProjectManager, UserIDs: ids}, nil
	}

	teamIDs, err := r.dir.LedTeamIDs(ctx, principal.UserID)
	if err != nil {
		return Scope{}, fmt.Errorf("lookup led teams: %w", err)
	}
	if len(teamIDs) > 0 {
		ids, err := r.dir.UserIDsByTeams(ctx, teamIDs)
		if err != nil {
			return Scope{}, fmt.Errorf("resolve team scope: %w", err)
		}
		return Scope{Tier: domain.ScopeTierTeamLead, UserIDs: ids}, nil
	}

	return Scope{Tier: domain.ScopeTierSelf, UserIDs: []int64{principal.UserID}}, nil
}

package service_test

import (
	"context"
	"testing"

	"github.com/opsdesk/deskd/internal/domain"
	"github.com/opsdesk/deskd/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory is an in-memory org chart for resolver tests.
type fakeDirectory struct {
	activeUsers     []int64
	managedDepts    map[int64][]int64
	deptMembers     map[int64][]int64
	managedProjects map[int64][]int64
	projectMembers  map[int64][]int64
	ledTeams        map[int64][]int64
	teamMembers     map[int64][]int64
}

func (f *fakeDirectory) ActiveUserIDs(context.Context) ([]int64, error) {
	return f.activeUsers, nil
}

func (f *fakeDirectory) ManagedDepartmentIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.managedDepts[userID], nil
}

func (f *fakeDirectory) UserIDsByDepartments(_ context.Context, departmentIDs []int64) ([]int64, error) {
	return f.union(f.deptMembers, departmentIDs), nil
}

func (f *fakeDirectory) ManagedProjectIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.managedProjects[userID], nil
}

func (f *fakeDirectory) UserIDsByProjects(_ context.Context, projectIDs []int64) ([]int64, error) {
	return f.union(f.projectMembers, projectIDs), nil
}

func (f *fakeDirectory) LedTeamIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.ledTeams[userID], nil
}

func (f *fakeDirectory) UserIDsByTeams(_ context.Context, teamIDs []int64) ([]int64, error) {
	return f.union(f.teamMembers, teamIDs), nil
}

func (f *fakeDirectory) union(members map[int64][]int64, keys []int64) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, key := range keys {
		for _, id := range members[key] {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func TestResolve_AdminSeesEveryActiveUser(t *testing.T) {
	dir := &fakeDirectory{
		activeUsers: []int64{1, 2, 3, 4},
		// Admins short-circuit before any org lookups.
		managedDepts: map[int64][]int64{1: {10}},
	}
	resolver := service.NewScopeResolver(dir)

	scope, err := resolver.Resolve(context.Background(), domain.Principal{UserID: 1, IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeTierAdmin, scope.Tier)
	assert.Equal(t, []int64{1, 2, 3, 4}, scope.UserIDs)
}

func TestResolve_DepartmentManagerBeatsTeamLead(t *testing.T) {
	dir := &fakeDirectory{
		managedDepts: map[int64][]int64{5: {10}},
		deptMembers:  map[int64][]int64{10: {5, 6, 7}},
		// The same principal also leads a team; the department
		// tier must win.
		ledTeams:    map[int64][]int64{5: {20}},
		teamMembers: map[int64][]int64{20: {5, 99}},
	}
	resolver := service.NewScopeResolver(dir)

	scope, err := resolver.Resolve(context.Background(), domain.Principal{UserID: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeTierDepartmentManager, scope.Tier)
	assert.Equal(t, []int64{5, 6, 7}, scope.UserIDs)
	assert.False(t, scope.Contains(99))
}

func TestResolve_UnionAcrossManagedDepartments(t *testing.T) {
	dir := &fakeDirectory{
		managedDepts: map[int64][]int64{5: {10, 11}},
		deptMembers: map[int64][]int64{
			10: {6, 7},
			11: {7, 8},
		},
	}
	resolver := service.NewScopeResolver(dir)

	scope, err := resolver.Resolve(context.Background(), domain.Principal{UserID: 5})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{6, 7, 8}, scope.UserIDs)
}

func TestResolve_ProjectManagerTier(t *testing.T) {
	dir := &fakeDirectory{
		managedProjects: map[int64][]int64{5: {30}},
		projectMembers:  map[int64][]int64{30: {6, 7}},
	}
	resolver := service.NewScopeResolver(dir)

	scope, err := resolver.Resolve(context.Background(), domain.Principal{UserID: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeTierProjectManager, scope.Tier)
	assert.Equal(t, []int64{6, 7}, scope.UserIDs)
}

func TestResolve_TeamLeadTier(t *testing.T) {
	dir := &fakeDirectory{
		ledTeams:    map[int64][]int64{5: {20}},
		teamMembers: map[int64][]int64{20: {5, 6}},
	}
	resolver := service.NewScopeResolver(dir)

	scope, err := resolver.Resolve(context.Background(), domain.Principal{UserID: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeTierTeamLead, scope.Tier)
	assert.Equal(t, []int64{5, 6}, scope.UserIDs)
}

func TestResolve_DefaultsToSelf(t *testing.T) {
	resolver := service.NewScopeResolver(&fakeDirectory{})

	scope, err := resolver.Resolve(context.Background(), domain.Principal{UserID: 42})
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeTierSelf, scope.Tier)
	assert.Equal(t, []int64{42}, scope.UserIDs)
}

func TestResolve_WinningTierMayBeEmpty(t *testing.T) {
	// Managing an empty department is still authoritative; the
	// empty set means nothing to show, not fall through to self.
	dir := &fakeDirectory{
		managedDepts: map[int64][]int64{5: {10}},
		deptMembers:  map[int64][]int64{},
	}
	resolver := service.NewScopeResolver(dir)

	scope, err := resolver.Resolve(context.Background(), domain.Principal{UserID: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeTierDepartmentManager, scope.Tier)
	assert.Empty(t, scope.UserIDs)
	assert.False(t, scope.Contains(5))
}

func TestScope_CoversTask(t *testing.T) {
	scope := service.Scope{Tier: domain.ScopeTierTeamLead, UserIDs: []int64{5, 6}}

	assert.True(t, scope.CoversTask(&domain.Task{CreatedBy: 5}))
	assert.True(t, scope.CoversTask(&domain.Task{CreatedBy: 99, AssigneeIDs: []int64{1, 6}}))
	assert.False(t, scope.CoversTask(&domain.Task{CreatedBy: 99, AssigneeIDs: []int64{1, 2}}))
}

func TestScope_ContainsAll(t *testing.T) {
	scope := service.Scope{UserIDs: []int64{5, 6, 7}}

	assert.True(t, scope.ContainsAll(nil))
	assert.True(t, scope.ContainsAll([]int64{5, 7}))
	assert.False(t, scope.ContainsAll([]int64{5, 8}))
}

package domain

import "time"

// User represents a member of the organization.
type User struct {
	ID           int64
	Name         string
	Email        string
	Token        string
	IsAdmin      bool
	IsManager    bool
	IsActive     bool
	DepartmentID *int64
	CreatedAt    time.Time
}

// Principal is the per-request identity the visibility engine works
// from. It is rebuilt from store lookups on every request and never
// cached across requests.
type Principal struct {
	UserID       int64
	IsAdmin      bool
	IsManager    bool
	DepartmentID *int64
}

// ScopeTier identifies which rung of the visibility fallback chain
// was authoritative for a request. Exactly one tier wins; evaluation
// order is fixed (admin, department manager, project manager, team
// lead, self) regardless of how many tiers the principal satisfies.
type ScopeTier string

const (
	ScopeTierAdmin             ScopeTier = "admin"
	ScopeTierDepartmentManager ScopeTier = "department_manager"
	ScopeTierProjectManager    ScopeTier = "project_manager"
	ScopeTierTeamLead          ScopeTier = "team_lead"
	ScopeTierSelf              ScopeTier = "self"
)

// Department groups users under a single manager.
type Department struct {
	ID        int64
	Name      string
	ManagerID *int64
}

// Team is a working group inside a department, led by one user.
type Team struct {
	ID           int64
	Name         string
	DepartmentID *int64
	LeadID       *int64
}

// Project is staffed by teams through project_assignments.
type Project struct {
	ID        int64
	Name      string
	ManagerID *int64
}

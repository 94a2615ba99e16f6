package domain

import (
	"slices"
	"time"
)

// DefaultStatuses is the status vocabulary given to projects that do not
// declare their own.
var DefaultStatuses = []string{"ToDo", "Doing", "Testing", "Done"}

// Vocabulary size limits.
const (
	MinStatuses = 2
	MaxStatuses = 10
)

// Role is a user's role within one project.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleViewer  Role = "viewer"
)

// IsValid returns true if the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

// CanManageSprints reports whether the role may create, update and delete sprints.
func (r Role) CanManageSprints() bool {
	return r == RoleOwner || r == RoleManager
}

// CanEditTasks reports whether the role may change tasks and sprint membership.
func (r Role) CanEditTasks() bool {
	return r == RoleOwner || r == RoleManager || r == RoleMember
}

// ProjectMember binds a user to a role in a project.
type ProjectMember struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// Project groups sprints and tasks under one status vocabulary.
// Fields are ordered to minimize memory padding.
type Project struct {
	Created    time.Time       `json:"created"`
	Updated    time.Time       `json:"updated"`
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	DoneStatus string          `json:"doneStatus"` // Terminal label counted as complete
	OwnerID    string          `json:"ownerId"`
	Statuses   []string        `json:"statuses"`
	Members    []ProjectMember `json:"members,omitempty"`
}

// RoleOf returns the role of userID in the project, or "" if the user is not a member.
func (p *Project) RoleOf(userID string) Role {
	if userID == "" {
		return ""
	}
	if p.OwnerID == userID {
		return RoleOwner
	}
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// HasStatus reports whether status is part of the project vocabulary.
func (p *Project) HasStatus(status string) bool {
	return slices.Contains(p.Statuses, status)
}

// IsDone reports whether status is the project's terminal status.
func (p *Project) IsDone(status string) bool {
	return status != "" && status == p.DoneStatus
}

// InitialStatus returns the status new tasks start in.
func (p *Project) InitialStatus() string {
	if len(p.Statuses) == 0 {
		return ""
	}
	return p.Statuses[0]
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Statuses = slices.Clone(p.Statuses)
	c.Members = slices.Clone(p.Members)
	return &c
}

// NormalizeVocabulary validates a status vocabulary and resolves the done
// status. An empty vocabulary yields DefaultStatuses; an empty done status
// falls back to the last vocabulary entry.
func NormalizeVocabulary(statuses []string, done string) ([]string, string, error) {
	if len(statuses) == 0 {
		statuses = DefaultStatuses
	}
	if len(statuses) < MinStatuses || len(statuses) > MaxStatuses {
		return nil, "", ErrInvalidVocabulary
	}
	seen := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		if s == "" || seen[s] {
			return nil, "", ErrInvalidVocabulary
		}
		seen[s] = true
	}
	if done == "" {
		done = statuses[len(statuses)-1]
	}
	if !seen[done] {
		return nil, "", ErrInvalidDoneStatus
	}
	return slices.Clone(statuses), done, nil
}

// Package domain contains core business entities and interfaces.
package domain

import (
	"slices"
	"time"
)

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid returns true if the priority is a known value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Task represents a work unit inside a project.
// Fields are ordered to minimize memory padding.
type Task struct {
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"` // Member of the project vocabulary
	Priority    Priority  `json:"priority"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	SprintID    string    `json:"sprintId,omitempty"` // Empty = not in a sprint
}

// TaskFields holds the user-editable task fields for validation.
type TaskFields struct {
	Title       string `validate:"min=1,max=200"`
	Description string `validate:"max=5000"`
}

// InSprint returns true if the task is a member of some sprint.
func (t *Task) InSprint() bool {
	return t.SprintID != ""
}

// Clone returns a copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// TaskFilter specifies criteria for listing tasks.
// Empty fields match everything.
type TaskFilter struct {
	ProjectID string
	SprintID  string
	IDs       []string // Restrict to these task IDs
}

// Matches reports whether t satisfies the filter.
func (f TaskFilter) Matches(t *Task) bool {
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.SprintID != "" && t.SprintID != f.SprintID {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, t.ID) {
		return false
	}
	return true
}

package domain

import (
	"slices"
	"strings"
	"time"
)

// Sprint is a time-boxed group of tasks within a project.
// Progress and Status are derived; callers never set them directly.
// Fields are ordered to minimize memory padding.
type Sprint struct {
	Created     time.Time    `json:"created"`
	Updated     time.Time    `json:"updated"`
	StartDate   *time.Time   `json:"startDate,omitempty"`
	EndDate     *time.Time   `json:"endDate,omitempty"`
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Status      SprintStatus `json:"status"`
	CreatedBy   string       `json:"createdBy"`
	UpdatedBy   string       `json:"updatedBy,omitempty"`
	TaskIDs     []string     `json:"taskIds"`
	Progress    int          `json:"progress"` // 0-100
}

// SprintFields holds the user-editable sprint fields for validation.
type SprintFields struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Name        string `validate:"min=3,max=100"`
	Description string `validate:"max=500"`
}

// Validate checks field constraints and the date range.
func (f SprintFields) Validate() error {
	if err := Validate(f); err != nil {
		return err
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// Fields returns the editable fields of the sprint.
func (s *Sprint) Fields() SprintFields {
	return SprintFields{
		Name:        s.Name,
		Description: s.Description,
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
	}
}

// HasTask reports whether taskID is a member of the sprint.
func (s *Sprint) HasTask(taskID string) bool {
	return slices.Contains(s.TaskIDs, taskID)
}

// AddTask appends taskID to the membership list.
// Returns false if the task was already a member.
func (s *Sprint) AddTask(taskID string) bool {
	if s.HasTask(taskID) {
		return false
	}
	s.TaskIDs = append(s.TaskIDs, taskID)
	return true
}

// RemoveTask removes taskID from the membership list, keeping order.
// Returns false if the task was not a member.
func (s *Sprint) RemoveTask(taskID string) bool {
	idx := slices.Index(s.TaskIDs, taskID)
	if idx < 0 {
		return false
	}
	s.TaskIDs = slices.Delete(s.TaskIDs, idx, idx+1)
	return true
}

// Refresh re-derives the lifecycle status for now.
func (s *Sprint) Refresh(now time.Time) {
	s.Status = DeriveSprintStatus(s.Status, s.StartDate, s.EndDate, now)
}

// Clone returns a deep copy of the sprint.
func (s *Sprint) Clone() *Sprint {
	if s == nil {
		return nil
	}
	c := *s
	c.TaskIDs = slices.Clone(s.TaskIDs)
	if c.TaskIDs == nil {
		c.TaskIDs = []string{}
	}
	if s.StartDate != nil {
		t := *s.StartDate
		c.StartDate = &t
	}
	if s.EndDate != nil {
		t := *s.EndDate
		c.EndDate = &t
	}
	return &c
}

// SprintFilter specifies criteria for listing sprints.
// Empty fields match everything.
type SprintFilter struct {
	ProjectID string
	Status    SprintStatus
	Search    string // Case-insensitive substring of the name
}

// Matches reports whether s satisfies the filter.
func (f SprintFilter) Matches(s *Sprint) bool {
	if f.ProjectID != "" && s.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

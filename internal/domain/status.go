package domain

import "time"

// SprintStatus represents the lifecycle state of a sprint.
// It is derived from the sprint dates; only Cancelled is set by hand.
type SprintStatus string

const (
	SprintPlanning  SprintStatus = "Planning"  // Not started yet (or no start date)
	SprintActive    SprintStatus = "Active"    // Between start and end date
	SprintCompleted SprintStatus = "Completed" // End date has passed
	SprintCancelled SprintStatus = "Cancelled" // Manually cancelled, terminal
)

// AllSprintStatuses returns all valid sprint status values.
func AllSprintStatuses() []SprintStatus {
	return []SprintStatus{
		SprintPlanning,
		SprintActive,
		SprintCompleted,
		SprintCancelled,
	}
}

// IsValid returns true if the status is a known valid value.
func (s SprintStatus) IsValid() bool {
	switch s {
	case SprintPlanning, SprintActive, SprintCompleted, SprintCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status can never change again.
func (s SprintStatus) IsTerminal() bool {
	return s == SprintCancelled
}

// Display returns a human-readable representation of the status.
func (s SprintStatus) Display() string {
	if s == "" {
		return string(SprintPlanning)
	}
	return string(s)
}

// DeriveSprintStatus computes the lifecycle status for the given dates.
// Flow: Planning --(now >= start)--> Active --(now > end)--> Completed
//
// A sprint that is already Cancelled stays Cancelled, and a sprint without a
// start date never leaves Planning.
func DeriveSprintStatus(current SprintStatus, start, end *time.Time, now time.Time) SprintStatus {
	if current.IsTerminal() {
		return current
	}
	if start == nil || now.Before(*start) {
		return SprintPlanning
	}
	if end != nil && now.After(*end) {
		return SprintCompleted
	}
	return SprintActive
}

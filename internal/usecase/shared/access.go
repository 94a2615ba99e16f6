// Package shared provides shared utilities for use cases.
package shared

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// NewID returns a new entity ID.
func NewID() string {
	return uuid.NewString()
}

// ValidateID rejects IDs that are not UUIDs.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return nil
}

// ValidateIDs validates every id in order.
func ValidateIDs(ids ...string) error {
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}

// Authorize loads the project and checks that actor holds a role accepted
// by allowed.
func Authorize(tx domain.Tx, projectID, actor string, allowed func(domain.Role) bool) (*domain.Project, error) {
	project, err := tx.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}

	role := project.RoleOf(actor)
	if role == "" {
		return nil, domain.ErrNotProjectMember
	}
	if allowed != nil && !allowed(role) {
		return nil, domain.ErrInsufficientRole
	}
	return project, nil
}

// CanView accepts every project role.
func CanView(domain.Role) bool { return true }

// CanEdit accepts roles that may change tasks and membership.
func CanEdit(r domain.Role) bool { return r.CanEditTasks() }

// CanManage accepts roles that may manage sprints.
func CanManage(r domain.Role) bool { return r.CanManageSprints() }

// IsOwner accepts only the owner.
func IsOwner(r domain.Role) bool { return r == domain.RoleOwner }

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// CreateSprintInput contains the parameters for creating a sprint.
// Fields are ordered to minimize memory padding.
type CreateSprintInput struct {
	StartDate   *time.Time // Optional
	EndDate     *time.Time // Optional
	ProjectID   string     // Project the sprint belongs to (required)
	Name        string     // 3-100 characters (required)
	Description string     // Up to 500 characters
	Actor       string     // Acting user (required)
}

// CreateSprintOutput contains the result of creating a sprint.
type CreateSprintOutput struct {
	Sprint *domain.Sprint
}

// CreateSprint is the use case for creating a sprint.
type CreateSprint struct {
	tx    *Transactor
	gate  domain.FeatureGate
	clock domain.Clock
}

// NewCreateSprint creates a new CreateSprint use case.
func NewCreateSprint(tx *Transactor, gate domain.FeatureGate, clock domain.Clock) *CreateSprint {
	return &CreateSprint{
		tx:    tx,
		gate:  gate,
		clock: clock,
	}
}

// Execute creates a sprint with empty membership.
func (uc *CreateSprint) Execute(ctx context.Context, in CreateSprintInput) (*CreateSprintOutput, error) {
	if err := shared.ValidateID(in.ProjectID); err != nil {
		return nil, err
	}
	fields := domain.SprintFields{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	ok, err := uc.gate.CheckFeatureAccess(ctx, in.ProjectID, domain.FeatureSprints)
	if err != nil {
		return nil, fmt.Errorf("check feature access: %w", err)
	}
	if !ok {
		return nil, domain.ErrFeatureUnavailable
	}

	var sprint *domain.Sprint
	err = uc.tx.Update(ctx, "create_sprint", func(tx domain.Tx, fx *Effects) error {
		if _, err := shared.Authorize(tx, in.ProjectID, in.Actor, shared.CanManage); err != nil {
			return err
		}

		now := uc.clock.Now()
		sprint = &domain.Sprint{
			ID:          shared.NewID(),
			ProjectID:   in.ProjectID,
			Name:        in.Name,
			Description: in.Description,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			TaskIDs:     []string{},
			CreatedBy:   in.Actor,
			Created:     now,
			Updated:     now,
		}
		sprint.Refresh(now)

		if err := tx.SaveSprint(sprint); err != nil {
			return fmt.Errorf("save sprint: %w", err)
		}

		fx.Invalidate(domain.ProjectSprintsPattern(in.ProjectID))
		fx.Publish(domain.EventSprintCreated, domain.SprintPayload{Sprint: sprint.Clone(), Actor: in.Actor},
			domain.ProjectRoom(in.ProjectID))
		fx.Audit(domain.AuditEntry{
			ActorID:    in.Actor,
			Action:     "create",
			EntityKind: "sprint",
			EntityID:   sprint.ID,
			Changes:    map[string]any{"name": sprint.Name},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateSprintOutput{Sprint: sprint}, nil
}

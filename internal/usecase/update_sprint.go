package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// UpdateSprintInput contains the parameters for updating a sprint.
// Nil fields are left unchanged.
// Fields are ordered to minimize memory padding.
type UpdateSprintInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *domain.SprintStatus // Only Cancelled may be set
	ClearStart  bool                 // Remove the start date
	ClearEnd    bool                 // Remove the end date
	SprintID    string               // Sprint to update (required)
	Actor       string               // Acting user (required)
}

func (in UpdateSprintInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.StartDate == nil && in.EndDate == nil &&
		in.Status == nil && !in.ClearStart && !in.ClearEnd
}

// UpdateSprintOutput contains the result of updating a sprint.
type UpdateSprintOutput struct {
	Sprint *domain.Sprint
}

// UpdateSprint is the use case for editing a sprint.
type UpdateSprint struct {
	tx    *Transactor
	clock domain.Clock
}

// NewUpdateSprint creates a new UpdateSprint use case.
func NewUpdateSprint(tx *Transactor, clock domain.Clock) *UpdateSprint {
	return &UpdateSprint{
		tx:    tx,
		clock: clock,
	}
}

// Execute applies the patch, re-derives status and recomputes progress.
func (uc *UpdateSprint) Execute(ctx context.Context, in UpdateSprintInput) (*UpdateSprintOutput, error) {
	if err := shared.ValidateID(in.SprintID); err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if in.Status != nil && *in.Status != domain.SprintCancelled {
		return nil, domain.ErrStatusNotSettable
	}

	var sprint *domain.Sprint
	err := uc.tx.Update(ctx, "update_sprint", func(tx domain.Tx, fx *Effects) error {
		current, err := tx.GetSprint(in.SprintID)
		if err != nil {
			return fmt.Errorf("get sprint: %w", err)
		}
		if current == nil {
			return domain.ErrSprintNotFound
		}
		if _, err := shared.Authorize(tx, current.ProjectID, in.Actor, shared.CanManage); err != nil {
			return err
		}

		applySprintPatch(current, in)
		if err := current.Fields().Validate(); err != nil {
			return err
		}

		now := uc.clock.Now()
		current.UpdatedBy = in.Actor
		current.Updated = now
		current.Refresh(now)
		if err := tx.SaveSprint(current); err != nil {
			return fmt.Errorf("save sprint: %w", err)
		}

		res, err := RecomputeProgress(tx, current.ID, now)
		if err != nil {
			return fmt.Errorf("recompute progress: %w", err)
		}
		sprint = res.Sprint

		fx.Invalidate(domain.SprintKey(sprint.ID), domain.ProjectSprintsPattern(sprint.ProjectID))
		fx.Publish(domain.EventSprintUpdated, domain.SprintPayload{Sprint: sprint.Clone(), Actor: in.Actor},
			domain.SprintRoom(sprint.ID), domain.ProjectRoom(sprint.ProjectID))
		publishProgress(fx, res)
		fx.Audit(domain.AuditEntry{
			ActorID:    in.Actor,
			Action:     "update",
			EntityKind: "sprint",
			EntityID:   sprint.ID,
			Changes:    sprintChanges(in),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &UpdateSprintOutput{Sprint: sprint}, nil
}

func applySprintPatch(s *domain.Sprint, in UpdateSprintInput) {
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Description != nil {
		s.Description = *in.Description
	}
	if in.ClearStart {
		s.StartDate = nil
	}
	if in.StartDate != nil {
		start := *in.StartDate
		s.StartDate = &start
	}
	if in.ClearEnd {
		s.EndDate = nil
	}
	if in.EndDate != nil {
		end := *in.EndDate
		s.EndDate = &end
	}
	if in.Status != nil {
		s.Status = *in.Status
	}
}

func sprintChanges(in UpdateSprintInput) map[string]any {
	changes := make(map[string]any)
	if in.Name != nil {
		changes["name"] = *in.Name
	}
	if in.Description != nil {
		changes["description"] = *in.Description
	}
	if in.StartDate != nil || in.ClearStart {
		changes["startDate"] = in.StartDate
	}
	if in.EndDate != nil || in.ClearEnd {
		changes["endDate"] = in.EndDate
	}
	if in.Status != nil {
		changes["status"] = *in.Status
	}
	return changes
}

package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// RecalculateProgressInput contains the parameters for recalculating progress.
type RecalculateProgressInput struct {
	SprintID string // Sprint to recalculate (required)
	Actor    string // Acting user (required)
}

// RecalculateProgressOutput contains the result of recalculating progress.
type RecalculateProgressOutput struct {
	Sprint   *domain.Sprint
	Previous int
	Progress int
}

// RecalculateProgress is the use case for re-deriving a sprint's progress on demand.
type RecalculateProgress struct {
	tx    *Transactor
	clock domain.Clock
}

// NewRecalculateProgress creates a new RecalculateProgress use case.
func NewRecalculateProgress(tx *Transactor, clock domain.Clock) *RecalculateProgress {
	return &RecalculateProgress{
		tx:    tx,
		clock: clock,
	}
}

// Execute recomputes progress and status. Running it twice writes nothing the second time.
func (uc *RecalculateProgress) Execute(ctx context.Context, in RecalculateProgressInput) (*RecalculateProgressOutput, error) {
	if err := shared.ValidateID(in.SprintID); err != nil {
		return nil, err
	}

	out := &RecalculateProgressOutput{}
	err := uc.tx.Update(ctx, "recalculate_progress", func(tx domain.Tx, fx *Effects) error {
		sprint, err := tx.GetSprint(in.SprintID)
		if err != nil {
			return fmt.Errorf("get sprint: %w", err)
		}
		if sprint == nil {
			return domain.ErrSprintNotFound
		}
		if _, err := shared.Authorize(tx, sprint.ProjectID, in.Actor, shared.CanEdit); err != nil {
			return err
		}

		res, err := RecomputeProgress(tx, sprint.ID, uc.clock.Now())
		if err != nil {
			return fmt.Errorf("recompute progress: %w", err)
		}
		out.Sprint = res.Sprint
		out.Previous = res.Previous
		out.Progress = res.Progress

		if res.Saved {
			fx.Invalidate(domain.SprintKey(sprint.ID), domain.ProjectSprintsPattern(sprint.ProjectID))
		}
		publishProgress(fx, res)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

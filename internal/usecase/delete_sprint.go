package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// DeleteSprintInput contains the parameters for deleting a sprint.
type DeleteSprintInput struct {
	SprintID string // Sprint to delete (required)
	Actor    string // Acting user (required)
}

// DeleteSprintOutput contains the result of deleting a sprint.
type DeleteSprintOutput struct {
	Sprint       *domain.Sprint // The sprint as it was before deletion
	ClearedTasks int            // Member tasks whose sprint reference was cleared
}

// DeleteSprint is the use case for deleting a sprint.
type DeleteSprint struct {
	tx *Transactor
}

// NewDeleteSprint creates a new DeleteSprint use case.
func NewDeleteSprint(tx *Transactor) *DeleteSprint {
	return &DeleteSprint{tx: tx}
}

// Execute clears the sprint reference on its member tasks and deletes it.
func (uc *DeleteSprint) Execute(ctx context.Context, in DeleteSprintInput) (*DeleteSprintOutput, error) {
	if err := shared.ValidateID(in.SprintID); err != nil {
		return nil, err
	}

	out := &DeleteSprintOutput{}
	err := uc.tx.Update(ctx, "delete_sprint", func(tx domain.Tx, fx *Effects) error {
		sprint, err := tx.GetSprint(in.SprintID)
		if err != nil {
			return fmt.Errorf("get sprint: %w", err)
		}
		if sprint == nil {
			return domain.ErrSprintNotFound
		}
		if _, err := shared.Authorize(tx, sprint.ProjectID, in.Actor, shared.CanManage); err != nil {
			return err
		}

		var cleared []string
		n, err := tx.UpdateTasks(domain.TaskFilter{SprintID: sprint.ID}, func(t *domain.Task) {
			t.SprintID = ""
			cleared = append(cleared, t.ID)
		})
		if err != nil {
			return fmt.Errorf("clear member tasks: %w", err)
		}
		if err := tx.DeleteSprint(sprint.ID); err != nil {
			return fmt.Errorf("delete sprint: %w", err)
		}
		out.Sprint = sprint
		out.ClearedTasks = n

		fx.Invalidate(domain.SprintKey(sprint.ID), domain.ProjectSprintsPattern(sprint.ProjectID))
		for _, id := range cleared {
			fx.Invalidate(domain.TaskKey(id))
		}
		fx.Publish(domain.EventSprintDeleted, domain.SprintDeletedPayload{
			SprintID:  sprint.ID,
			ProjectID: sprint.ProjectID,
			Actor:     in.Actor,
		}, domain.ProjectRoom(sprint.ProjectID), domain.SprintRoom(sprint.ID))
		fx.Audit(domain.AuditEntry{
			ActorID:    in.Actor,
			Action:     "delete",
			EntityKind: "sprint",
			EntityID:   sprint.ID,
			Changes:    map[string]any{"clearedTasks": n},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

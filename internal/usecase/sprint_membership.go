package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// SprintTaskInput identifies a task and a sprint for a membership change.
type SprintTaskInput struct {
	SprintID string // Target sprint (required)
	TaskID   string // Task to add or remove (required)
	Actor    string // Acting user (required)
}

// SprintTaskOutput contains the result of a membership change.
type SprintTaskOutput struct {
	Sprint   *domain.Sprint // The target sprint after the change
	Task     *domain.Task   // Nil when removing a task that no longer exists
	Previous *domain.Sprint // Sprint the task was moved out of, if any
}

// AddTaskToSprint is the use case for putting a task into a sprint.
// A task belongs to at most one sprint; adding it moves it.
type AddTaskToSprint struct {
	tx    *Transactor
	clock domain.Clock
}

// NewAddTaskToSprint creates a new AddTaskToSprint use case.
func NewAddTaskToSprint(tx *Transactor, clock domain.Clock) *AddTaskToSprint {
	return &AddTaskToSprint{
		tx:    tx,
		clock: clock,
	}
}

// Execute adds the task to the sprint, removing it from any other sprint first.
func (uc *AddTaskToSprint) Execute(ctx context.Context, in SprintTaskInput) (*SprintTaskOutput, error) {
	if err := shared.ValidateIDs(in.SprintID, in.TaskID); err != nil {
		return nil, err
	}

	out := &SprintTaskOutput{}
	err := uc.tx.Update(ctx, "add_task_to_sprint", func(tx domain.Tx, fx *Effects) error {
		sprint, task, err := loadSprintAndTask(tx, in.SprintID, in.TaskID)
		if err != nil {
			return err
		}
		if _, err := shared.Authorize(tx, sprint.ProjectID, in.Actor, shared.CanEdit); err != nil {
			return err
		}
		if task == nil {
			return domain.ErrTaskNotFound
		}
		if task.ProjectID != sprint.ProjectID {
			// Tasks of projects the actor cannot see do not exist for them.
			if _, err := shared.Authorize(tx, task.ProjectID, in.Actor, shared.CanView); err != nil {
				return domain.ErrTaskNotFound
			}
			return domain.ErrCrossProjectTask
		}

		now := uc.clock.Now()

		if task.SprintID != "" && task.SprintID != sprint.ID {
			prev, err := uc.detach(tx, fx, task, now, in.Actor)
			if err != nil {
				return err
			}
			out.Previous = prev
		}

		if sprint.AddTask(task.ID) {
			sprint.UpdatedBy = in.Actor
			sprint.Updated = now
			if err := tx.SaveSprint(sprint); err != nil {
				return fmt.Errorf("save sprint: %w", err)
			}
		}
		if task.SprintID != sprint.ID {
			task.SprintID = sprint.ID
			task.Updated = now
			if err := tx.SaveTask(task); err != nil {
				return fmt.Errorf("save task: %w", err)
			}
		}

		res, err := RecomputeProgress(tx, sprint.ID, now)
		if err != nil {
			return fmt.Errorf("recompute progress: %w", err)
		}
		out.Sprint = res.Sprint
		out.Task = task

		fx.Invalidate(
			domain.SprintKey(sprint.ID),
			domain.TaskKey(task.ID),
			domain.ProjectSprintsPattern(sprint.ProjectID),
		)
		fx.Publish(domain.EventSprintTaskAdded, domain.MembershipPayload{
			SprintID: sprint.ID,
			TaskID:   task.ID,
			Actor:    in.Actor,
			Progress: res.Progress,
		}, domain.SprintRoom(sprint.ID), domain.ProjectRoom(sprint.ProjectID))
		publishProgress(fx, res)

		if task.AssigneeID != "" && task.AssigneeID != in.Actor {
			sprintID, taskID := sprint.ID, task.ID
			fx.Notify(domain.Notification{
				UserID:  task.AssigneeID,
				Message: fmt.Sprintf("Task %q was added to sprint %q", task.Title, res.Sprint.Name),
				Link:    "/sprints/" + sprintID,
				Metadata: map[string]string{
					"sprintId": sprintID,
					"taskId":   taskID,
				},
			}, func(tx domain.Tx) (bool, error) {
				return stillMember(tx, sprintID, taskID)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// detach removes task from the sprint it currently points to and recomputes
// that sprint. task is modified in place but not saved.
func (uc *AddTaskToSprint) detach(tx domain.Tx, fx *Effects, task *domain.Task, now time.Time, actor string) (*domain.Sprint, error) {
	prevID := task.SprintID
	prev, err := tx.GetSprint(prevID)
	if err != nil {
		return nil, fmt.Errorf("get previous sprint: %w", err)
	}
	task.SprintID = ""
	if prev == nil {
		// Dangling reference; nothing to detach from.
		return nil, nil
	}

	if prev.RemoveTask(task.ID) {
		prev.UpdatedBy = actor
		prev.Updated = now
		if err := tx.SaveSprint(prev); err != nil {
			return nil, fmt.Errorf("save previous sprint: %w", err)
		}
	}
	res, err := RecomputeProgress(tx, prev.ID, now)
	if err != nil {
		return nil, fmt.Errorf("recompute previous sprint: %w", err)
	}

	fx.Invalidate(domain.SprintKey(prev.ID), domain.ProjectSprintsPattern(prev.ProjectID))
	fx.Publish(domain.EventSprintTaskRemoved, domain.MembershipPayload{
		SprintID: prev.ID,
		TaskID:   task.ID,
		Actor:    actor,
		Progress: res.Progress,
	}, domain.SprintRoom(prev.ID))
	publishProgress(fx, res)
	return res.Sprint, nil
}

// RemoveTaskFromSprint is the use case for taking a task out of a sprint.
type RemoveTaskFromSprint struct {
	tx    *Transactor
	clock domain.Clock
}

// NewRemoveTaskFromSprint creates a new RemoveTaskFromSprint use case.
func NewRemoveTaskFromSprint(tx *Transactor, clock domain.Clock) *RemoveTaskFromSprint {
	return &RemoveTaskFromSprint{
		tx:    tx,
		clock: clock,
	}
}

// Execute removes the task from the sprint. Removing a task that is not a
// member, or whose document is already gone, still recomputes progress.
func (uc *RemoveTaskFromSprint) Execute(ctx context.Context, in SprintTaskInput) (*SprintTaskOutput, error) {
	if err := shared.ValidateIDs(in.SprintID, in.TaskID); err != nil {
		return nil, err
	}

	out := &SprintTaskOutput{}
	err := uc.tx.Update(ctx, "remove_task_from_sprint", func(tx domain.Tx, fx *Effects) error {
		sprint, task, err := loadSprintAndTask(tx, in.SprintID, in.TaskID)
		if err != nil {
			return err
		}
		if _, err := shared.Authorize(tx, sprint.ProjectID, in.Actor, shared.CanEdit); err != nil {
			return err
		}

		now := uc.clock.Now()

		if sprint.RemoveTask(in.TaskID) {
			sprint.UpdatedBy = in.Actor
			sprint.Updated = now
			if err := tx.SaveSprint(sprint); err != nil {
				return fmt.Errorf("save sprint: %w", err)
			}
		}
		if task != nil && task.SprintID == sprint.ID {
			task.SprintID = ""
			task.Updated = now
			if err := tx.SaveTask(task); err != nil {
				return fmt.Errorf("save task: %w", err)
			}
		}

		res, err := RecomputeProgress(tx, sprint.ID, now)
		if err != nil {
			return fmt.Errorf("recompute progress: %w", err)
		}
		out.Sprint = res.Sprint
		out.Task = task

		fx.Invalidate(
			domain.SprintKey(sprint.ID),
			domain.TaskKey(in.TaskID),
			domain.ProjectSprintsPattern(sprint.ProjectID),
		)
		fx.Publish(domain.EventSprintTaskRemoved, domain.MembershipPayload{
			SprintID: sprint.ID,
			TaskID:   in.TaskID,
			Actor:    in.Actor,
			Progress: res.Progress,
		}, domain.SprintRoom(sprint.ID), domain.ProjectRoom(sprint.ProjectID))
		publishProgress(fx, res)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// loadSprintAndTask loads both documents. A missing sprint is an error;
// a missing task is returned as nil.
func loadSprintAndTask(tx domain.Tx, sprintID, taskID string) (*domain.Sprint, *domain.Task, error) {
	sprint, err := tx.GetSprint(sprintID)
	if err != nil {
		return nil, nil, fmt.Errorf("get sprint: %w", err)
	}
	if sprint == nil {
		return nil, nil, domain.ErrSprintNotFound
	}
	task, err := tx.GetTask(taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("get task: %w", err)
	}
	return sprint, task, nil
}

// stillMember reports whether the task still exists and belongs to the sprint.
func stillMember(tx domain.Tx, sprintID, taskID string) (bool, error) {
	sprint, err := tx.GetSprint(sprintID)
	if err != nil || sprint == nil {
		return false, err
	}
	task, err := tx.GetTask(taskID)
	if err != nil || task == nil {
		return false, err
	}
	return task.SprintID == sprintID && sprint.HasTask(taskID), nil
}

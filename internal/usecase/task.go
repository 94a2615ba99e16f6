package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// CreateTaskInput contains the parameters for creating a task.
// Fields are ordered to minimize memory padding.
type CreateTaskInput struct {
	ProjectID   string          // Project the task belongs to (required)
	Title       string          // 1-200 characters (required)
	Description string          // Up to 5000 characters
	Status      string          // Must be in the project vocabulary (empty = first entry)
	Priority    domain.Priority // Empty = medium
	AssigneeID  string          // Optional
	Actor       string          // Acting user (required)
}

// CreateTaskOutput contains the result of creating a task.
type CreateTaskOutput struct {
	Task *domain.Task
}

// CreateTask is the use case for creating a task.
type CreateTask struct {
	tx    *Transactor
	clock domain.Clock
}

// NewCreateTask creates a new CreateTask use case.
func NewCreateTask(tx *Transactor, clock domain.Clock) *CreateTask {
	return &CreateTask{
		tx:    tx,
		clock: clock,
	}
}

// Execute creates a task outside of any sprint.
func (uc *CreateTask) Execute(ctx context.Context, in CreateTaskInput) (*CreateTaskOutput, error) {
	if err := shared.ValidateID(in.ProjectID); err != nil {
		return nil, err
	}
	if err := domain.Validate(domain.TaskFields{Title: in.Title, Description: in.Description}); err != nil {
		return nil, err
	}
	priority, err := resolvePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	var task *domain.Task
	err = uc.tx.Update(ctx, "create_task", func(tx domain.Tx, fx *Effects) error {
		project, err := shared.Authorize(tx, in.ProjectID, in.Actor, shared.CanEdit)
		if err != nil {
			return err
		}
		status, err := resolveStatus(project, in.Status)
		if err != nil {
			return err
		}

		now := uc.clock.Now()
		task = &domain.Task{
			ID:          shared.NewID(),
			ProjectID:   in.ProjectID,
			Title:       in.Title,
			Description: in.Description,
			Status:      status,
			Priority:    priority,
			AssigneeID:  in.AssigneeID,
			Created:     now,
			Updated:     now,
		}
		if err := tx.SaveTask(task); err != nil {
			return fmt.Errorf("save task: %w", err)
		}

		fx.Audit(domain.AuditEntry{
			ActorID:    in.Actor,
			Action:     "create",
			EntityKind: "task",
			EntityID:   task.ID,
			Changes:    map[string]any{"title": task.Title},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateTaskOutput{Task: task}, nil
}

// UpdateTaskInput contains the parameters for editing a task.
// Nil fields are left unchanged.
// Fields are ordered to minimize memory padding.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *domain.Priority
	AssigneeID  *string // Empty string unassigns
	TaskID      string  // Task to edit (required)
	Actor       string  // Acting user (required)
}

func (in UpdateTaskInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Status == nil &&
		in.Priority == nil && in.AssigneeID == nil
}

// UpdateTaskOutput contains the result of editing a task.
type UpdateTaskOutput struct {
	Task   *domain.Task
	Sprint *domain.Sprint // The task's sprint after recomputation, if any
}

// UpdateTask is the use case for editing a task.
type UpdateTask struct {
	tx    *Transactor
	clock domain.Clock
}

// NewUpdateTask creates a new UpdateTask use case.
func NewUpdateTask(tx *Transactor, clock domain.Clock) *UpdateTask {
	return &UpdateTask{
		tx:    tx,
		clock: clock,
	}
}

// Execute edits the task. A status change recomputes the task's sprint
// in the same transaction.
func (uc *UpdateTask) Execute(ctx context.Context, in UpdateTaskInput) (*UpdateTaskOutput, error) {
	if err := shared.ValidateID(in.TaskID); err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if in.Priority != nil && !in.Priority.IsValid() {
		return nil, &domain.ValidationError{Field: "priority", Reason: "must be one of [low medium high urgent]"}
	}

	out := &UpdateTaskOutput{}
	err := uc.tx.Update(ctx, "update_task", func(tx domain.Tx, fx *Effects) error {
		task, err := tx.GetTask(in.TaskID)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		if task == nil {
			return domain.ErrTaskNotFound
		}
		project, err := shared.Authorize(tx, task.ProjectID, in.Actor, shared.CanEdit)
		if err != nil {
			return err
		}

		prevStatus, prevAssignee := task.Status, task.AssigneeID
		if in.Title != nil {
			task.Title = *in.Title
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.Status != nil {
			if !project.HasStatus(*in.Status) {
				return fmt.Errorf("%w: %q", domain.ErrUnknownTaskStatus, *in.Status)
			}
			task.Status = *in.Status
		}
		if in.Priority != nil {
			task.Priority = *in.Priority
		}
		if in.AssigneeID != nil {
			task.AssigneeID = *in.AssigneeID
		}
		if err := domain.Validate(domain.TaskFields{Title: task.Title, Description: task.Description}); err != nil {
			return err
		}

		now := uc.clock.Now()
		task.Updated = now
		if err := tx.SaveTask(task); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		out.Task = task
		fx.Invalidate(domain.TaskKey(task.ID))

		if task.InSprint() {
			// The sprint view embeds member tasks.
			fx.Invalidate(domain.SprintKey(task.SprintID))
			if task.Status != prevStatus {
				res, err := RecomputeProgress(tx, task.SprintID, now)
				switch {
				case err == nil:
					out.Sprint = res.Sprint
					if res.Saved {
						fx.Invalidate(domain.ProjectSprintsPattern(task.ProjectID))
					}
					publishProgress(fx, res)
				case errors.Is(err, domain.ErrSprintNotFound):
					// Dangling sprint reference; the task stands on its own.
				default:
					return fmt.Errorf("recompute progress: %w", err)
				}
			}
		}

		if task.AssigneeID != "" && task.AssigneeID != prevAssignee && task.AssigneeID != in.Actor {
			taskID, assignee := task.ID, task.AssigneeID
			fx.Notify(domain.Notification{
				UserID:   assignee,
				Message:  fmt.Sprintf("You were assigned task %q", task.Title),
				Link:     "/tasks/" + taskID,
				Metadata: map[string]string{"taskId": taskID},
			}, func(tx domain.Tx) (bool, error) {
				t, err := tx.GetTask(taskID)
				if err != nil || t == nil {
					return false, err
				}
				return t.AssigneeID == assignee, nil
			})
		}
		fx.Audit(domain.AuditEntry{
			ActorID:    in.Actor,
			Action:     "update",
			EntityKind: "task",
			EntityID:   task.ID,
			Changes:    taskChanges(in),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func taskChanges(in UpdateTaskInput) map[string]any {
	changes := make(map[string]any)
	if in.Title != nil {
		changes["title"] = *in.Title
	}
	if in.Description != nil {
		changes["description"] = *in.Description
	}
	if in.Status != nil {
		changes["status"] = *in.Status
	}
	if in.Priority != nil {
		changes["priority"] = *in.Priority
	}
	if in.AssigneeID != nil {
		changes["assigneeId"] = *in.AssigneeID
	}
	return changes
}

// DeleteTaskInput contains the parameters for deleting a task.
type DeleteTaskInput struct {
	TaskID string
	Actor  string
}

// DeleteTaskOutput contains the result of deleting a task.
type DeleteTaskOutput struct {
	Task   *domain.Task   // The task as it was before deletion
	Sprint *domain.Sprint // The sprint it was removed from, if any
}

// DeleteTask is the use case for deleting a task.
type DeleteTask struct {
	tx    *Transactor
	clock domain.Clock
}

// NewDeleteTask creates a new DeleteTask use case.
func NewDeleteTask(tx *Transactor, clock domain.Clock) *DeleteTask {
	return &DeleteTask{
		tx:    tx,
		clock: clock,
	}
}

// Execute removes the task from its sprint and deletes it.
func (uc *DeleteTask) Execute(ctx context.Context, in DeleteTaskInput) (*DeleteTaskOutput, error) {
	if err := shared.ValidateID(in.TaskID); err != nil {
		return nil, err
	}

	out := &DeleteTaskOutput{}
	err := uc.tx.Update(ctx, "delete_task", func(tx domain.Tx, fx *Effects) error {
		task, err := tx.GetTask(in.TaskID)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		if task == nil {
			return domain.ErrTaskNotFound
		}
		if _, err := shared.Authorize(tx, task.ProjectID, in.Actor, shared.CanEdit); err != nil {
			return err
		}
		out.Task = task

		if err := tx.DeleteTask(task.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		fx.Invalidate(domain.TaskKey(task.ID))

		if !task.InSprint() {
			return nil
		}
		sprint, err := tx.GetSprint(task.SprintID)
		if err != nil {
			return fmt.Errorf("get sprint: %w", err)
		}
		if sprint == nil {
			return nil
		}

		now := uc.clock.Now()
		if sprint.RemoveTask(task.ID) {
			sprint.UpdatedBy = in.Actor
			sprint.Updated = now
			if err := tx.SaveSprint(sprint); err != nil {
				return fmt.Errorf("save sprint: %w", err)
			}
		}
		res, err := RecomputeProgress(tx, sprint.ID, now)
		if err != nil {
			return fmt.Errorf("recompute progress: %w", err)
		}
		out.Sprint = res.Sprint

		fx.Invalidate(domain.SprintKey(sprint.ID), domain.ProjectSprintsPattern(sprint.ProjectID))
		fx.Publish(domain.EventSprintTaskRemoved, domain.MembershipPayload{
			SprintID: sprint.ID,
			TaskID:   task.ID,
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

// ShowTaskInput contains the parameters for showing a task.
type ShowTaskInput struct {
	TaskID string
	Actor  string
}

// ShowTaskOutput contains a task.
type ShowTaskOutput struct {
	Task *domain.Task
}

// ShowTask is the use case for displaying a task.
type ShowTask struct {
	tx    *Transactor
	cache domain.Cache
	ttl   time.Duration
}

// NewShowTask creates a new ShowTask use case.
func NewShowTask(tx *Transactor, cache domain.Cache, ttl time.Duration) *ShowTask {
	return &ShowTask{
		tx:    tx,
		cache: cache,
		ttl:   ttl,
	}
}

// Execute returns the task, served from cache when fresh.
func (uc *ShowTask) Execute(ctx context.Context, in ShowTaskInput) (*ShowTaskOutput, error) {
	if err := shared.ValidateID(in.TaskID); err != nil {
		return nil, err
	}

	v, err := uc.cache.GetOrCompute(ctx, domain.TaskKey(in.TaskID), uc.ttl, func(ctx context.Context) (any, error) {
		var task *domain.Task
		err := uc.tx.View(ctx, func(tx domain.Tx) error {
			var err error
			task, err = tx.GetTask(in.TaskID)
			if err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			if task == nil {
				return domain.ErrTaskNotFound
			}
			return nil
		})
		return task, err
	})
	if err != nil {
		return nil, err
	}
	task := v.(*domain.Task).Clone()

	if err := uc.tx.View(ctx, func(tx domain.Tx) error {
		_, err := shared.Authorize(tx, task.ProjectID, in.Actor, shared.CanView)
		return err
	}); err != nil {
		return nil, err
	}
	return &ShowTaskOutput{Task: task}, nil
}

func resolvePriority(p domain.Priority) (domain.Priority, error) {
	if p == "" {
		return domain.PriorityMedium, nil
	}
	if !p.IsValid() {
		return "", &domain.ValidationError{Field: "priority", Reason: "must be one of [low medium high urgent]"}
	}
	return p, nil
}

func resolveStatus(project *domain.Project, status string) (string, error) {
	if status == "" {
		return project.InitialStatus(), nil
	}
	if !project.HasStatus(status) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownTaskStatus, status)
	}
	return status, nil
}

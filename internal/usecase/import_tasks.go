package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// ImportTasksInput contains the parameters for creating tasks from a file.
type ImportTasksInput struct {
	ProjectID string // Project to create the tasks in (required)
	Content   string // File content (Markdown with frontmatter)
	Actor     string // Acting user (required)
	DryRun    bool   // If true, parse and validate without creating tasks
}

// ImportTasksOutput contains the result of importing tasks.
type ImportTasksOutput struct {
	Tasks   []*domain.Task   // Created tasks (or tasks that would be created in dry-run mode)
	Sprints []*domain.Sprint // Sprints that received tasks, after recomputation
}

// ImportTasks is the use case for creating tasks from a Markdown file.
// All tasks are created in one transaction; one bad block rejects the file.
type ImportTasks struct {
	tx    *Transactor
	clock domain.Clock
}

// NewImportTasks creates a new ImportTasks use case.
func NewImportTasks(tx *Transactor, clock domain.Clock) *ImportTasks {
	return &ImportTasks{
		tx:    tx,
		clock: clock,
	}
}

// Execute creates the tasks and adds them to their referenced sprints.
func (uc *ImportTasks) Execute(ctx context.Context, in ImportTasksInput) (*ImportTasksOutput, error) {
	if err := shared.ValidateID(in.ProjectID); err != nil {
		return nil, err
	}
	drafts, err := domain.ParseTaskDrafts(in.Content)
	if err != nil {
		return nil, err
	}
	for i, d := range drafts {
		if err := domain.Validate(domain.TaskFields{Title: d.Title, Description: d.Description}); err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
	}

	out := &ImportTasksOutput{}
	build := func(tx domain.Tx) (map[string]*domain.Sprint, []string, error) {
		project, err := shared.Authorize(tx, in.ProjectID, in.Actor, shared.CanEdit)
		if err != nil {
			return nil, nil, err
		}
		sprints, err := tx.ListSprints(domain.SprintFilter{ProjectID: in.ProjectID})
		if err != nil {
			return nil, nil, fmt.Errorf("list sprints: %w", err)
		}

		now := uc.clock.Now()
		touched := make(map[string]*domain.Sprint)
		var order []string
		for i, d := range drafts {
			status, err := resolveStatus(project, d.Status)
			if err != nil {
				return nil, nil, fmt.Errorf("task %d: %w", i+1, err)
			}
			priority, err := resolvePriority(d.Priority)
			if err != nil {
				return nil, nil, fmt.Errorf("task %d: %w", i+1, err)
			}

			task := &domain.Task{
				ID:          shared.NewID(),
				ProjectID:   in.ProjectID,
				Title:       d.Title,
				Description: d.Description,
				Status:      status,
				Priority:    priority,
				AssigneeID:  d.Assignee,
				Created:     now,
				Updated:     now,
			}
			if d.SprintRef != "" {
				sprint := resolveSprintRef(sprints, d.SprintRef)
				if sprint == nil {
					return nil, nil, fmt.Errorf("task %d: %w: %q", i+1, domain.ErrInvalidSprintRef, d.SprintRef)
				}
				if _, ok := touched[sprint.ID]; !ok {
					touched[sprint.ID] = sprint
					order = append(order, sprint.ID)
				}
				sprint.AddTask(task.ID)
				task.SprintID = sprint.ID
			}
			out.Tasks = append(out.Tasks, task)
		}
		return touched, order, nil
	}

	if in.DryRun {
		err := uc.tx.View(ctx, func(tx domain.Tx) error {
			_, _, err := build(tx)
			return err
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	err = uc.tx.Update(ctx, "import_tasks", func(tx domain.Tx, fx *Effects) error {
		out.Tasks = nil
		out.Sprints = nil
		touched, order, err := build(tx)
		if err != nil {
			return err
		}

		for _, task := range out.Tasks {
			if err := tx.SaveTask(task); err != nil {
				return fmt.Errorf("save task: %w", err)
			}
		}

		now := uc.clock.Now()
		for _, id := range order {
			sprint := touched[id]
			sprint.UpdatedBy = in.Actor
			sprint.Updated = now
			if err := tx.SaveSprint(sprint); err != nil {
				return fmt.Errorf("save sprint: %w", err)
			}
			res, err := RecomputeProgress(tx, id, now)
			if err != nil {
				return fmt.Errorf("recompute progress: %w", err)
			}
			out.Sprints = append(out.Sprints, res.Sprint)

			fx.Invalidate(domain.SprintKey(id))
			for _, task := range out.Tasks {
				if task.SprintID != id {
					continue
				}
				fx.Publish(domain.EventSprintTaskAdded, domain.MembershipPayload{
					SprintID: id,
					TaskID:   task.ID,
					Actor:    in.Actor,
					Progress: res.Progress,
				}, domain.SprintRoom(id), domain.ProjectRoom(in.ProjectID))
			}
			publishProgress(fx, res)
		}
		if len(order) > 0 {
			fx.Invalidate(domain.ProjectSprintsPattern(in.ProjectID))
		}
		fx.Audit(domain.AuditEntry{
			ActorID:    in.Actor,
			Action:     "import",
			EntityKind: "task",
			EntityID:   in.ProjectID,
			Changes:    map[string]any{"tasks": len(out.Tasks)},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// resolveSprintRef matches a sprint by ID first, then by exact name.
func resolveSprintRef(sprints []*domain.Sprint, ref string) *domain.Sprint {
	for _, s := range sprints {
		if s.ID == ref {
			return s
		}
	}
	for _, s := range sprints {
		if s.Name == ref {
			return s
		}
	}
	return nil
}

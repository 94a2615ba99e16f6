package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// ShowSprintInput contains the parameters for showing a sprint.
type ShowSprintInput struct {
	SprintID string // Sprint to show (required)
	Actor    string // Acting user (required)
}

// ShowSprintOutput contains a sprint and its member tasks in membership order.
type ShowSprintOutput struct {
	Sprint *domain.Sprint
	Tasks  []*domain.Task
}

// ShowSprint is the use case for displaying a sprint.
type ShowSprint struct {
	tx    *Transactor
	cache domain.Cache
	ttl   time.Duration
}

// NewShowSprint creates a new ShowSprint use case.
func NewShowSprint(tx *Transactor, cache domain.Cache, ttl time.Duration) *ShowSprint {
	return &ShowSprint{
		tx:    tx,
		cache: cache,
		ttl:   ttl,
	}
}

// Execute returns the sprint view, served from cache when fresh.
func (uc *ShowSprint) Execute(ctx context.Context, in ShowSprintInput) (*ShowSprintOutput, error) {
	if err := shared.ValidateID(in.SprintID); err != nil {
		return nil, err
	}

	v, err := uc.cache.GetOrCompute(ctx, domain.SprintKey(in.SprintID), uc.ttl, func(ctx context.Context) (any, error) {
		var out *ShowSprintOutput
		err := uc.tx.View(ctx, func(tx domain.Tx) error {
			sprint, err := tx.GetSprint(in.SprintID)
			if err != nil {
				return fmt.Errorf("get sprint: %w", err)
			}
			if sprint == nil {
				return domain.ErrSprintNotFound
			}
			tasks, err := memberTasks(tx, sprint)
			if err != nil {
				return err
			}
			out = &ShowSprintOutput{Sprint: sprint, Tasks: tasks}
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	cached := v.(*ShowSprintOutput)

	if err := uc.tx.View(ctx, func(tx domain.Tx) error {
		_, err := shared.Authorize(tx, cached.Sprint.ProjectID, in.Actor, shared.CanView)
		return err
	}); err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, len(cached.Tasks))
	for i, t := range cached.Tasks {
		tasks[i] = t.Clone()
	}
	return &ShowSprintOutput{Sprint: cached.Sprint.Clone(), Tasks: tasks}, nil
}

// memberTasks returns the sprint's tasks ordered as in TaskIDs.
func memberTasks(tx domain.Tx, sprint *domain.Sprint) ([]*domain.Task, error) {
	if len(sprint.TaskIDs) == 0 {
		return []*domain.Task{}, nil
	}
	tasks, err := tx.ListTasks(domain.TaskFilter{IDs: sprint.TaskIDs})
	if err != nil {
		return nil, fmt.Errorf("list member tasks: %w", err)
	}
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	ordered := make([]*domain.Task, 0, len(tasks))
	for _, id := range sprint.TaskIDs {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

package usecase

import (
	"fmt"
	"slices"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/metrics"
)

// ProgressResult is the outcome of one progress recomputation.
type ProgressResult struct {
	Sprint   *domain.Sprint
	Previous int
	Progress int
	Saved    bool // The sprint document was rewritten
}

// Changed reports whether the progress value moved.
func (r *ProgressResult) Changed() bool {
	return r.Previous != r.Progress
}

// RecomputeProgress re-derives progress and lifecycle status of a sprint
// inside tx. Member IDs whose task no longer exists are dropped. The sprint
// is saved only when something changed, so a second call is a no-op.
func RecomputeProgress(tx domain.Tx, sprintID string, now time.Time) (*ProgressResult, error) {
	sprint, err := tx.GetSprint(sprintID)
	if err != nil {
		return nil, fmt.Errorf("get sprint: %w", err)
	}
	if sprint == nil {
		return nil, domain.ErrSprintNotFound
	}

	res := &ProgressResult{Previous: sprint.Progress}
	prevStatus := sprint.Status
	prevIDs := slices.Clone(sprint.TaskIDs)

	sprint.Refresh(now)

	progress := 0
	if len(sprint.TaskIDs) > 0 {
		project, err := tx.GetProject(sprint.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if project == nil {
			return nil, domain.ErrProjectNotFound
		}

		tasks, err := tx.ListTasks(domain.TaskFilter{IDs: sprint.TaskIDs})
		if err != nil {
			return nil, fmt.Errorf("list member tasks: %w", err)
		}
		existing := make(map[string]bool, len(tasks))
		for _, t := range tasks {
			existing[t.ID] = true
		}
		sprint.TaskIDs = slices.DeleteFunc(sprint.TaskIDs, func(id string) bool {
			return !existing[id]
		})

		progress = domain.ComputeProgress(domain.CountDone(project, tasks), len(sprint.TaskIDs))
	}
	sprint.Progress = progress
	res.Progress = progress

	if progress != res.Previous || sprint.Status != prevStatus || !slices.Equal(sprint.TaskIDs, prevIDs) {
		sprint.Updated = now
		if err := tx.SaveSprint(sprint); err != nil {
			return nil, fmt.Errorf("save sprint: %w", err)
		}
		res.Saved = true
	}
	metrics.RecordRecompute(res.Changed())

	res.Sprint = sprint
	return res, nil
}

// publishProgress schedules a progress event when the value moved.
func publishProgress(fx *Effects, res *ProgressResult) {
	if !res.Changed() {
		return
	}
	fx.Publish(domain.EventSprintProgressUpdated, domain.ProgressPayload{
		SprintID:  res.Sprint.ID,
		ProjectID: res.Sprint.ProjectID,
		Previous:  res.Previous,
		Progress:  res.Progress,
	}, domain.SprintRoom(res.Sprint.ID), domain.ProjectRoom(res.Sprint.ProjectID))
}

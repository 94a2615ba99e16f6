package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/sprintcrew/internal/domain"
)

func recompute(t *testing.T, f *fixture, sprintID string, now time.Time) *ProgressResult {
	t.Helper()
	var res *ProgressResult
	require.NoError(t, f.store.Update(context.Background(), func(tx domain.Tx) error {
		var err error
		res, err = RecomputeProgress(tx, sprintID, now)
		return err
	}))
	return res
}

func TestRecomputeProgress_EmptySprint(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sprint(t, p.ID, "Sprint 1")

	res := recompute(t, f, s.ID, fixtureNow)

	assert.Equal(t, 0, res.Progress)
	assert.False(t, res.Changed())
	assert.False(t, res.Saved)
}

func TestRecomputeProgress_CountsDoneTasks(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sprint(t, p.ID, "Sprint 1")
	for _, status := range []string{"Done", "Doing", "Testing"} {
		f.add(t, s.ID, f.task(t, p.ID, "task "+status, status).ID)
	}

	// Force a stale value so the engine has something to fix.
	require.NoError(t, f.store.Update(context.Background(), func(tx domain.Tx) error {
		sprint, err := tx.GetSprint(s.ID)
		if err != nil {
			return err
		}
		sprint.Progress = 90
		return tx.SaveSprint(sprint)
	}))

	res := recompute(t, f, s.ID, fixtureNow)
	assert.Equal(t, 90, res.Previous)
	assert.Equal(t, 33, res.Progress)
	assert.True(t, res.Saved)
	assert.Equal(t, 33, f.loadSprint(t, s.ID).Progress)
}

func TestRecomputeProgress_Idempotent(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sprint(t, p.ID, "Sprint 1")
	f.add(t, s.ID, f.task(t, p.ID, "one", "Done").ID)
	f.add(t, s.ID, f.task(t, p.ID, "two", "ToDo").ID)

	first := recompute(t, f, s.ID, fixtureNow)
	before := f.loadSprint(t, s.ID)
	second := recompute(t, f, s.ID, fixtureNow.Add(time.Minute))
	after := f.loadSprint(t, s.ID)

	assert.Equal(t, 50, first.Progress)
	assert.Equal(t, first.Progress, second.Progress)
	assert.False(t, second.Saved, "second run writes nothing")
	assert.Equal(t, before, after)
}

func TestRecomputeProgress_DropsMissingTasks(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sprint(t, p.ID, "Sprint 1")
	done := f.task(t, p.ID, "done", "Done")
	gone := f.task(t, p.ID, "gone", "ToDo")
	f.add(t, s.ID, done.ID)
	f.add(t, s.ID, gone.ID)
	require.Equal(t, 50, f.loadSprint(t, s.ID).Progress)

	require.NoError(t, f.store.Update(context.Background(), func(tx domain.Tx) error {
		return tx.DeleteTask(gone.ID)
	}))

	res := recompute(t, f, s.ID, fixtureNow)
	assert.Equal(t, 100, res.Progress)
	assert.Equal(t, []string{done.ID}, res.Sprint.TaskIDs)
	assert.Equal(t, []string{done.ID}, f.loadSprint(t, s.ID).TaskIDs)
}

func TestRecomputeProgress_CustomTerminalStatus(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Open", "Done", "Completed")
	require.Equal(t, "Completed", p.DoneStatus)
	s := f.sprint(t, p.ID, "Sprint 1")
	f.add(t, s.ID, f.task(t, p.ID, "finished", "Completed").ID)
	f.add(t, s.ID, f.task(t, p.ID, "named done", "Done").ID)

	res := recompute(t, f, s.ID, fixtureNow)
	assert.Equal(t, 50, res.Progress, "a status named Done is not terminal in this project")
}

func TestRecomputeProgress_DerivesStatus(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	start := fixtureNow.Add(24 * time.Hour)
	end := start.Add(7 * 24 * time.Hour)
	out, err := NewCreateSprint(f.tx, f.gate, f.clock).Execute(context.Background(), CreateSprintInput{
		ProjectID: p.ID,
		Name:      "Dated",
		StartDate: &start,
		EndDate:   &end,
		Actor:     owner,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SprintPlanning, out.Sprint.Status)

	res := recompute(t, f, out.Sprint.ID, start.Add(time.Hour))
	assert.Equal(t, domain.SprintActive, res.Sprint.Status)
	assert.True(t, res.Saved, "a status change is persisted even when progress is unchanged")

	res = recompute(t, f, out.Sprint.ID, end.Add(time.Hour))
	assert.Equal(t, domain.SprintCompleted, res.Sprint.Status)
}

func TestRecomputeProgress_SprintNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.store.Update(context.Background(), func(tx domain.Tx) error {
		_, err := RecomputeProgress(tx, "4b1f2b1e-1f5c-4c9b-9d59-8a2f4f0f7a11", fixtureNow)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrSprintNotFound)
}

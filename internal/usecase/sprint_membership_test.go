package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/testutil"
)

func TestSprintProgress_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.project(t)
	assert.Equal(t, []string{"ToDo", "Doing", "Testing", "Done"}, p.Statuses)
	s1 := f.sprint(t, p.ID, "S1")
	t1 := f.task(t, p.ID, "T1", "ToDo")

	out := f.add(t, s1.ID, t1.ID)
	assert.Equal(t, 0, out.Sprint.Progress)

	f.setStatus(t, t1.ID, "Done")

	rec, err := NewRecalculateProgress(f.tx, f.clock).Execute(ctx, RecalculateProgressInput{
		SprintID: s1.ID,
		Actor:    member,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Progress)
	assert.Equal(t, 100, f.loadSprint(t, s1.ID).Progress)
}

func TestAddTaskToSprint_MovesBetweenSprints(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s1 := f.sprint(t, p.ID, "S1")
	s2 := f.sprint(t, p.ID, "S2")
	t1 := f.task(t, p.ID, "T1", "Done")

	f.add(t, s1.ID, t1.ID)
	require.Equal(t, 100, f.loadSprint(t, s1.ID).Progress)
	f.reset()

	out := f.add(t, s2.ID, t1.ID)

	require.NotNil(t, out.Previous)
	assert.Equal(t, s1.ID, out.Previous.ID)

	got1 := f.loadSprint(t, s1.ID)
	got2 := f.loadSprint(t, s2.ID)
	assert.Empty(t, got1.TaskIDs)
	assert.Equal(t, 0, got1.Progress)
	assert.Equal(t, []string{t1.ID}, got2.TaskIDs)
	assert.Equal(t, 100, got2.Progress)
	assert.Equal(t, s2.ID, f.loadTask(t, t1.ID).SprintID)

	assert.Equal(t, []string{domain.EventSprintTaskRemoved, domain.EventSprintProgressUpdated},
		f.hub.InRoom(domain.SprintRoom(s1.ID)))
	assert.Equal(t, []string{domain.EventSprintTaskAdded, domain.EventSprintProgressUpdated},
		f.hub.InRoom(domain.SprintRoom(s2.ID)))
}

func TestAddTaskToSprint_AddTwiceKeepsOneEntry(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sprint(t, p.ID, "S1")
	task := f.task(t, p.ID, "T1", "ToDo")

	f.add(t, s.ID, task.ID)
	f.add(t, s.ID, task.ID)

	assert.Equal(t, []string{task.ID}, f.loadSprint(t, s.ID).TaskIDs)
}

func TestAddTaskToSprint_Errors(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	other := f.project(t)
	s := f.sprint(t, p.ID, "S1")
	task := f.task(t, p.ID, "T1", "ToDo")
	foreign := f.task(t, other.ID, "Foreign", "ToDo")
	missing := "9a3c0c4e-5f3d-4e42-8f65-0c9d7a1b2c3d"

	private, err := NewCreateProject(f.tx, f.clock).Execute(context.Background(), CreateProjectInput{Name: "Private", Actor: stranger})
	require.NoError(t, err)
	hiddenOut, err := NewCreateTask(f.tx, f.clock).Execute(context.Background(), CreateTaskInput{
		ProjectID: private.Project.ID,
		Title:     "Hidden",
		Actor:     stranger,
	})
	require.NoError(t, err)
	hidden := hiddenOut.Task

	tests := []struct {
		wantErr error
		name    string
		in      SprintTaskInput
	}{
		{name: "malformed sprint id", in: SprintTaskInput{SprintID: "42", TaskID: task.ID, Actor: member}, wantErr: domain.ErrInvalidID},
		{name: "sprint not found", in: SprintTaskInput{SprintID: missing, TaskID: task.ID, Actor: member}, wantErr: domain.ErrSprintNotFound},
		{name: "task not found", in: SprintTaskInput{SprintID: s.ID, TaskID: missing, Actor: member}, wantErr: domain.ErrTaskNotFound},
		{name: "task from another project", in: SprintTaskInput{SprintID: s.ID, TaskID: foreign.ID, Actor: owner}, wantErr: domain.ErrCrossProjectTask},
		{name: "viewer", in: SprintTaskInput{SprintID: s.ID, TaskID: task.ID, Actor: viewer}, wantErr: domain.ErrInsufficientRole},
		{name: "not a member", in: SprintTaskInput{SprintID: s.ID, TaskID: task.ID, Actor: stranger}, wantErr: domain.ErrNotProjectMember},
		{name: "not a member, foreign task", in: SprintTaskInput{SprintID: s.ID, TaskID: foreign.ID, Actor: stranger}, wantErr: domain.ErrNotProjectMember},
		{name: "not a member, missing task", in: SprintTaskInput{SprintID: s.ID, TaskID: missing, Actor: stranger}, wantErr: domain.ErrNotProjectMember},
		{name: "viewer, foreign task", in: SprintTaskInput{SprintID: s.ID, TaskID: foreign.ID, Actor: viewer}, wantErr: domain.ErrInsufficientRole},
		{name: "task of an unseen project", in: SprintTaskInput{SprintID: s.ID, TaskID: hidden.ID, Actor: member}, wantErr: domain.ErrTaskNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAddTaskToSprint(f.tx, f.clock).Execute(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, f.loadSprint(t, s.ID).TaskIDs)
	assert.Empty(t, f.loadTask(t, task.ID).SprintID)
}

func TestAddTaskToSprint_RollbackOnFailure(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s1 := f.sprint(t, p.ID, "S1")
	s2 := f.sprint(t, p.ID, "S2")
	task := f.task(t, p.ID, "T1", "Done")
	f.add(t, s1.ID, task.ID)
	f.reset()

	faulty := &testutil.FaultyStore{Store: f.store, FailSaveTask: true}
	pc := &testutil.PassthroughCache{}
	tx := NewTransactor(faulty, pc, f.hub, f.queue, f.audit, f.notifier, nil)

	_, err := NewAddTaskToSprint(tx, f.clock).Execute(context.Background(), SprintTaskInput{
		SprintID: s2.ID,
		TaskID:   task.ID,
		Actor:    member,
	})
	require.ErrorIs(t, err, testutil.ErrInjected)

	// The previous sprint was rewritten inside the transaction before the failure.
	assert.Equal(t, []string{task.ID}, f.loadSprint(t, s1.ID).TaskIDs)
	assert.Equal(t, 100, f.loadSprint(t, s1.ID).Progress)
	assert.Empty(t, f.loadSprint(t, s2.ID).TaskIDs)
	assert.Equal(t, s1.ID, f.loadTask(t, task.ID).SprintID)

	assert.Empty(t, pc.Invalidated)
	assert.Empty(t, f.hub.Events())
	assert.Empty(t, f.queue.Names)
}

func TestAddTaskToSprint_NotifiesAssignee(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sprint(t, p.ID, "S1")
	task := f.task(t, p.ID, "T1", "ToDo")
	assignee := manager
	_, err := NewUpdateTask(f.tx, f.clock).Execute(context.Background(), UpdateTaskInput{
		TaskID:     task.ID,
		AssigneeID: &assignee,
		Actor:      member,
	})
	require.NoError(t, err)
	f.reset()

	f.add(t, s.ID, task.ID)

	require.Len(t, f.notifier.Sent, 1)
	assert.Equal(t, manager, f.notifier.Sent[0].UserID)
	assert.Equal(t, s.ID, f.notifier.Sent[0].Metadata["sprintId"])
}

// deferredQueue holds jobs until Run is called.
type deferredQueue struct {
	jobs []domain.Job
}

func (q *deferredQueue) Submit(_ string, job domain.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *deferredQueue) Run() {
	for _, job := range q.jobs {
		_ = job(context.Background())
	}
	q.jobs = nil
}

func TestAddTaskToSprint_NotificationRechecksMembership(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s1 := f.sprint(t, p.ID, "S1")
	s2 := f.sprint(t, p.ID, "S2")
	task := f.task(t, p.ID, "T1", "ToDo")
	assignee := manager
	_, err := NewUpdateTask(f.tx, f.clock).Execute(context.Background(), UpdateTaskInput{
		TaskID:     task.ID,
		AssigneeID: &assignee,
		Actor:      member,
	})
	require.NoError(t, err)
	f.notifier.Sent = nil

	q := &deferredQueue{}
	f.tx.queue = q

	f.add(t, s1.ID, task.ID)
	f.add(t, s2.ID, task.ID)
	q.Run()

	require.Len(t, f.notifier.Sent, 1, "the first notification is stale by the time it runs")
	assert.Equal(t, s2.ID, f.notifier.Sent[0].Metadata["sprintId"])
}

func TestAddTaskToSprint_ConcurrentAddsKeepExclusiveMembership(t *testing.T) {
	stores := []struct {
		name       string
		newFixture func(t *testing.T) *fixture
	}{
		{"jsonstore", newFixture},
		{"sqlitestore", newSQLiteFixture},
	}

	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			f := st.newFixture(t)
			p := f.project(t)
			s1 := f.sprint(t, p.ID, "S1")
			s2 := f.sprint(t, p.ID, "S2")
			task := f.task(t, p.ID, "T1", "ToDo")

			var wg sync.WaitGroup
			for i := range 10 {
				target := s1.ID
				if i%2 == 1 {
					target = s2.ID
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := NewAddTaskToSprint(f.tx, f.clock).Execute(context.Background(), SprintTaskInput{
						SprintID: target,
						TaskID:   task.ID,
						Actor:    member,
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got := f.loadTask(t, task.ID)
			sp1 := f.loadSprint(t, s1.ID)
			sp2 := f.loadSprint(t, s2.ID)
			in1, in2 := sp1.HasTask(task.ID), sp2.HasTask(task.ID)
			assert.True(t, in1 != in2, "task is in exactly one sprint")
			if in1 {
				assert.Equal(t, s1.ID, got.SprintID)
				assert.Empty(t, sp2.TaskIDs)
			} else {
				assert.Equal(t, s2.ID, got.SprintID)
				assert.Empty(t, sp1.TaskIDs)
			}
		})
	}
}

func TestRemoveTaskFromSprint(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sprint(t, p.ID, "S1")
	done := f.task(t, p.ID, "done", "Done")
	todo := f.task(t, p.ID, "todo", "ToDo")
	f.add(t, s.ID, done.ID)
	f.add(t, s.ID, todo.ID)
	require.Equal(t, 50, f.loadSprint(t, s.ID).Progress)
	f.reset()

	out, err := NewRemoveTaskFromSprint(f.tx, f.clock).Execute(context.Background(), SprintTaskInput{
		SprintID: s.ID,
		TaskID:   todo.ID,
		Actor:    member,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, out.Sprint.Progress)
	assert.Equal(t, []string{done.ID}, f.loadSprint(t, s.ID).TaskIDs)
	assert.Empty(t, f.loadTask(t, todo.ID).SprintID)
	assert.Equal(t, []string{domain.EventSprintTaskRemoved, domain.EventSprintProgressUpdated},
		f.hub.InRoom(domain.ProjectRoom(p.ID)))
}

func TestRemoveTaskFromSprint_NotAMemberIsNoop(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s1 := f.sprint(t, p.ID, "S1")
	s2 := f.sprint(t, p.ID, "S2")
	task := f.task(t, p.ID, "T1", "ToDo")
	f.add(t, s2.ID, task.ID)

	_, err := NewRemoveTaskFromSprint(f.tx, f.clock).Execute(context.Background(), SprintTaskInput{
		SprintID: s1.ID,
		TaskID:   task.ID,
		Actor:    member,
	})
	require.NoError(t, err)

	assert.Equal(t, s2.ID, f.loadTask(t, task.ID).SprintID, "a reference to another sprint is left alone")
	assert.Equal(t, []string{task.ID}, f.loadSprint(t, s2.ID).TaskIDs)
}

func TestRemoveTaskFromSprint_ToleratesDeletedTask(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sprint(t, p.ID, "S1")
	task := f.task(t, p.ID, "T1", "Done")
	f.add(t, s.ID, task.ID)

	require.NoError(t, f.store.Update(context.Background(), func(tx domain.Tx) error {
		return tx.DeleteTask(task.ID)
	}))

	out, err := NewRemoveTaskFromSprint(f.tx, f.clock).Execute(context.Background(), SprintTaskInput{
		SprintID: s.ID,
		TaskID:   task.ID,
		Actor:    member,
	})
	require.NoError(t, err)
	assert.Nil(t, out.Task)
	assert.Empty(t, out.Sprint.TaskIDs)
	assert.Equal(t, 0, out.Sprint.Progress)
}

func TestMembership_InvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	s := f.sprint(t, p.ID, "S1")
	task := f.task(t, p.ID, "T1", "Done")

	show := NewShowSprint(f.tx, f.cache, time.Minute)
	before, err := show.Execute(ctx, ShowSprintInput{SprintID: s.ID, Actor: viewer})
	require.NoError(t, err)
	assert.Empty(t, before.Tasks)

	f.add(t, s.ID, task.ID)

	after, err := show.Execute(ctx, ShowSprintInput{SprintID: s.ID, Actor: viewer})
	require.NoError(t, err)
	require.Len(t, after.Tasks, 1)
	assert.Equal(t, task.ID, after.Tasks[0].ID)
	assert.Equal(t, 100, after.Sprint.Progress)
}

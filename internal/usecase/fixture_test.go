package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/cache"
	"github.com/runoshun/sprintcrew/internal/infra/jsonstore"
	"github.com/runoshun/sprintcrew/internal/infra/sqlitestore"
	"github.com/runoshun/sprintcrew/internal/testutil"
)

// Users of the fixture project.
const (
	owner    = "alice"
	manager  = "bob"
	member   = "carol"
	viewer   = "dave"
	stranger = "mallory"
)

var fixtureNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    domain.Store
	cache    *cache.Cache
	hub      *testutil.MockBroadcaster
	queue    *testutil.InlineQueue
	audit    *testutil.MockAuditLogger
	notifier *testutil.MockNotifier
	gate     *testutil.MockFeatureGate
	clock    *testutil.MockClock
	tx       *Transactor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := jsonstore.New(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, store.Initialize())
	return newFixtureWithStore(t, store)
}

func newSQLiteFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlitestore.New(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Initialize())
	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store domain.Store) *fixture {
	t.Helper()
	c := cache.New(domain.CacheConfig{TTL: time.Minute, SingleFlight: true}, nil)
	t.Cleanup(c.Close)

	f := &fixture{
		store:    store,
		cache:    c,
		hub:      &testutil.MockBroadcaster{},
		queue:    &testutil.InlineQueue{},
		audit:    &testutil.MockAuditLogger{},
		notifier: &testutil.MockNotifier{},
		gate:     &testutil.MockFeatureGate{Default: true},
		clock:    &testutil.MockClock{NowTime: fixtureNow},
	}
	f.tx = NewTransactor(store, c, f.hub, f.queue, f.audit, f.notifier, nil)
	return f
}

// project creates a project owned by alice with bob, carol and dave as
// manager, member and viewer.
func (f *fixture) project(t *testing.T, statuses ...string) *domain.Project {
	t.Helper()
	out, err := NewCreateProject(f.tx, f.clock).Execute(context.Background(), CreateProjectInput{
		Name:     "Checkout",
		Statuses: statuses,
		Actor:    owner,
		Members: []domain.ProjectMember{
			{UserID: manager, Role: domain.RoleManager},
			{UserID: member, Role: domain.RoleMember},
			{UserID: viewer, Role: domain.RoleViewer},
		},
	})
	require.NoError(t, err)
	return out.Project
}

func (f *fixture) sprint(t *testing.T, projectID, name string) *domain.Sprint {
	t.Helper()
	out, err := NewCreateSprint(f.tx, f.gate, f.clock).Execute(context.Background(), CreateSprintInput{
		ProjectID: projectID,
		Name:      name,
		Actor:     owner,
	})
	require.NoError(t, err)
	return out.Sprint
}

func (f *fixture) task(t *testing.T, projectID, title, status string) *domain.Task {
	t.Helper()
	out, err := NewCreateTask(f.tx, f.clock).Execute(context.Background(), CreateTaskInput{
		ProjectID: projectID,
		Title:     title,
		Status:    status,
		Actor:     member,
	})
	require.NoError(t, err)
	return out.Task
}

func (f *fixture) add(t *testing.T, sprintID, taskID string) *SprintTaskOutput {
	t.Helper()
	out, err := NewAddTaskToSprint(f.tx, f.clock).Execute(context.Background(), SprintTaskInput{
		SprintID: sprintID,
		TaskID:   taskID,
		Actor:    member,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) setStatus(t *testing.T, taskID, status string) {
	t.Helper()
	_, err := NewUpdateTask(f.tx, f.clock).Execute(context.Background(), UpdateTaskInput{
		TaskID: taskID,
		Status: &status,
		Actor:  member,
	})
	require.NoError(t, err)
}

// loadSprint reads the persisted sprint, bypassing the cache.
func (f *fixture) loadSprint(t *testing.T, id string) *domain.Sprint {
	t.Helper()
	var s *domain.Sprint
	require.NoError(t, f.store.View(context.Background(), func(tx domain.Tx) error {
		var err error
		s, err = tx.GetSprint(id)
		return err
	}))
	return s
}

// loadTask reads the persisted task, bypassing the cache.
func (f *fixture) loadTask(t *testing.T, id string) *domain.Task {
	t.Helper()
	var task *domain.Task
	require.NoError(t, f.store.View(context.Background(), func(tx domain.Tx) error {
		var err error
		task, err = tx.GetTask(id)
		return err
	}))
	return task
}

// reset forgets recorded side effects.
func (f *fixture) reset() {
	f.hub.Reset()
	f.queue = &testutil.InlineQueue{}
	f.tx.queue = f.queue
	f.audit.Entries = nil
	f.notifier.Sent = nil
}

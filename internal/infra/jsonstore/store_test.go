package jsonstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "store.json"))
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return store
}

func TestStore_Initialize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "store.json")

	store := New(path)
	if store.IsInitialized() {
		t.Fatal("IsInitialized() = true before Initialize")
	}

	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}

	// Initialize again should be idempotent
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() second call error = %v", err)
	}
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "store.json"))

	err := store.View(context.Background(), func(domain.Tx) error { return nil })
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("View() error = %v, want ErrNotInitialized", err)
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	sprint := &domain.Sprint{
		ID:        "s1",
		ProjectID: "p1",
		Name:      "Sprint 1",
		Status:    domain.SprintPlanning,
		TaskIDs:   []string{"t1"},
		Progress:  50,
		Created:   now,
		Updated:   now,
	}

	err := store.Update(ctx, func(tx domain.Tx) error {
		return tx.SaveSprint(sprint)
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	var got *domain.Sprint
	err = store.View(ctx, func(tx domain.Tx) error {
		var err error
		got, err = tx.GetSprint("s1")
		return err
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetSprint() returned nil")
	}
	if got.Name != sprint.Name || got.Progress != 50 || !got.Created.Equal(now) {
		t.Errorf("GetSprint() = %+v, want %+v", got, sprint)
	}
	if len(got.TaskIDs) != 1 || got.TaskIDs[0] != "t1" {
		t.Errorf("TaskIDs = %v, want [t1]", got.TaskIDs)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.View(context.Background(), func(tx domain.Tx) error {
		s, err := tx.GetSprint("nope")
		if err != nil {
			return err
		}
		if s != nil {
			t.Errorf("GetSprint() = %+v, want nil", s)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(tx domain.Tx) error {
		if err := tx.SaveTask(&domain.Task{ID: "t1", ProjectID: "p1", Title: "A"}); err != nil {
			return err
		}
		task, err := tx.GetTask("t1")
		if err != nil {
			return err
		}
		task.Title = "mutated without save"
		again, err := tx.GetTask("t1")
		if err != nil {
			return err
		}
		if again.Title != "A" {
			t.Errorf("Title = %q, want %q", again.Title, "A")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := store.Update(ctx, func(tx domain.Tx) error {
		if err := tx.SaveTask(&domain.Task{ID: "t1", ProjectID: "p1"}); err != nil {
			return err
		}
		if err := tx.SaveSprint(&domain.Sprint{ID: "s1", ProjectID: "p1"}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Update() error = %v, want %v", err, errBoom)
	}

	_ = store.View(ctx, func(tx domain.Tx) error {
		task, _ := tx.GetTask("t1")
		sprint, _ := tx.GetSprint("s1")
		if task != nil || sprint != nil {
			t.Errorf("writes leaked after rollback: task=%v sprint=%v", task, sprint)
		}
		return nil
	})
}

func TestStore_UpdateRollsBackOnCancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := store.Update(ctx, func(tx domain.Tx) error {
		if err := tx.SaveTask(&domain.Task{ID: "t1", ProjectID: "p1"}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Update() error = %v, want context.Canceled", err)
	}

	_ = store.View(context.Background(), func(tx domain.Tx) error {
		if task, _ := tx.GetTask("t1"); task != nil {
			t.Errorf("task persisted after cancellation: %+v", task)
		}
		return nil
	})
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	store := newTestStore(t)

	err := store.View(context.Background(), func(tx domain.Tx) error {
		return tx.SaveTask(&domain.Task{ID: "t1"})
	})
	if !errors.Is(err, domain.ErrReadOnly) {
		t.Errorf("View() error = %v, want ErrReadOnly", err)
	}
}

func TestStore_ListSprintsFilterAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.Update(ctx, func(tx domain.Tx) error {
		sprints := []*domain.Sprint{
			{ID: "b", ProjectID: "p1", Name: "Beta", Status: domain.SprintActive, Created: base.Add(2 * time.Hour)},
			{ID: "a", ProjectID: "p1", Name: "Alpha", Status: domain.SprintPlanning, Created: base.Add(time.Hour)},
			{ID: "c", ProjectID: "p2", Name: "Gamma", Status: domain.SprintPlanning, Created: base},
		}
		for _, s := range sprints {
			if err := tx.SaveSprint(s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tests := []struct {
		name   string
		filter domain.SprintFilter
		want   []string
	}{
		{"all", domain.SprintFilter{}, []string{"c", "a", "b"}},
		{"by project", domain.SprintFilter{ProjectID: "p1"}, []string{"a", "b"}},
		{"by status", domain.SprintFilter{ProjectID: "p1", Status: domain.SprintActive}, []string{"b"}},
		{"search ignores case", domain.SprintFilter{Search: "ALP"}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []*domain.Sprint
			_ = store.View(ctx, func(tx domain.Tx) error {
				var err error
				got, err = tx.ListSprints(tt.filter)
				return err
			})
			if len(got) != len(tt.want) {
				t.Fatalf("ListSprints() len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("ListSprints()[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStore_BulkTaskOperations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(tx domain.Tx) error {
		for _, task := range []*domain.Task{
			{ID: "t1", ProjectID: "p1", SprintID: "s1"},
			{ID: "t2", ProjectID: "p1", SprintID: "s1"},
			{ID: "t3", ProjectID: "p1"},
		} {
			if err := tx.SaveTask(task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	err = store.Update(ctx, func(tx domain.Tx) error {
		n, err := tx.UpdateTasks(domain.TaskFilter{SprintID: "s1"}, func(task *domain.Task) {
			task.SprintID = ""
		})
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("UpdateTasks() = %d, want 2", n)
		}
		n, err = tx.DeleteTasks(domain.TaskFilter{ProjectID: "p1", IDs: []string{"t3"}})
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("DeleteTasks() = %d, want 1", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	_ = store.View(ctx, func(tx domain.Tx) error {
		tasks, _ := tx.ListTasks(domain.TaskFilter{ProjectID: "p1"})
		if len(tasks) != 2 {
			t.Fatalf("ListTasks() len = %d, want 2", len(tasks))
		}
		for _, task := range tasks {
			if task.SprintID != "" {
				t.Errorf("task %s SprintID = %q, want empty", task.ID, task.SprintID)
			}
		}
		return nil
	})
}

func TestStore_ConcurrentUpdatesSerialize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Update(ctx, func(tx domain.Tx) error {
		return tx.SaveSprint(&domain.Sprint{ID: "s1", ProjectID: "p1"})
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, func(tx domain.Tx) error {
				s, err := tx.GetSprint("s1")
				if err != nil {
					return err
				}
				s.Progress++
				return tx.SaveSprint(s)
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	_ = store.View(ctx, func(tx domain.Tx) error {
		s, _ := tx.GetSprint("s1")
		if s.Progress != n {
			t.Errorf("Progress = %d, want %d (lost update)", s.Progress, n)
		}
		return nil
	})
}

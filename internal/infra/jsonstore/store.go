// Package jsonstore provides a JSON file-based implementation of domain.Store.
//
// The whole document set lives in one file. Every transaction reads the file
// under a lock, works on the decoded copy and, on success, replaces the file
// atomically, so a failed transaction leaves nothing behind.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// storeData represents the JSON file structure.
// Fields are ordered to minimize memory padding.
type storeData struct {
	Projects map[string]*domain.Project `json:"projects"`
	Sprints  map[string]*domain.Sprint  `json:"sprints"`
	Tasks    map[string]*domain.Task    `json:"tasks"`
	Meta     meta                       `json:"meta"`
}

// meta contains store metadata.
type meta struct {
	Version int `json:"version"`
}

const storeVersion = 1

// Store implements domain.Store using a JSON file.
type Store struct {
	path     string
	lockPath string
}

// New creates a new Store for the given file path.
// The file does not need to exist; Initialize creates it.
func New(path string) *Store {
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Ensure Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// IsInitialized checks if the store file exists.
func (s *Store) IsInitialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file if it doesn't exist.
func (s *Store) Initialize() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	if _, err := os.Stat(s.path); err == nil {
		return nil // Already exists
	}

	return s.write(newStoreData())
}

// Close is a no-op; the file is only open during a transaction.
func (s *Store) Close() error {
	return nil
}

// View runs fn with a shared (read) lock.
func (s *Store) View(ctx context.Context, fn func(domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	return fn(&tx{data: data})
}

// Update runs fn with an exclusive (write) lock. The file is rewritten only
// when fn succeeds, the context is still live and something changed.
func (s *Store) Update(ctx context.Context, fn func(domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	t := &tx{data: data, writable: true}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.dirty {
		return nil
	}

	return s.write(data)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

func newStoreData() *storeData {
	return &storeData{
		Projects: make(map[string]*domain.Project),
		Sprints:  make(map[string]*domain.Sprint),
		Tasks:    make(map[string]*domain.Task),
		Meta:     meta{Version: storeVersion},
	}
}

func (s *Store) read() (*storeData, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotInitialized
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var data storeData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}

	// Ensure maps are initialized
	if data.Projects == nil {
		data.Projects = make(map[string]*domain.Project)
	}
	if data.Sprints == nil {
		data.Sprints = make(map[string]*domain.Sprint)
	}
	if data.Tasks == nil {
		data.Tasks = make(map[string]*domain.Task)
	}

	return &data, nil
}

func (s *Store) write(data *storeData) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// tx implements domain.Tx over the decoded file contents.
type tx struct {
	data     *storeData
	writable bool
	dirty    bool
}

func (t *tx) mutate() error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	t.dirty = true
	return nil
}

// === Projects ===

func (t *tx) GetProject(id string) (*domain.Project, error) {
	return t.data.Projects[id].Clone(), nil
}

func (t *tx) ListProjects() ([]*domain.Project, error) {
	projects := make([]*domain.Project, 0, len(t.data.Projects))
	for _, p := range t.data.Projects {
		projects = append(projects, p.Clone())
	}
	slices.SortFunc(projects, func(a, b *domain.Project) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return projects, nil
}

func (t *tx) SaveProject(p *domain.Project) error {
	if err := t.mutate(); err != nil {
		return err
	}
	t.data.Projects[p.ID] = p.Clone()
	return nil
}

func (t *tx) DeleteProject(id string) error {
	if err := t.mutate(); err != nil {
		return err
	}
	delete(t.data.Projects, id)
	return nil
}

// === Sprints ===

func (t *tx) GetSprint(id string) (*domain.Sprint, error) {
	return t.data.Sprints[id].Clone(), nil
}

func (t *tx) ListSprints(filter domain.SprintFilter) ([]*domain.Sprint, error) {
	var sprints []*domain.Sprint
	for _, s := range t.data.Sprints {
		if filter.Matches(s) {
			sprints = append(sprints, s.Clone())
		}
	}
	slices.SortFunc(sprints, func(a, b *domain.Sprint) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sprints, nil
}

func (t *tx) SaveSprint(s *domain.Sprint) error {
	if err := t.mutate(); err != nil {
		return err
	}
	t.data.Sprints[s.ID] = s.Clone()
	return nil
}

func (t *tx) DeleteSprint(id string) error {
	if err := t.mutate(); err != nil {
		return err
	}
	delete(t.data.Sprints, id)
	return nil
}

func (t *tx) DeleteSprints(filter domain.SprintFilter) (int, error) {
	if err := t.mutate(); err != nil {
		return 0, err
	}
	n := 0
	for id, s := range t.data.Sprints {
		if filter.Matches(s) {
			delete(t.data.Sprints, id)
			n++
		}
	}
	return n, nil
}

// === Tasks ===

func (t *tx) GetTask(id string) (*domain.Task, error) {
	return t.data.Tasks[id].Clone(), nil
}

func (t *tx) ListTasks(filter domain.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for _, task := range t.data.Tasks {
		if filter.Matches(task) {
			tasks = append(tasks, task.Clone())
		}
	}
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

func (t *tx) SaveTask(task *domain.Task) error {
	if err := t.mutate(); err != nil {
		return err
	}
	t.data.Tasks[task.ID] = task.Clone()
	return nil
}

func (t *tx) DeleteTask(id string) error {
	if err := t.mutate(); err != nil {
		return err
	}
	delete(t.data.Tasks, id)
	return nil
}

func (t *tx) UpdateTasks(filter domain.TaskFilter, patch func(*domain.Task)) (int, error) {
	if err := t.mutate(); err != nil {
		return 0, err
	}
	n := 0
	for _, task := range t.data.Tasks {
		if filter.Matches(task) {
			patch(task)
			n++
		}
	}
	return n, nil
}

func (t *tx) DeleteTasks(filter domain.TaskFilter) (int, error) {
	if err := t.mutate(); err != nil {
		return 0, err
	}
	n := 0
	for id, task := range t.data.Tasks {
		if filter.Matches(task) {
			delete(t.data.Tasks, id)
			n++
		}
	}
	return n, nil
}

// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// Compile-time interface checks.
var (
	_ domain.Clock        = (*MockClock)(nil)
	_ domain.Broadcaster  = (*MockBroadcaster)(nil)
	_ domain.JobQueue     = (*InlineQueue)(nil)
	_ domain.Notifier     = (*MockNotifier)(nil)
	_ domain.AuditLogger  = (*MockAuditLogger)(nil)
	_ domain.FeatureGate  = (*MockFeatureGate)(nil)
	_ domain.Cache        = (*PassthroughCache)(nil)
	_ domain.ConfigLoader = (*MockConfigLoader)(nil)
	_ domain.Store        = (*FaultyStore)(nil)
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockBroadcaster records published events.
type MockBroadcaster struct {
	events []domain.Event
	mu     sync.Mutex
}

// Publish records the event.
func (m *MockBroadcaster) Publish(room, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, domain.Event{Room: room, Name: event, Payload: payload})
}

// Events returns a copy of every recorded event in publish order.
func (m *MockBroadcaster) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}

// Named returns the recorded events with the given name.
func (m *MockBroadcaster) Named(name string) []domain.Event {
	var out []domain.Event
	for _, ev := range m.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// InRoom returns the names of the events published to room.
func (m *MockBroadcaster) InRoom(room string) []string {
	var out []string
	for _, ev := range m.Events() {
		if ev.Room == room {
			out = append(out, ev.Name)
		}
	}
	return out
}

// Reset forgets recorded events.
func (m *MockBroadcaster) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// InlineQueue runs jobs synchronously on Submit.
// Fields are ordered to minimize memory padding.
type InlineQueue struct {
	SubmitErr error    // Returned instead of running the job
	Errors    []error  // Errors returned by jobs
	Names     []string // Names of submitted jobs
	mu        sync.Mutex
}

// Submit runs job immediately.
func (q *InlineQueue) Submit(name string, job domain.Job) error {
	q.mu.Lock()
	q.Names = append(q.Names, name)
	submitErr := q.SubmitErr
	q.mu.Unlock()
	if submitErr != nil {
		return submitErr
	}

	if err := job(context.Background()); err != nil {
		q.mu.Lock()
		q.Errors = append(q.Errors, err)
		q.mu.Unlock()
	}
	return nil
}

// MockNotifier records notifications.
type MockNotifier struct {
	Err  error
	Sent []domain.Notification
	mu   sync.Mutex
}

// NotifyUser records n.
func (m *MockNotifier) NotifyUser(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, n)
	return nil
}

// MockAuditLogger records audit entries.
type MockAuditLogger struct {
	Err     error
	Entries []domain.AuditEntry
	mu      sync.Mutex
}

// LogAction records entry.
func (m *MockAuditLogger) LogAction(_ context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

// Actions returns "kind:action" for every recorded entry.
func (m *MockAuditLogger) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		out[i] = e.EntityKind + ":" + e.Action
	}
	return out
}

// MockFeatureGate answers feature checks from a fixed table.
// Projects not listed get Default.
type MockFeatureGate struct {
	Err     error
	Denied  map[string]bool // Project IDs without access
	Default bool
}

// CheckFeatureAccess reports whether projectID may use feature.
func (m *MockFeatureGate) CheckFeatureAccess(_ context.Context, projectID, _ string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	if m.Denied[projectID] {
		return false, nil
	}
	return m.Default, nil
}

// PassthroughCache never stores anything and records invalidations.
type PassthroughCache struct {
	Invalidated []string
	Computes    int
	mu          sync.Mutex
}

// GetOrCompute always calls compute.
func (c *PassthroughCache) GetOrCompute(ctx context.Context, _ string, _ time.Duration, compute func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	c.Computes++
	c.mu.Unlock()
	return compute(ctx)
}

// Invalidate records keyOrPattern.
func (c *PassthroughCache) Invalidate(keyOrPattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidated = append(c.Invalidated, keyOrPattern)
}

// Clear is a no-op.
func (c *PassthroughCache) Clear() {}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
}

// NewMockConfigLoader creates a loader returning the default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadWithOptions returns the configured config regardless of options.
func (m *MockConfigLoader) LoadWithOptions(_ domain.LoadConfigOptions) (*domain.Config, error) {
	return m.Load()
}

// ErrInjected is the failure returned by FaultyStore.
var ErrInjected = errors.New("injected failure")

// FaultyStore wraps a store and fails chosen writes inside Update.
// Fields are ordered to minimize memory padding.
type FaultyStore struct {
	domain.Store
	FailSaveTask   bool
	FailSaveSprint bool
}

// Update runs fn against a transaction that fails the selected writes.
func (s *FaultyStore) Update(ctx context.Context, fn func(tx domain.Tx) error) error {
	return s.Store.Update(ctx, func(tx domain.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	domain.Tx
	store *FaultyStore
}

func (t *faultyTx) SaveTask(task *domain.Task) error {
	if t.store.FailSaveTask {
		return ErrInjected
	}
	return t.Tx.SaveTask(task)
}

func (t *faultyTx) SaveSprint(s *domain.Sprint) error {
	if t.store.FailSaveSprint {
		return ErrInjected
	}
	return t.Tx.SaveSprint(s)
}

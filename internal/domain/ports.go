package domain

import (
	"context"
	"time"
)

// Store is the entity store. All multi-document writes go through Update.
type Store interface {
	// Initialize creates the store if it doesn't exist.
	Initialize() error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn inside a transaction. If fn returns nil every write made
	// through tx is committed; otherwise nothing is, and fn's error is
	// returned unchanged.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying resources.
	Close() error
}

// Tx is a unit of work over projects, sprints and tasks.
// Get methods return nil (and no error) when the document does not exist.
// Returned documents are copies; changes are only persisted by a Save call.
type Tx interface {
	GetProject(id string) (*Project, error)
	ListProjects() ([]*Project, error)
	SaveProject(p *Project) error
	DeleteProject(id string) error

	GetSprint(id string) (*Sprint, error)
	ListSprints(filter SprintFilter) ([]*Sprint, error)
	SaveSprint(s *Sprint) error
	DeleteSprint(id string) error
	DeleteSprints(filter SprintFilter) (int, error)

	GetTask(id string) (*Task, error)
	ListTasks(filter TaskFilter) ([]*Task, error)
	SaveTask(t *Task) error
	DeleteTask(id string) error
	// UpdateTasks applies patch to every task matching filter and saves it.
	UpdateTasks(filter TaskFilter, patch func(*Task)) (int, error)
	DeleteTasks(filter TaskFilter) (int, error)
}

// Cache is the process-wide read-through cache. Entries are advisory.
type Cache interface {
	// GetOrCompute returns the cached value for key, or calls compute and
	// stores its result for ttl. Compute errors are returned and not cached.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (any, error)) (any, error)

	// Invalidate deletes key, or every key matching it when it contains
	// CacheWildcard. Patterns match from the start of a key.
	Invalidate(keyOrPattern string)

	// Clear drops all entries.
	Clear()
}

// Broadcaster publishes events to rooms. Delivery is best-effort.
type Broadcaster interface {
	Publish(room, event string, payload any)
}

// Job is a unit of post-commit work.
type Job func(ctx context.Context) error

// JobQueue runs post-commit jobs outside the request path.
type JobQueue interface {
	// Submit enqueues job. It never blocks; a rejected job is reported as an error.
	Submit(name string, job Job) error
}

// Authenticator resolves a bearer token to a user ID.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// FeatureGate reports whether a project's plan includes a feature.
type FeatureGate interface {
	CheckFeatureAccess(ctx context.Context, projectID, feature string) (bool, error)
}

// FeatureSprints is the feature name checked before sprint creation.
const FeatureSprints = "sprints"

// AuditEntry records one mutating action.
type AuditEntry struct {
	Changes    map[string]any `json:"changes,omitempty"`
	ActorID    string         `json:"actorId"`
	Action     string         `json:"action"`
	EntityKind string         `json:"entityKind"`
	EntityID   string         `json:"entityId"`
}

// AuditLogger persists audit entries.
type AuditLogger interface {
	LogAction(ctx context.Context, entry AuditEntry) error
}

// Notification is an out-of-band message to one user.
type Notification struct {
	Metadata map[string]string `json:"metadata,omitempty"`
	UserID   string            `json:"userId"`
	Message  string            `json:"message"`
	Link     string            `json:"link,omitempty"`
}

// Notifier delivers notifications to users.
type Notifier interface {
	NotifyUser(ctx context.Context, n Notification) error
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the configuration merged over defaults.
	Load() (*Config, error)
	// LoadWithOptions returns the merged configuration, skipping ignored sources.
	LoadWithOptions(opts LoadConfigOptions) (*Config, error)
}

// LoadConfigOptions selects which config files are read.
type LoadConfigOptions struct {
	IgnoreGlobal bool
	IgnoreLocal  bool
}

// ConfigInfo describes one config file on disk.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// ConfigManager inspects and creates config files.
type ConfigManager interface {
	GetLocalConfigInfo() ConfigInfo
	GetGlobalConfigInfo() ConfigInfo
	InitLocalConfig(cfg *Config) error
	InitGlobalConfig(cfg *Config) error
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

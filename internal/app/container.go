// Package app provides the dependency injection container for the application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/broadcast"
	"github.com/runoshun/sprintcrew/internal/infra/cache"
	"github.com/runoshun/sprintcrew/internal/infra/config"
	"github.com/runoshun/sprintcrew/internal/infra/external"
	"github.com/runoshun/sprintcrew/internal/infra/jsonstore"
	"github.com/runoshun/sprintcrew/internal/infra/logging"
	"github.com/runoshun/sprintcrew/internal/infra/postcommit"
	"github.com/runoshun/sprintcrew/internal/infra/sqlitestore"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

// Config holds the application paths.
type Config struct {
	DataDir    string // Path to the .sprintcrew directory
	ConfigPath string // Path to config.toml
	StorePath  string // Path to the store file
}

// newConfig resolves paths for dataDir and the loaded settings.
func newConfig(dataDir string, appConfig *domain.Config) Config {
	return Config{
		DataDir:    dataDir,
		ConfigPath: domain.ConfigPath(dataDir),
		StorePath:  domain.StorePath(dataDir, appConfig.Store),
	}
}

// Deps are the port implementations a Container is built from.
// Fields are ordered to minimize memory padding.
type Deps struct {
	Store         domain.Store
	Cache         domain.Cache
	Queue         domain.JobQueue
	Auth          domain.Authenticator
	Gate          domain.FeatureGate
	Audit         domain.AuditLogger
	Notifier      domain.Notifier
	Clock         domain.Clock
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager
	Hub           *broadcast.Hub
	Logger        *slog.Logger
	AppConfig     *domain.Config
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Store         domain.Store
	Cache         domain.Cache
	Queue         domain.JobQueue
	Auth          domain.Authenticator
	Gate          domain.FeatureGate
	Audit         domain.AuditLogger
	Notifier      domain.Notifier
	Clock         domain.Clock
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager

	// Pointer fields
	Hub       *broadcast.Hub
	Logger    *slog.Logger
	AppConfig *domain.Config

	tx      *usecase.Transactor
	closers []func(ctx context.Context) error

	// Configuration
	Config Config
}

// New creates a Container for the data directory dir.
// Config warnings are logged once the logger exists.
func New(dir string) (*Container, error) {
	dataDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}

	configLoader := config.NewLoader(dataDir)
	appConfig, err := configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := newConfig(dataDir, appConfig)

	logger, err := logging.New(dataDir, appConfig.Log)
	if err != nil {
		return nil, err
	}
	for _, w := range appConfig.Warnings {
		logger.Warn("config", "warning", w)
	}

	store, err := OpenStore(appConfig.Store.Driver, cfg.StorePath)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	c := cache.New(appConfig.Cache, logger.Logger)
	hub := broadcast.NewHub(broadcast.DefaultBuffer, logger.Logger)
	queue := postcommit.New(appConfig.Queue, logger.Logger)

	container := NewWithDeps(cfg, Deps{
		Store:         store,
		Cache:         c,
		Queue:         queue,
		Auth:          external.NewTokenAuthenticator(appConfig.Auth),
		Gate:          external.AllowAllGate{},
		Audit:         external.NewLogAuditor(logger.Logger),
		Notifier:      external.NewLogNotifier(logger.Logger),
		Clock:         domain.RealClock{},
		ConfigLoader:  configLoader,
		ConfigManager: config.NewManager(dataDir),
		Hub:           hub,
		Logger:        logger.Logger,
		AppConfig:     appConfig,
	})
	// Closed in reverse: drain queued jobs before the hub and store go away.
	container.closers = []func(context.Context) error{
		func(context.Context) error { return logger.Close() },
		func(context.Context) error { return store.Close() },
		func(context.Context) error { c.Close(); return nil },
		func(context.Context) error { hub.Close(); return nil },
		queue.Close,
	}
	return container, nil
}

// OpenStore opens the entity store for driver at path.
func OpenStore(driver, path string) (domain.Store, error) {
	switch driver {
	case "", domain.StoreDriverJSON:
		return jsonstore.New(path), nil
	case domain.StoreDriverSQLite:
		s, err := sqlitestore.New(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStoreDriver, driver)
	}
}

// NewWithDeps creates a Container from explicit dependencies.
// Tests use it to inject mocks; missing optional ports get defaults.
func NewWithDeps(cfg Config, deps Deps) *Container {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.AppConfig == nil {
		deps.AppConfig = domain.NewDefaultConfig()
	}
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	if deps.Gate == nil {
		deps.Gate = external.AllowAllGate{}
	}
	if deps.Hub == nil {
		deps.Hub = broadcast.NewHub(broadcast.DefaultBuffer, deps.Logger)
	}

	return &Container{
		Store:         deps.Store,
		Cache:         deps.Cache,
		Queue:         deps.Queue,
		Auth:          deps.Auth,
		Gate:          deps.Gate,
		Audit:         deps.Audit,
		Notifier:      deps.Notifier,
		Clock:         deps.Clock,
		ConfigLoader:  deps.ConfigLoader,
		ConfigManager: deps.ConfigManager,
		Hub:           deps.Hub,
		Logger:        deps.Logger,
		AppConfig:     deps.AppConfig,
		Config:        cfg,
		tx: usecase.NewTransactor(
			deps.Store, deps.Cache, deps.Hub, deps.Queue,
			deps.Audit, deps.Notifier, deps.Logger,
		),
	}
}

// Close releases resources in reverse order of creation.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Transactor returns the shared transaction runner.
func (c *Container) Transactor() *usecase.Transactor {
	return c.tx
}

// UseCase factory methods

// InitDataDirUseCase returns a new InitDataDir use case.
func (c *Container) InitDataDirUseCase() *usecase.InitDataDir {
	return usecase.NewInitDataDir(c.Store, c.ConfigManager)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}

// CreateProjectUseCase returns a new CreateProject use case.
func (c *Container) CreateProjectUseCase() *usecase.CreateProject {
	return usecase.NewCreateProject(c.tx, c.Clock)
}

// ShowProjectUseCase returns a new ShowProject use case.
func (c *Container) ShowProjectUseCase() *usecase.ShowProject {
	return usecase.NewShowProject(c.tx, c.Cache, c.AppConfig.Cache.TTL)
}

// ListProjectsUseCase returns a new ListProjects use case.
func (c *Container) ListProjectsUseCase() *usecase.ListProjects {
	return usecase.NewListProjects(c.tx)
}

// DeleteProjectUseCase returns a new DeleteProject use case.
func (c *Container) DeleteProjectUseCase() *usecase.DeleteProject {
	return usecase.NewDeleteProject(c.tx)
}

// CreateSprintUseCase returns a new CreateSprint use case.
func (c *Container) CreateSprintUseCase() *usecase.CreateSprint {
	return usecase.NewCreateSprint(c.tx, c.Gate, c.Clock)
}

// UpdateSprintUseCase returns a new UpdateSprint use case.
func (c *Container) UpdateSprintUseCase() *usecase.UpdateSprint {
	return usecase.NewUpdateSprint(c.tx, c.Clock)
}

// DeleteSprintUseCase returns a new DeleteSprint use case.
func (c *Container) DeleteSprintUseCase() *usecase.DeleteSprint {
	return usecase.NewDeleteSprint(c.tx)
}

// ListSprintsUseCase returns a new ListSprints use case.
func (c *Container) ListSprintsUseCase() *usecase.ListSprints {
	return usecase.NewListSprints(c.tx, c.Cache, c.AppConfig.Cache.TTL)
}

// ShowSprintUseCase returns a new ShowSprint use case.
func (c *Container) ShowSprintUseCase() *usecase.ShowSprint {
	return usecase.NewShowSprint(c.tx, c.Cache, c.AppConfig.Cache.TTL)
}

// AddTaskToSprintUseCase returns a new AddTaskToSprint use case.
func (c *Container) AddTaskToSprintUseCase() *usecase.AddTaskToSprint {
	return usecase.NewAddTaskToSprint(c.tx, c.Clock)
}

// RemoveTaskFromSprintUseCase returns a new RemoveTaskFromSprint use case.
func (c *Container) RemoveTaskFromSprintUseCase() *usecase.RemoveTaskFromSprint {
	return usecase.NewRemoveTaskFromSprint(c.tx, c.Clock)
}

// RecalculateProgressUseCase returns a new RecalculateProgress use case.
func (c *Container) RecalculateProgressUseCase() *usecase.RecalculateProgress {
	return usecase.NewRecalculateProgress(c.tx, c.Clock)
}

// CreateTaskUseCase returns a new CreateTask use case.
func (c *Container) CreateTaskUseCase() *usecase.CreateTask {
	return usecase.NewCreateTask(c.tx, c.Clock)
}

// UpdateTaskUseCase returns a new UpdateTask use case.
func (c *Container) UpdateTaskUseCase() *usecase.UpdateTask {
	return usecase.NewUpdateTask(c.tx, c.Clock)
}

// DeleteTaskUseCase returns a new DeleteTask use case.
func (c *Container) DeleteTaskUseCase() *usecase.DeleteTask {
	return usecase.NewDeleteTask(c.tx, c.Clock)
}

// ShowTaskUseCase returns a new ShowTask use case.
func (c *Container) ShowTaskUseCase() *usecase.ShowTask {
	return usecase.NewShowTask(c.tx, c.Cache, c.AppConfig.Cache.TTL)
}

// ImportTasksUseCase returns a new ImportTasks use case.
func (c *Container) ImportTasksUseCase() *usecase.ImportTasks {
	return usecase.NewImportTasks(c.tx, c.Clock)
}

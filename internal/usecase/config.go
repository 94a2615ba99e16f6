package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// InitDataDirInput contains the parameters for initializing a data directory.
type InitDataDirInput struct {
	Actor string // Written to [cli] actor when set
}

// InitDataDirOutput contains the result of initializing a data directory.
type InitDataDirOutput struct {
	ConfigPath string
}

// InitDataDir creates the entity store and a local config file.
type InitDataDir struct {
	store         domain.Store
	configManager domain.ConfigManager
}

// NewInitDataDir creates a new InitDataDir use case.
func NewInitDataDir(store domain.Store, configManager domain.ConfigManager) *InitDataDir {
	return &InitDataDir{
		store:         store,
		configManager: configManager,
	}
}

// Execute initializes the store. An existing local config means the
// directory was already initialized; the store is still repaired.
func (uc *InitDataDir) Execute(_ context.Context, in InitDataDirInput) (*InitDataDirOutput, error) {
	info := uc.configManager.GetLocalConfigInfo()

	if err := uc.store.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	if info.Exists {
		return nil, domain.ErrAlreadyInitialized
	}

	cfg := domain.NewDefaultConfig()
	cfg.CLI.Actor = in.Actor
	if err := uc.configManager.InitLocalConfig(cfg); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}
	return &InitDataDirOutput{ConfigPath: info.Path}, nil
}

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct {
	IgnoreGlobal bool // Skip the global config file
	IgnoreLocal  bool // Skip the data directory config file
}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	Effective    *domain.Config    // Merged configuration
	GlobalConfig domain.ConfigInfo // Global config file info
	LocalConfig  domain.ConfigInfo // Data directory config file info
}

// ShowConfig displays configuration file information.
type ShowConfig struct {
	configManager domain.ConfigManager
	configLoader  domain.ConfigLoader
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(configManager domain.ConfigManager, configLoader domain.ConfigLoader) *ShowConfig {
	return &ShowConfig{
		configManager: configManager,
		configLoader:  configLoader,
	}
}

// Execute retrieves configuration file information.
func (uc *ShowConfig) Execute(_ context.Context, in ShowConfigInput) (*ShowConfigOutput, error) {
	cfg, err := uc.configLoader.LoadWithOptions(domain.LoadConfigOptions{
		IgnoreGlobal: in.IgnoreGlobal,
		IgnoreLocal:  in.IgnoreLocal,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &ShowConfigOutput{
		Effective:    cfg,
		GlobalConfig: uc.configManager.GetGlobalConfigInfo(),
		LocalConfig:  uc.configManager.GetLocalConfigInfo(),
	}, nil
}

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Config *domain.Config // Values rendered into the template (nil = defaults)
	Global bool           // If true, initialize global config; otherwise the data directory config
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path string // Path to the created config file
}

// InitConfig generates a configuration file template.
type InitConfig struct {
	configManager domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(configManager domain.ConfigManager) *InitConfig {
	return &InitConfig{
		configManager: configManager,
	}
}

// Execute creates a configuration file with default template.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	cfg := in.Config
	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}

	var err error
	var path string

	if in.Global {
		path = uc.configManager.GetGlobalConfigInfo().Path
		err = uc.configManager.InitGlobalConfig(cfg)
	} else {
		path = uc.configManager.GetLocalConfigInfo().Path
		err = uc.configManager.InitLocalConfig(cfg)
	}

	if err != nil {
		return nil, err
	}

	return &InitConfigOutput{Path: path}, nil
}

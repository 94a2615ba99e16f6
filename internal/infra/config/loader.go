// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	dataDir       string // Path to the .sprintcrew directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/sprintcrew)
}

// NewLoader creates a new Loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// Load returns the merged configuration (defaults <- global <- local).
func (l *Loader) Load() (*domain.Config, error) {
	return l.LoadWithOptions(domain.LoadConfigOptions{})
}

// LoadWithOptions returns the merged configuration with options to ignore sources.
// Later sources override only the keys they set.
func (l *Loader) LoadWithOptions(opts domain.LoadConfigOptions) (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()

	if !opts.IgnoreGlobal && l.globalConfDir != "" {
		if err := l.applyFile(cfg, filepath.Join(l.globalConfDir, domain.ConfigFileName)); err != nil {
			return nil, err
		}
	}
	if !opts.IgnoreLocal {
		if err := l.applyFile(cfg, domain.ConfigPath(l.dataDir)); err != nil {
			return nil, err
		}
	}

	sort.Strings(cfg.Warnings)
	return cfg, nil
}

// applyFile overlays the file at path onto cfg. A missing file is ignored.
func (l *Loader) applyFile(cfg *domain.Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	applyRaw(cfg, raw)
	return nil
}

// applyRaw copies the known keys of raw into cfg and collects warnings for
// unknown or malformed ones.
func applyRaw(cfg *domain.Config, raw map[string]any) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	for section, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			warn("unknown section: %s", section)
			continue
		}
		switch section {
		case "store":
			for k, v := range m {
				switch k {
				case "driver":
					if s, ok := v.(string); ok {
						cfg.Store.Driver = s
					}
				case "path":
					if s, ok := v.(string); ok {
						cfg.Store.Path = s
					}
				default:
					warn("unknown key in [store]: %s", k)
				}
			}
		case "cache":
			for k, v := range m {
				switch k {
				case "ttl":
					if d, ok := parseDuration(v); ok {
						cfg.Cache.TTL = d
					} else {
						warn("invalid value in [cache]: ttl = %v", v)
					}
				case "single_flight":
					if b, ok := v.(bool); ok {
						cfg.Cache.SingleFlight = b
					}
				default:
					warn("unknown key in [cache]: %s", k)
				}
			}
		case "server":
			for k, v := range m {
				switch k {
				case "addr":
					if s, ok := v.(string); ok {
						cfg.Server.Addr = s
					}
				case "mode":
					s, _ := v.(string)
					if s == domain.ModeDevelopment || s == domain.ModeProduction {
						cfg.Server.Mode = s
					} else {
						warn("invalid value in [server]: mode = %v", v)
					}
				default:
					warn("unknown key in [server]: %s", k)
				}
			}
		case "queue":
			for k, v := range m {
				switch k {
				case "workers":
					if n, ok := v.(int64); ok && n > 0 {
						cfg.Queue.Workers = int(n)
					} else {
						warn("invalid value in [queue]: workers = %v", v)
					}
				case "buffer":
					if n, ok := v.(int64); ok && n > 0 {
						cfg.Queue.Buffer = int(n)
					} else {
						warn("invalid value in [queue]: buffer = %v", v)
					}
				default:
					warn("unknown key in [queue]: %s", k)
				}
			}
		case "log":
			for k, v := range m {
				switch k {
				case "level":
					if s, ok := v.(string); ok {
						cfg.Log.Level = s
					}
				case "format":
					if s, ok := v.(string); ok {
						cfg.Log.Format = s
					}
				case "file":
					if s, ok := v.(string); ok {
						cfg.Log.File = s
					}
				default:
					warn("unknown key in [log]: %s", k)
				}
			}
		case "cli":
			for k, v := range m {
				switch k {
				case "actor":
					if s, ok := v.(string); ok {
						cfg.CLI.Actor = s
					}
				default:
					warn("unknown key in [cli]: %s", k)
				}
			}
		case "auth":
			for k, v := range m {
				switch k {
				case "tokens":
					tokens, ok := v.(map[string]any)
					if !ok {
						warn("invalid value in [auth]: tokens")
						continue
					}
					for token, user := range tokens {
						if s, ok := user.(string); ok && s != "" {
							cfg.Auth.Tokens[token] = s
						}
					}
				default:
					warn("unknown key in [auth]: %s", k)
				}
			}
		default:
			warn("unknown section: %s", section)
		}
	}

	cfg.Warnings = append(cfg.Warnings, warnings...)
}

// parseDuration accepts a Go duration string or an integer number of seconds.
func parseDuration(v any) (time.Duration, bool) {
	switch x := v.(type) {
	case string:
		d, err := time.ParseDuration(x)
		if err != nil || d <= 0 {
			return 0, false
		}
		return d, true
	case int64:
		if x <= 0 {
			return 0, false
		}
		return time.Duration(x) * time.Second, true
	default:
		return 0, false
	}
}

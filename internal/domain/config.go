package domain

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
	"time"
)

// Store drivers.
const (
	StoreDriverJSON   = "json"
	StoreDriverSQLite = "sqlite"
)

// Server modes. Development mode exposes internal error detail in responses.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Defaults.
const (
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultServerAddr   = ":8080"
	DefaultCacheTTL     = 60 * time.Second
	DefaultQueueWorkers = 4
	DefaultQueueBuffer  = 256
)

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string     `toml:"-"`
	Auth     AuthConfig   `toml:"auth"`
	Store    StoreConfig  `toml:"store"`
	Server   ServerConfig `toml:"server"`
	Log      LogConfig    `toml:"log"`
	CLI      CLIConfig    `toml:"cli"`
	Cache    CacheConfig  `toml:"cache"`
	Queue    QueueConfig  `toml:"queue"`
}

// StoreConfig holds entity store settings from [store] section.
type StoreConfig struct {
	Driver string `toml:"driver,omitempty"` // "json" (default) or "sqlite"
	Path   string `toml:"path,omitempty"`   // Store file; relative paths resolve against the data dir
}

// CacheConfig holds read-through cache settings from [cache] section.
type CacheConfig struct {
	TTL          time.Duration `toml:"ttl,omitempty"`
	SingleFlight bool          `toml:"single_flight"`
}

// ServerConfig holds HTTP settings from [server] section.
type ServerConfig struct {
	Addr string `toml:"addr,omitempty"`
	Mode string `toml:"mode,omitempty"` // "development" or "production"
}

// QueueConfig holds post-commit queue settings from [queue] section.
type QueueConfig struct {
	Workers int `toml:"workers,omitempty"`
	Buffer  int `toml:"buffer,omitempty"`
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level  string `toml:"level,omitempty"`  // debug, info, warn, error
	Format string `toml:"format,omitempty"` // text or json
	File   string `toml:"file,omitempty"`   // Empty = stderr
}

// AuthConfig maps bearer tokens to user IDs from [auth] section.
type AuthConfig struct {
	Tokens map[string]string `toml:"tokens,omitempty"`
}

// CLIConfig holds command-line defaults from [cli] section.
type CLIConfig struct {
	Actor string `toml:"actor,omitempty"` // User ID used for CLI mutations
}

// NewDefaultConfig returns a Config populated with defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: StoreDriverJSON,
		},
		Cache: CacheConfig{
			TTL:          DefaultCacheTTL,
			SingleFlight: true,
		},
		Server: ServerConfig{
			Addr: DefaultServerAddr,
			Mode: ModeProduction,
		},
		Queue: QueueConfig{
			Workers: DefaultQueueWorkers,
			Buffer:  DefaultQueueBuffer,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Auth: AuthConfig{
			Tokens: make(map[string]string),
		},
	}
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == ModeDevelopment
}

const configTemplate = `# sprintcrew configuration

[store]
# "json" keeps every document in one file; "sqlite" uses a SQLite database.
driver = "{{.Store.Driver}}"

[cache]
ttl = "{{.Cache.TTL}}"
single_flight = {{.Cache.SingleFlight}}

[server]
addr = "{{.Server.Addr}}"
mode = "{{.Server.Mode}}"

[queue]
workers = {{.Queue.Workers}}
buffer = {{.Queue.Buffer}}

[log]
level = "{{.Log.Level}}"
format = "{{.Log.Format}}"

[cli]
actor = "{{.CLI.Actor}}"

[auth.tokens]
{{- range .Tokens}}
"{{.Token}}" = "{{.User}}"
{{- end}}
`

// RenderConfigTemplate renders cfg as a commented TOML file.
func RenderConfigTemplate(cfg *Config) (string, error) {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return "", fmt.Errorf("parse config template: %w", err)
	}

	type tokenLine struct{ Token, User string }
	tokens := make([]tokenLine, 0, len(cfg.Auth.Tokens))
	for token, user := range cfg.Auth.Tokens {
		tokens = append(tokens, tokenLine{Token: token, User: user})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Token < tokens[j].Token })

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		*Config
		Tokens []tokenLine
	}{Config: cfg, Tokens: tokens}); err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return buf.String(), nil
}

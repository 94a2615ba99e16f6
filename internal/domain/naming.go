package domain

import (
	"path/filepath"
)

// DataDirName is the default data directory name, created in the working directory.
const DataDirName = ".sprintcrew"

// ConfigFileName is the configuration file name inside the data directory.
const ConfigFileName = "config.toml"

// ConfigPath returns the path to the configuration file.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// StorePath resolves the store file for the driver.
// A relative configured path is resolved against dataDir.
func StorePath(dataDir string, cfg StoreConfig) string {
	if cfg.Path != "" {
		if filepath.IsAbs(cfg.Path) {
			return cfg.Path
		}
		return filepath.Join(dataDir, cfg.Path)
	}
	if cfg.Driver == StoreDriverSQLite {
		return filepath.Join(dataDir, "store.db")
	}
	return filepath.Join(dataDir, "store.json")
}

// LogPath resolves the log file. Empty means stderr.
func LogPath(dataDir string, cfg LogConfig) string {
	if cfg.File == "" || filepath.IsAbs(cfg.File) {
		return cfg.File
	}
	return filepath.Join(dataDir, cfg.File)
}

// GlobalConfigDir returns the user-wide config directory under configHome
// (typically $XDG_CONFIG_HOME).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, "sprintcrew")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/sprintcrew/internal/domain"
)

func TestManager_GetLocalConfigInfo(t *testing.T) {
	t.Run("returns info when file exists", func(t *testing.T) {
		dataDir := t.TempDir()
		configContent := "[log]\nlevel = \"debug\""
		err := os.WriteFile(filepath.Join(dataDir, domain.ConfigFileName), []byte(configContent), 0o644)
		require.NoError(t, err)

		manager := NewManagerWithGlobalDir(dataDir, "")
		info := manager.GetLocalConfigInfo()

		assert.Equal(t, filepath.Join(dataDir, domain.ConfigFileName), info.Path)
		assert.Equal(t, configContent, info.Content)
		assert.True(t, info.Exists)
	})

	t.Run("returns info when file does not exist", func(t *testing.T) {
		dataDir := t.TempDir()

		manager := NewManagerWithGlobalDir(dataDir, "")
		info := manager.GetLocalConfigInfo()

		assert.Equal(t, filepath.Join(dataDir, domain.ConfigFileName), info.Path)
		assert.Empty(t, info.Content)
		assert.False(t, info.Exists)
	})
}

func TestManager_GetGlobalConfigInfo(t *testing.T) {
	t.Run("returns info when file exists", func(t *testing.T) {
		globalDir := t.TempDir()
		configContent := "[server]\nmode = \"development\""
		err := os.WriteFile(filepath.Join(globalDir, domain.ConfigFileName), []byte(configContent), 0o644)
		require.NoError(t, err)

		manager := NewManagerWithGlobalDir("", globalDir)
		info := manager.GetGlobalConfigInfo()

		assert.Equal(t, configContent, info.Content)
		assert.True(t, info.Exists)
	})

	t.Run("returns empty info when global dir is empty", func(t *testing.T) {
		manager := NewManagerWithGlobalDir("", "")
		info := manager.GetGlobalConfigInfo()

		assert.Empty(t, info.Path)
		assert.False(t, info.Exists)
	})
}

func TestManager_InitLocalConfig(t *testing.T) {
	t.Run("creates config file that loads back", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), domain.DataDirName)
		cfg := domain.NewDefaultConfig()
		cfg.CLI.Actor = "alice"
		cfg.Auth.Tokens["secret-token"] = "alice"

		manager := NewManagerWithGlobalDir(dataDir, "")
		require.NoError(t, manager.InitLocalConfig(cfg))

		info, err := os.Stat(domain.ConfigPath(dataDir))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		loaded, err := NewLoaderWithGlobalDir(dataDir, "").Load()
		require.NoError(t, err)
		assert.Empty(t, loaded.Warnings)
		assert.Equal(t, "alice", loaded.CLI.Actor)
		assert.Equal(t, "alice", loaded.Auth.Tokens["secret-token"])
		assert.Equal(t, domain.DefaultCacheTTL, loaded.Cache.TTL)
		assert.True(t, loaded.Cache.SingleFlight)
	})

	t.Run("returns error if file exists", func(t *testing.T) {
		dataDir := t.TempDir()
		require.NoError(t, os.WriteFile(domain.ConfigPath(dataDir), []byte("existing"), 0o644))

		manager := NewManagerWithGlobalDir(dataDir, "")
		err := manager.InitLocalConfig(domain.NewDefaultConfig())

		assert.ErrorIs(t, err, domain.ErrConfigExists)
	})
}

func TestManager_InitGlobalConfig(t *testing.T) {
	t.Run("creates parent directory", func(t *testing.T) {
		globalDir := filepath.Join(t.TempDir(), "nested", "sprintcrew")

		manager := NewManagerWithGlobalDir("", globalDir)
		require.NoError(t, manager.InitGlobalConfig(domain.NewDefaultConfig()))

		_, err := os.Stat(filepath.Join(globalDir, domain.ConfigFileName))
		assert.NoError(t, err)
	})

	t.Run("fails without global dir", func(t *testing.T) {
		manager := NewManagerWithGlobalDir("", "")
		assert.Error(t, manager.InitGlobalConfig(domain.NewDefaultConfig()))
	})
}

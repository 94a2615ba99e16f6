// Package main is the entry point for the sprintcrew CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/cli"
	"github.com/runoshun/sprintcrew/internal/domain"
)

// version is set at build time using -ldflags.
var version = "dev"

// dataDirEnv overrides the data directory location.
const dataDirEnv = "SPRINTCREW_DIR"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	container, err := app.New(dataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	rootCmd := cli.NewRootCommand(container, version)
	runErr := rootCmd.Execute()

	// Give queued post-commit jobs a bounded time to drain.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.Close(ctx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

// resolveDataDir returns $SPRINTCREW_DIR or .sprintcrew in the working directory.
func resolveDataDir() (string, error) {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return filepath.Join(cwd, domain.DataDirName), nil
}

package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/jsonstore"
	"github.com/runoshun/sprintcrew/internal/testutil"
)

// newTestContainer creates a container over a temporary JSON store acting as alice.
func newTestContainer(t *testing.T) *app.Container {
	t.Helper()

	store := jsonstore.New(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, store.Initialize())

	cfg := domain.NewDefaultConfig()
	cfg.CLI.Actor = "alice"

	return app.NewWithDeps(app.Config{}, app.Deps{
		Store:     store,
		Cache:     &testutil.PassthroughCache{},
		Queue:     &testutil.InlineQueue{},
		Audit:     &testutil.MockAuditLogger{},
		Notifier:  &testutil.MockNotifier{},
		Clock:     &testutil.MockClock{NowTime: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
		AppConfig: cfg,
	})
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, c *app.Container, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand(c, "test-version")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// mustRun executes args and fails the test on error.
func mustRun(t *testing.T, c *app.Container, args ...string) string {
	t.Helper()
	out, _, err := run(t, c, args...)
	require.NoError(t, err, "sprintcrew %s", strings.Join(args, " "))
	return out
}

// createdID extracts the ID from a "Created <kind> <id>" line.
func createdID(t *testing.T, out string) string {
	t.Helper()
	line := strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
	fields := strings.Fields(line)
	require.GreaterOrEqual(t, len(fields), 3, "unexpected output %q", out)
	require.Equal(t, "Created", fields[0])
	return strings.TrimSuffix(fields[2], ":")
}

package hook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stevedore-deploy/stevedore/internal/target"
	"github.com/stevedore-deploy/stevedore/internal/transport"
)

func newRunnerForTest(t *testing.T) (*Runner, string) {
	t.Helper()

	tr := transport.NewLocal(target.Target{Root: t.TempDir()}, "web")
	require.NoError(t, os.MkdirAll(tr.Base(), 0o755))

	return NewRunner(tr), tr.Base()
}

func writeScript(t *testing.T, base, rel, body string) {
	t.Helper()

	path := filepath.Join(base, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
}

// TestFindPrecedence prefers the hook shipped inside the version over the
// namespace-level one, and reports absence as nil.
func TestFindPrecedence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, base := newRunnerForTest(t)

	h, err := r.Find(ctx, NameStart, "dist/1.0.0")
	require.NoError(t, err)
	require.Nil(t, h)

	writeScript(t, base, NameStart, "exit 0\n")

	h, err = r.Find(ctx, NameStart, "dist/1.0.0")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, NameStart, h.Path)

	writeScript(t, base, "dist/1.0.0/"+NameStart, "exit 0\n")

	h, err = r.Find(ctx, NameStart, "dist/1.0.0")
	require.NoError(t, err)
	require.Equal(t, "dist/1.0.0/"+NameStart, h.Path)

	writeScript(t, base, "dist/1.0.0/hooks/"+NameStart, "exit 0\n")

	h, err = r.Find(ctx, NameStart, "dist/1.0.0")
	require.NoError(t, err)
	require.Equal(t, "dist/1.0.0/hooks/"+NameStart, h.Path)
}

// TestRunExitCodes maps exit codes to nil or *FailedError with output.
func TestRunExitCodes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, base := newRunnerForTest(t)

	writeScript(t, base, "ok.sh", "exit 0\n")
	require.NoError(t, r.Run(ctx, &Hook{Name: NameStart, Path: "ok.sh"}, time.Minute))

	writeScript(t, base, "bad.sh", "echo broken pipe\nexit 2\n")

	err := r.Run(ctx, &Hook{Name: NameStop, Path: "bad.sh"}, time.Minute)

	var failed *FailedError

	require.ErrorAs(t, err, &failed)
	require.Equal(t, NameStop, failed.Name)
	require.Equal(t, 2, failed.ExitCode)
	require.Contains(t, failed.Output, "broken pipe")
}

// TestRunCanceled surfaces an operator interrupt as the cancellation, never
// as a script failure.
func TestRunCanceled(t *testing.T) {
	t.Parallel()

	r, base := newRunnerForTest(t)

	writeScript(t, base, "hang.sh", "sleep 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	err := r.Run(ctx, &Hook{Name: NameStop, Path: "hang.sh"}, time.Minute)
	require.ErrorIs(t, err, context.Canceled)

	var failed *FailedError

	require.False(t, errors.As(err, &failed))
}

// TestRunTimeout reports a hung script as a timeout, not a failure.
func TestRunTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, base := newRunnerForTest(t)

	writeScript(t, base, "hang.sh", "sleep 5\n")

	err := r.Run(ctx, &Hook{Name: NameHealthCheck, Path: "hang.sh"}, 100*time.Millisecond)

	var timeout *TimeoutError

	require.ErrorAs(t, err, &timeout)
	require.Equal(t, NameHealthCheck, timeout.Name)
}

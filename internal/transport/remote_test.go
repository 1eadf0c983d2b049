package transport

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestShellQuote keeps embedded single quotes intact through the remote shell.
func TestShellQuote(t *testing.T) {
	t.Parallel()

	require.Equal(t, "'/srv/apps/web'", shellQuote("/srv/apps/web"))
	require.Equal(t, `'it'\''s'`, shellQuote("it's"))
	require.Equal(t, "'a b'", shellQuote("a b"))
}

// TestRemotePathError keeps permission and I/O diagnostics distinct from
// missing paths.
func TestRemotePathError(t *testing.T) {
	t.Parallel()

	err := remotePathError("read", ".active", 1, "cat: /srv/apps/web/.active: No such file or directory\n")
	require.ErrorIs(t, err, os.ErrNotExist)

	err = remotePathError("read", ".active", 1, "cat: /srv/apps/web/.active: Permission denied\n")
	require.NotErrorIs(t, err, os.ErrNotExist)
	require.Contains(t, err.Error(), "Permission denied")

	err = remotePathError("list", "dist", 2, "")
	require.NotErrorIs(t, err, os.ErrNotExist)
	require.Contains(t, err.Error(), "exit code 2")
}

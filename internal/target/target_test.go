package target

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestResolve covers local, remote and malformed target specs.
func TestResolve(t *testing.T) {
	t.Parallel()

	// Local target: empty host segment.
	tgt, err := Resolve(":/srv/apps")
	require.NoError(t, err)
	require.False(t, tgt.IsRemote())
	require.Equal(t, "/srv/apps", tgt.Root)

	// Remote target.
	tgt, err = Resolve("deploy@web1:/srv/apps")
	require.NoError(t, err)
	require.True(t, tgt.IsRemote())
	require.Equal(t, "deploy@web1", tgt.Host)
	require.Equal(t, "/srv/apps", tgt.Root)
	require.Equal(t, "deploy@web1:/srv/apps", tgt.String())

	// Missing separator.
	_, err = Resolve("/srv/apps")
	require.ErrorIs(t, err, ErrInvalidTarget)

	// Empty path.
	_, err = Resolve("web1:")
	require.ErrorIs(t, err, ErrInvalidTarget)
}

// TestParseAppSpec covers bare, versioned and malformed application specs.
func TestParseAppSpec(t *testing.T) {
	t.Parallel()

	app, ver, err := ParseAppSpec("billing")
	require.NoError(t, err)
	require.Equal(t, "billing", app)
	require.Empty(t, ver)

	app, ver, err = ParseAppSpec("billing:1.2.3")
	require.NoError(t, err)
	require.Equal(t, "billing", app)
	require.Equal(t, "1.2.3", ver)

	for _, bad := range []string{"", ":1.0", "billing:", "billing:1.0:2.0"} {
		_, _, err = ParseAppSpec(bad)
		require.ErrorIs(t, err, ErrInvalidAppSpec, "spec %q", bad)
	}
}

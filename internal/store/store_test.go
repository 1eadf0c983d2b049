package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stevedore-deploy/stevedore/internal/target"
	"github.com/stevedore-deploy/stevedore/internal/transport"
)

func newStoreForTest(t *testing.T) (*Store, transport.Transport) {
	t.Helper()

	tr := transport.NewLocal(target.Target{Root: t.TempDir()}, "web")

	return New(tr, "web"), tr
}

// TestListUploaded filters foreign archives and orders versions ascending.
func TestListUploaded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, tr := newStoreForTest(t)

	// Empty namespace lists as empty, not as an error.
	versions, err := s.ListUploaded(ctx)
	require.NoError(t, err)
	require.Empty(t, versions)

	for _, name := range []string{"web-2.0.0.tar.gz", "web-1.10.tar.gz", "web-1.2.tar.gz", "other-9.9.tar.gz", "junk.txt"} {
		require.NoError(t, tr.WriteFile(ctx, "packages/"+name, []byte("x")))
	}

	versions, err = s.ListUploaded(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"1.2", "1.10", "2.0.0"}, versions)
}

// TestListInstalled skips staging directories left by interrupted installs.
func TestListInstalled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, tr := newStoreForTest(t)

	require.NoError(t, tr.MkdirAll(ctx, "dist/1.0.0"))
	require.NoError(t, tr.MkdirAll(ctx, "dist/.staging-2.0.0"))

	versions, err := s.ListInstalled(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"1.0.0"}, versions)
}

// TestActiveVersion treats a marker pointing at a missing install as inactive.
func TestActiveVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, tr := newStoreForTest(t)

	_, ok, err := s.ActiveVersion(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// Marker without dist/: inconsistent, reported inactive.
	require.NoError(t, tr.WriteFile(ctx, ".active", []byte("1.0.0\n")))

	_, ok, err = s.ActiveVersion(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// The raw marker is still visible for healing.
	raw, present, err := s.RawActiveMarker(ctx)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "1.0.0", raw)

	// With dist/ in place the same marker is authoritative.
	require.NoError(t, tr.MkdirAll(ctx, "dist/1.0.0"))

	active, ok, err := s.ActiveVersion(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1.0.0", active)
}

// TestFindUploaded matches version strings up to formatting quirks.
func TestFindUploaded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, tr := newStoreForTest(t)

	require.NoError(t, tr.WriteFile(ctx, "packages/web-1.0.0.tar.gz", []byte("x")))

	stored, err := s.FindUploaded(ctx, "1.0")
	require.NoError(t, err)
	require.Equal(t, "1.0.0", stored)

	_, err = s.FindUploaded(ctx, "3.0")
	require.ErrorIs(t, err, ErrPackageNotFound)
}

// TestLock covers contention and stale lock recovery.
func TestLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, tr := newStoreForTest(t)

	require.NoError(t, s.Lock(ctx))

	// Second acquisition fails while the marker is fresh.
	require.ErrorIs(t, s.Lock(ctx), ErrLocked)

	s.Unlock(ctx)
	require.NoError(t, s.Lock(ctx))
	s.Unlock(ctx)

	// A stale marker from a crashed invocation is broken.
	stale := fmt.Sprintf("%s pid=%d acquired=%d\n", "deadhost", os.Getpid(), time.Now().Add(-time.Hour).Unix())
	require.NoError(t, tr.WriteFile(ctx, ".lock", []byte(stale)))
	require.NoError(t, s.Lock(ctx))
	s.Unlock(ctx)
}

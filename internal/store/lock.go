package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stevedore-deploy/stevedore/internal/logger"
)

const (
	// lockFilename marks a write operation in flight within the namespace.
	lockFilename = ".lock"

	// lockLifetime is the period after which a leftover lock marker from a
	// crashed invocation is considered stale and broken.
	lockLifetime = 15 * time.Minute
)

// ErrLocked is returned when another invocation holds the namespace lock.
var ErrLocked = errors.New("application namespace is locked by another invocation")

// Lock takes the advisory namespace lock held for the duration of any write
// operation. The lock is a marker file recording holder and acquisition time,
// created exclusively so two invocations cannot both acquire; a fresh marker
// blocks acquisition, a stale one is broken with a warning. Readers do not
// take the lock.
func (s *Store) Lock(ctx context.Context) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	marker := fmt.Sprintf("%s pid=%d acquired=%d\n", hostname, os.Getpid(), time.Now().Unix())

	// Two attempts: the second one runs after breaking a stale marker.
	for attempt := 0; attempt < 2; attempt++ {
		err := s.t.CreateExclusive(ctx, lockFilename, []byte(marker))
		if err == nil {
			return nil
		}

		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("write lock: %w", err)
		}

		contents, err := s.t.ReadFile(ctx, lockFilename)
		if err != nil {
			return fmt.Errorf("read lock: %w", err)
		}

		holder := strings.TrimSpace(string(contents))
		if acquired, ok := parseLockMarker(holder); ok && time.Since(acquired) <= lockLifetime {
			return fmt.Errorf("%w: held by %s", ErrLocked, holder)
		}

		logger.WarnKV(ctx, "Breaking stale namespace lock", "app", s.app, "holder", holder)

		if err := s.t.RemoveAll(ctx, lockFilename); err != nil {
			return fmt.Errorf("break stale lock: %w", err)
		}
	}

	return fmt.Errorf("%w: lost the race after breaking a stale marker", ErrLocked)
}

// Unlock releases the namespace lock. Safe to call when not held.
func (s *Store) Unlock(ctx context.Context) {
	if err := s.t.RemoveAll(ctx, lockFilename); err != nil {
		logger.WarnKV(ctx, "Unable to remove namespace lock", "app", s.app, "error", err)
	}
}

// parseLockMarker extracts the acquisition time from a lock marker.
// Unparseable markers count as stale.
func parseLockMarker(marker string) (time.Time, bool) {
	for _, field := range strings.Fields(marker) {
		value, found := strings.CutPrefix(field, "acquired=")
		if !found {
			continue
		}

		seconds, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, false
		}

		return time.Unix(seconds, 0), true
	}

	return time.Time{}, false
}

package transport

import (
	"context"
	"fmt"

	"github.com/stevedore-deploy/stevedore/internal/target"
)

// Transport exposes the filesystem and script primitives every higher
// component uses against a deployment target. All relative paths are resolved
// against the target's application namespace (root/<app>), slash-separated.
//
// Implementations exist for local targets (direct filesystem calls) and
// remote targets (an SSH-based remote shell). Higher components depend only
// on this interface.
type Transport interface {
	// Base returns the absolute application namespace path on the target.
	Base() string

	// PutFile copies a local file into the namespace,
	// creating intermediate directories as needed.
	PutFile(ctx context.Context, localPath, rel string) error

	// ReadFile returns the contents of a file within the namespace.
	ReadFile(ctx context.Context, rel string) ([]byte, error)

	// WriteFile replaces the contents of a file within the namespace,
	// creating intermediate directories as needed.
	WriteFile(ctx context.Context, rel string, data []byte) error

	// CreateExclusive creates a file with the given contents, failing with
	// os.ErrExist when the path is already there. The existence check and
	// the create are one atomic step, which makes it usable as a lock
	// primitive.
	CreateExclusive(ctx context.Context, rel string, data []byte) error

	// Exists reports whether a path exists within the namespace.
	// Symlinks count even when dangling.
	Exists(ctx context.Context, rel string) (bool, error)

	// ListDir returns the entry names of a directory within the namespace.
	ListDir(ctx context.Context, rel string) ([]string, error)

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(ctx context.Context, rel string) error

	// RemoveAll deletes a path and anything below it; missing paths are fine.
	RemoveAll(ctx context.Context, rel string) error

	// Rename atomically moves a path within the namespace.
	Rename(ctx context.Context, oldRel, newRel string) error

	// Symlink creates a symbolic link at linkRel pointing to dest.
	// dest is interpreted relative to the link's own directory.
	Symlink(ctx context.Context, dest, linkRel string) error

	// Extract unpacks a tar+gzip archive stored in the namespace into destRel.
	Extract(ctx context.Context, archiveRel, destRel string) error

	// RunScript executes a script within the namespace, with cwdRel as the
	// working directory, and returns its exit code and captured output.
	// A non-zero exit code is data, not an error; err is reserved for
	// failures to run the script at all.
	RunScript(ctx context.Context, scriptRel string, args []string, cwdRel string) (int, string, error)
}

// Error is the category for failures of the transport channel itself
// (connection refused, authentication failure, scp exiting abnormally).
// It is deliberately distinct from filesystem errors on the target.
type Error struct {
	// Op is the primitive that failed.
	Op string
	// Target describes the destination, host-qualified for remote targets.
	Target string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Target, e.Err)
}

// Unwrap exposes the underlying failure to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New returns the transport implementation matching the target kind,
// bound to the given application namespace.
func New(tgt target.Target, app string) Transport {
	if tgt.IsRemote() {
		return NewRemote(tgt, app)
	}

	return NewLocal(tgt, app)
}

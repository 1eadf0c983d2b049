package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/stevedore-deploy/stevedore/internal/archive"
	"github.com/stevedore-deploy/stevedore/internal/target"
)

// Local operates on a target rooted in the local filesystem.
type Local struct {
	base string
}

// dirPermissions is used for directories created by the transport.
const dirPermissions os.FileMode = 0o755

// NewLocal binds a local transport to an application namespace.
func NewLocal(tgt target.Target, app string) *Local {
	return &Local{
		base: filepath.Join(tgt.Root, app),
	}
}

// Base returns the absolute application namespace path.
func (l *Local) Base() string {
	return l.base
}

// abs resolves a namespace-relative slash path to an absolute one.
func (l *Local) abs(rel string) string {
	return filepath.Join(l.base, filepath.FromSlash(rel))
}

// PutFile copies a local file into the namespace.
func (l *Local) PutFile(_ context.Context, localPath, rel string) error {
	src, err := os.Open(filepath.Clean(localPath))
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}

	defer func() {
		_ = src.Close()
	}()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	dest := l.abs(rel)
	if err := os.MkdirAll(filepath.Dir(dest), dirPermissions); err != nil {
		return fmt.Errorf("create parent of %s: %w", dest, err)
	}

	out, err := os.OpenFile(filepath.Clean(dest), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	_, err = io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return fmt.Errorf("copy to %s: %w", dest, err)
	}

	return nil
}

// ReadFile returns the contents of a file within the namespace.
func (l *Local) ReadFile(_ context.Context, rel string) ([]byte, error) {
	return os.ReadFile(l.abs(rel))
}

// WriteFile replaces the contents of a file within the namespace.
func (l *Local) WriteFile(_ context.Context, rel string, data []byte) error {
	path := l.abs(rel)
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}

	return os.WriteFile(path, data, 0o644) //nolint:gosec // Markers and manifests are not secrets.
}

// CreateExclusive creates a file only if nothing is at the path yet.
// O_EXCL makes the check and the create one atomic step.
func (l *Local) CreateExclusive(_ context.Context, rel string, data []byte) error {
	path := l.abs(rel)
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // Markers are not secrets.
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if cerr := file.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// Exists reports whether a path exists; dangling symlinks count.
func (l *Local) Exists(_ context.Context, rel string) (bool, error) {
	_, err := os.Lstat(l.abs(rel))
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}

// ListDir returns the entry names of a directory within the namespace.
func (l *Local) ListDir(_ context.Context, rel string) ([]string, error) {
	entries, err := os.ReadDir(l.abs(rel))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names, nil
}

// MkdirAll creates a directory and any missing parents.
func (l *Local) MkdirAll(_ context.Context, rel string) error {
	return os.MkdirAll(l.abs(rel), dirPermissions)
}

// RemoveAll deletes a path and anything below it.
func (l *Local) RemoveAll(_ context.Context, rel string) error {
	return os.RemoveAll(l.abs(rel))
}

// Rename moves a path within the namespace.
func (l *Local) Rename(_ context.Context, oldRel, newRel string) error {
	return os.Rename(l.abs(oldRel), l.abs(newRel))
}

// Symlink creates a symbolic link at linkRel pointing to dest.
func (l *Local) Symlink(_ context.Context, dest, linkRel string) error {
	return os.Symlink(filepath.FromSlash(dest), l.abs(linkRel))
}

// Extract unpacks an archive stored in the namespace into destRel.
func (l *Local) Extract(_ context.Context, archiveRel, destRel string) error {
	return archive.Extract(l.abs(archiveRel), l.abs(destRel))
}

// RunScript executes a script directly and returns its exit code and
// combined output. Processes killed by a context deadline surface as exit
// code -1; the caller inspects ctx to tell timeouts apart.
func (l *Local) RunScript(ctx context.Context, scriptRel string, args []string, cwdRel string) (int, string, error) {
	cmd := exec.CommandContext(ctx, l.abs(scriptRel), args...) //nolint:gosec // Hook scripts ship inside operator packages.
	cmd.Dir = l.abs(cwdRel)

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), string(output), nil
		}

		return -1, string(output), fmt.Errorf("run %s: %w", scriptRel, err)
	}

	return 0, string(output), nil
}

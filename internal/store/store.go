package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stevedore-deploy/stevedore/internal/archive"
	"github.com/stevedore-deploy/stevedore/internal/logger"
	"github.com/stevedore-deploy/stevedore/internal/pkgver"
	"github.com/stevedore-deploy/stevedore/internal/transport"
)

// Store reads and writes the on-target directory layout of one application
// namespace. Separate invocations are separate processes, so all state lives
// on the target, never in memory:
//
//	packages/<app>-<version>.tar.gz   uploaded archives
//	dist/<version>/...                extracted versions
//	run/...                           symlinks into the active version
//	.active                           single line: active version string
//	var/...                           persistent, unmanaged by versioning
type Store struct {
	app string
	t   transport.Transport
}

const (
	packagesDir = "packages"
	distDir     = "dist"
	runDir      = "run"
	varDir      = "var"
	activeFile  = ".active"

	// stagingPrefix marks in-flight extraction directories under dist/.
	// They become visible under their final name only via rename.
	stagingPrefix = ".staging-"
)

var (
	// ErrPackageNotFound is returned when a named archive is absent from packages/.
	ErrPackageNotFound = errors.New("package archive not found")
	// ErrNotInstalled is returned when an operation requires dist/<version> and it is absent.
	ErrNotInstalled = errors.New("version is not installed")
)

// New binds a store to an application namespace reachable through t.
func New(t transport.Transport, app string) *Store {
	return &Store{app: app, t: t}
}

// App returns the application name the store is bound to.
func (s *Store) App() string {
	return s.app
}

// EnsureNamespace lazily creates the application namespace. Called by upload;
// every other operation expects the namespace to exist already.
func (s *Store) EnsureNamespace(ctx context.Context) error {
	return s.t.MkdirAll(ctx, packagesDir)
}

// ArchivePath returns the namespace-relative path of a version's archive.
func (s *Store) ArchivePath(version string) string {
	return packagesDir + "/" + archive.FileName(s.app, version)
}

// DistPath returns the namespace-relative install directory of a version.
func (s *Store) DistPath(version string) string {
	return distDir + "/" + version
}

// StagingPath returns the temporary extraction directory for a version.
// It lives under dist/ so the final rename stays within one filesystem.
func (s *Store) StagingPath(version string) string {
	return distDir + "/" + stagingPrefix + version
}

// RunPath returns the namespace-relative run/ directory.
func (s *Store) RunPath() string {
	return runDir
}

// RunEntry returns the namespace-relative path of one run/ symlink.
func (s *Store) RunEntry(name string) string {
	return runDir + "/" + name
}

// RunLinkDest returns the symlink destination for one top-level entry of the
// active version, relative to the run/ directory itself.
func (s *Store) RunLinkDest(version, name string) string {
	return "../" + distDir + "/" + version + "/" + name
}

// VarPath returns the namespace-relative var/ directory.
func (s *Store) VarPath() string {
	return varDir
}

// ActivePath returns the namespace-relative active marker path.
func (s *Store) ActivePath() string {
	return activeFile
}

// ListUploaded returns the versions with an archive in packages/, ascending.
func (s *Store) ListUploaded(ctx context.Context) ([]string, error) {
	names, err := s.listDirIfExists(ctx, packagesDir)
	if err != nil {
		return nil, fmt.Errorf("list uploaded: %w", err)
	}

	var versions []string

	for _, name := range names {
		app, version, err := archive.ParseFileName(name)
		if err != nil || app != s.app {
			continue
		}

		versions = append(versions, version)
	}

	pkgver.Sort(versions)

	return versions, nil
}

// ListInstalled returns the versions with a dist/ directory, ascending.
// In-flight staging directories are not installs.
func (s *Store) ListInstalled(ctx context.Context) ([]string, error) {
	names, err := s.listDirIfExists(ctx, distDir)
	if err != nil {
		return nil, fmt.Errorf("list installed: %w", err)
	}

	var versions []string

	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}

		versions = append(versions, name)
	}

	pkgver.Sort(versions)

	return versions, nil
}

// ActiveVersion reads the .active marker, the single authoritative activation
// state query. Absence means inactive. A marker naming a version without a
// corresponding dist/ directory violates the layout invariant; it is reported
// and treated as inactive (the next deactivate or activate heals it).
func (s *Store) ActiveVersion(ctx context.Context) (string, bool, error) {
	version, present, err := s.RawActiveMarker(ctx)
	if err != nil || !present || version == "" {
		return "", false, err
	}

	installed, err := s.t.Exists(ctx, s.DistPath(version))
	if err != nil {
		return "", false, fmt.Errorf("check dist for active version: %w", err)
	}

	if !installed {
		logger.WarnKV(ctx, "Active marker names a version with no install directory, treating as inactive",
			"app", s.app, "version", version)

		return "", false, nil
	}

	return version, true, nil
}

// RawActiveMarker reads the .active marker without validating it against
// dist/. Used by deactivation to heal inconsistent state.
func (s *Store) RawActiveMarker(ctx context.Context) (string, bool, error) {
	present, err := s.t.Exists(ctx, activeFile)
	if err != nil {
		return "", false, fmt.Errorf("check active marker: %w", err)
	}

	if !present {
		return "", false, nil
	}

	contents, err := s.t.ReadFile(ctx, activeFile)
	if err != nil {
		return "", false, fmt.Errorf("read active marker: %w", err)
	}

	return strings.TrimSpace(string(contents)), true, nil
}

// FindUploaded resolves a requested version against packages/ and returns the
// stored version string ("1.0" finds an archive uploaded as "1.0.0").
func (s *Store) FindUploaded(ctx context.Context, version string) (string, error) {
	uploaded, err := s.ListUploaded(ctx)
	if err != nil {
		return "", err
	}

	for _, v := range uploaded {
		if pkgver.Equal(v, version) {
			return v, nil
		}
	}

	return "", fmt.Errorf("%w: %s version %s", ErrPackageNotFound, s.app, version)
}

// FindInstalled resolves a requested version against dist/ and returns the
// stored version string.
func (s *Store) FindInstalled(ctx context.Context, version string) (string, error) {
	installed, err := s.ListInstalled(ctx)
	if err != nil {
		return "", err
	}

	for _, v := range installed {
		if pkgver.Equal(v, version) {
			return v, nil
		}
	}

	return "", fmt.Errorf("%w: %s version %s", ErrNotInstalled, s.app, version)
}

// listDirIfExists treats a missing directory as empty.
func (s *Store) listDirIfExists(ctx context.Context, rel string) ([]string, error) {
	present, err := s.t.Exists(ctx, rel)
	if err != nil || !present {
		return nil, err
	}

	return s.t.ListDir(ctx, rel)
}

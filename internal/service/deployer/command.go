package deployer

import (
	"context"
	"errors"
	"fmt"

	"github.com/stevedore-deploy/stevedore/internal/hook"
	"github.com/stevedore-deploy/stevedore/internal/logger"
	"github.com/stevedore-deploy/stevedore/internal/pkgver"
	"github.com/stevedore-deploy/stevedore/internal/store"
)

// Install extracts an uploaded archive into its version directory and returns
// the resolved version string. Re-running against an installed version is a
// reported no-op.
func Install(ctx context.Context, opts *Options) (string, error) {
	ctx = logger.WithName(ctx, "install")

	r, err := newRunner(opts)
	if err != nil {
		return "", err
	}

	var version string

	err = r.withLock(ctx, func() error {
		version, err = r.install(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("install %s: %w", opts.AppSpec, err)
	}

	return version, nil
}

// install implements the idempotent extraction protocol: archive presence is
// checked first, an existing install short-circuits, and extraction goes
// through a staging directory renamed into place so a crash never leaves a
// half-populated version under its final name.
func (r *runner) install(ctx context.Context) (string, error) {
	version, err := r.resolveUploaded(ctx)
	if err != nil {
		return "", err
	}

	if installed, err := r.store.FindInstalled(ctx, version); err == nil {
		logger.InfoKV(ctx, "Already installed", "app", r.app, "version", installed)
		return installed, nil
	} else if !errors.Is(err, store.ErrNotInstalled) {
		return "", err
	}

	staging := r.store.StagingPath(version)

	present, err := r.t.Exists(ctx, staging)
	if err != nil {
		return "", fmt.Errorf("check staging: %w", err)
	}

	if present {
		logger.WarnKV(ctx, "Removing staging directory left by an interrupted install",
			"app", r.app, "version", version)

		if err := r.t.RemoveAll(ctx, staging); err != nil {
			return "", fmt.Errorf("clear staging: %w", err)
		}
	}

	if err := r.t.Extract(ctx, r.store.ArchivePath(version), staging); err != nil {
		return "", fmt.Errorf("extract archive: %w", err)
	}

	if err := r.t.Rename(ctx, staging, r.store.DistPath(version)); err != nil {
		return "", fmt.Errorf("promote staging: %w", err)
	}

	logger.InfoKV(ctx, "Installed", "app", r.app, "version", version)

	return version, nil
}

// Activate makes a version the live one: it deactivates whatever is active,
// rebuilds the run/ symlinks, writes the active marker last, and only then
// runs the start and health-check hooks.
func Activate(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "activate")

	r, err := newRunner(opts)
	if err != nil {
		return err
	}

	if err := r.withLock(ctx, func() error { return r.activate(ctx) }); err != nil {
		return fmt.Errorf("activate %s: %w", opts.AppSpec, err)
	}

	return nil
}

func (r *runner) activate(ctx context.Context) error {
	version, err := r.resolveActivationVersion(ctx)
	if err != nil {
		return err
	}

	active, isActive, err := r.store.ActiveVersion(ctx)
	if err != nil {
		return err
	}

	if isActive && pkgver.Equal(active, version) {
		logger.InfoKV(ctx, "Already active", "app", r.app, "version", active)
		return nil
	}

	if isActive {
		logger.InfoKV(ctx, "Deactivating previous version", "app", r.app, "version", active)

		if err := r.teardown(ctx, active, true); err != nil {
			return err
		}
	}

	installed, err := r.store.FindInstalled(ctx, version)
	if err != nil {
		return fmt.Errorf("%w; install it before activating", err)
	}

	if err := r.buildRunDir(ctx, installed); err != nil {
		return err
	}

	if err := r.ensureVarDir(ctx); err != nil {
		return err
	}

	// Commit point: the marker write is the last filesystem mutation of a
	// successful activation. A crash before it leaves stale run/ symlinks
	// with no marker, which reads as inactive and is cleaned up next run.
	if err := r.t.WriteFile(ctx, r.store.ActivePath(), []byte(installed+"\n")); err != nil {
		return fmt.Errorf("write active marker: %w", err)
	}

	logger.InfoKV(ctx, "Activated", "app", r.app, "version", installed)

	if err := r.runStartHook(ctx, installed); err != nil {
		return err
	}

	r.runHealthCheck(ctx, installed)

	return nil
}

// resolveActivationVersion picks the version to activate: the requested one,
// or the latest uploaded, falling back to the latest installed when the
// archives have been cleaned out from under the installs.
func (r *runner) resolveActivationVersion(ctx context.Context) (string, error) {
	version, err := r.resolveUploaded(ctx)
	if err == nil {
		return version, nil
	}

	if r.version != "" {
		// An explicitly requested version may be installed without its
		// archive still being around; activation only needs dist/.
		if installed, ferr := r.store.FindInstalled(ctx, r.version); ferr == nil {
			return installed, nil
		}

		return "", err
	}

	if !errors.Is(err, pkgver.ErrNoVersions) {
		return "", err
	}

	installed, lerr := r.store.ListInstalled(ctx)
	if lerr != nil {
		return "", lerr
	}

	latest, lerr := pkgver.Latest(installed)
	if lerr != nil {
		return "", fmt.Errorf("%s has no uploaded or installed versions: %w", r.app, lerr)
	}

	return latest, nil
}

// buildRunDir regenerates run/ from scratch: stale symlinks from a crashed
// activation are discarded, then one link per top-level entry of the version
// is created.
func (r *runner) buildRunDir(ctx context.Context, version string) error {
	runPath := r.store.RunPath()

	present, err := r.t.Exists(ctx, runPath)
	if err != nil {
		return fmt.Errorf("check run directory: %w", err)
	}

	if present {
		logger.WarnKV(ctx, "Discarding leftover run directory", "app", r.app)

		if err := r.t.RemoveAll(ctx, runPath); err != nil {
			return fmt.Errorf("clear run directory: %w", err)
		}
	}

	if err := r.t.MkdirAll(ctx, runPath); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	entries, err := r.t.ListDir(ctx, r.store.DistPath(version))
	if err != nil {
		return fmt.Errorf("list version contents: %w", err)
	}

	for _, name := range entries {
		if err := r.t.Symlink(ctx, r.store.RunLinkDest(version, name), r.store.RunEntry(name)); err != nil {
			return fmt.Errorf("link %s: %w", name, err)
		}
	}

	return nil
}

// ensureVarDir creates var/ once; it persists across version switches and is
// never recreated.
func (r *runner) ensureVarDir(ctx context.Context) error {
	present, err := r.t.Exists(ctx, r.store.VarPath())
	if err != nil {
		return fmt.Errorf("check var directory: %w", err)
	}

	if present {
		return nil
	}

	if err := r.t.MkdirAll(ctx, r.store.VarPath()); err != nil {
		return fmt.Errorf("create var directory: %w", err)
	}

	return nil
}

// runStartHook runs on-start after the marker is written. A failure is
// surfaced to the caller but the version stays active: the symlinks are
// already correct, and starting is best-effort.
func (r *runner) runStartHook(ctx context.Context, version string) error {
	h, err := r.hooks.Find(ctx, hook.NameStart, r.store.DistPath(version))
	if err != nil {
		return err
	}

	if h == nil {
		return nil
	}

	if err := r.hooks.Run(ctx, h, r.cfg.HookTimeout); err != nil {
		logger.ErrorKV(ctx, "Start hook failed; version remains active",
			"app", r.app, "version", version, "error", err)

		return err
	}

	return nil
}

// runHealthCheck verifies the committed activation. A missing script means
// immediately healthy; an unhealthy or hung one is reported as a warning and
// not reverted, since the activation has already committed.
func (r *runner) runHealthCheck(ctx context.Context, version string) {
	h, err := r.hooks.Find(ctx, hook.NameHealthCheck, r.store.DistPath(version))
	if err != nil {
		logger.WarnKV(ctx, "Unable to look up health check", "app", r.app, "error", err)
		return
	}

	if h == nil {
		logger.DebugKV(ctx, "No health check shipped, considered healthy", "app", r.app, "version", version)
		return
	}

	if err := r.hooks.Run(ctx, h, r.cfg.HealthCheckTimeout); err != nil {
		logger.WarnKV(ctx, "Health check failed after activation",
			"app", r.app, "version", version, "error", err)

		return
	}

	logger.InfoKV(ctx, "Health check passed", "app", r.app, "version", version)
}

// Deactivate takes the application offline: stop hook, then symlink teardown,
// then the marker. Takes a bare application name; re-running when inactive is
// a reported no-op.
func Deactivate(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "deactivate")

	r, err := newRunner(opts)
	if err != nil {
		return err
	}

	if r.version != "" {
		return fmt.Errorf("deactivate %s: %w", opts.AppSpec, errVersionNotAllowed)
	}

	if err := r.withLock(ctx, func() error { return r.deactivate(ctx) }); err != nil {
		return fmt.Errorf("deactivate %s: %w", opts.AppSpec, err)
	}

	return nil
}

func (r *runner) deactivate(ctx context.Context) error {
	version, isActive, err := r.store.ActiveVersion(ctx)
	if err != nil {
		return err
	}

	if !isActive {
		if err := r.healInactiveState(ctx); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Already inactive", "app", r.app)

		return nil
	}

	if err := r.teardown(ctx, version, true); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Deactivated", "app", r.app, "version", version)

	return nil
}

// healInactiveState clears leftovers that violate the layout invariant while
// the application reads as inactive: a marker pointing at a missing install,
// or run/ symlinks with no marker. Hooks do not run; there is nothing sound
// to stop.
func (r *runner) healInactiveState(ctx context.Context) error {
	_, markerPresent, err := r.store.RawActiveMarker(ctx)
	if err != nil {
		return err
	}

	runPresent, err := r.t.Exists(ctx, r.store.RunPath())
	if err != nil {
		return fmt.Errorf("check run directory: %w", err)
	}

	if !markerPresent && !runPresent {
		return nil
	}

	logger.WarnKV(ctx, "Clearing inconsistent activation leftovers", "app", r.app)

	return r.teardown(ctx, "", false)
}

// Uninstall removes a version's install directory, deactivating it first when
// it is the active one. The uploaded archive is untouched.
func Uninstall(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "uninstall")

	r, err := newRunner(opts)
	if err != nil {
		return err
	}

	if err := r.withLock(ctx, func() error {
		_, err := r.uninstall(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("uninstall %s: %w", opts.AppSpec, err)
	}

	return nil
}

// uninstall reports whether it removed anything; remove builds on this for
// its cascade.
func (r *runner) uninstall(ctx context.Context) (bool, error) {
	version := r.version

	if version == "" {
		installed, err := r.store.ListInstalled(ctx)
		if err != nil {
			return false, err
		}

		latest, err := pkgver.Latest(installed)
		if err != nil {
			logger.InfoKV(ctx, "Nothing installed, nothing to uninstall", "app", r.app)
			return false, nil
		}

		version = latest
	}

	installed, err := r.store.FindInstalled(ctx, version)
	if errors.Is(err, store.ErrNotInstalled) {
		logger.InfoKV(ctx, "Not installed, nothing to uninstall", "app", r.app, "version", version)
		return false, nil
	}

	if err != nil {
		return false, err
	}

	active, isActive, err := r.store.ActiveVersion(ctx)
	if err != nil {
		return false, err
	}

	if isActive && pkgver.Equal(active, installed) {
		logger.InfoKV(ctx, "Version is active, deactivating before uninstall",
			"app", r.app, "version", installed)

		if err := r.teardown(ctx, installed, true); err != nil {
			return false, err
		}
	}

	if err := r.t.RemoveAll(ctx, r.store.DistPath(installed)); err != nil {
		return false, fmt.Errorf("remove install directory: %w", err)
	}

	logger.InfoKV(ctx, "Uninstalled", "app", r.app, "version", installed)

	return true, nil
}

// Remove deletes a version entirely: it cascades through uninstall (and
// through deactivate when needed), then deletes the archive from packages/.
func Remove(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "remove")

	r, err := newRunner(opts)
	if err != nil {
		return err
	}

	if err := r.withLock(ctx, func() error { return r.remove(ctx) }); err != nil {
		return fmt.Errorf("remove %s: %w", opts.AppSpec, err)
	}

	return nil
}

func (r *runner) remove(ctx context.Context) error {
	version, err := r.resolveRemovalVersion(ctx)
	if err != nil {
		return err
	}

	// Cascade: not-installed is enforced by uninstalling, not by rejecting.
	sub := *r
	sub.version = version

	if _, err := sub.uninstall(ctx); err != nil {
		return err
	}

	uploaded, err := r.store.FindUploaded(ctx, version)
	if errors.Is(err, store.ErrPackageNotFound) {
		logger.InfoKV(ctx, "No archive uploaded, nothing left to remove", "app", r.app, "version", version)
		return nil
	}

	if err != nil {
		return err
	}

	if err := r.t.RemoveAll(ctx, r.store.ArchivePath(uploaded)); err != nil {
		return fmt.Errorf("remove archive: %w", err)
	}

	logger.InfoKV(ctx, "Removed", "app", r.app, "version", uploaded)

	return nil
}

// resolveRemovalVersion picks the version to remove: the requested one, or
// the latest known to the namespace (uploaded first, installed as fallback).
func (r *runner) resolveRemovalVersion(ctx context.Context) (string, error) {
	if r.version != "" {
		return r.version, nil
	}

	uploaded, err := r.store.ListUploaded(ctx)
	if err != nil {
		return "", err
	}

	if latest, err := pkgver.Latest(uploaded); err == nil {
		return latest, nil
	}

	installed, err := r.store.ListInstalled(ctx)
	if err != nil {
		return "", err
	}

	latest, err := pkgver.Latest(installed)
	if err != nil {
		return "", fmt.Errorf("%s has no uploaded or installed versions: %w", r.app, err)
	}

	return latest, nil
}

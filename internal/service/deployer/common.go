package deployer

import (
	"context"
	"errors"
	"fmt"

	"github.com/stevedore-deploy/stevedore/internal/config"
	"github.com/stevedore-deploy/stevedore/internal/hook"
	"github.com/stevedore-deploy/stevedore/internal/logger"
	"github.com/stevedore-deploy/stevedore/internal/pkgver"
	"github.com/stevedore-deploy/stevedore/internal/store"
	"github.com/stevedore-deploy/stevedore/internal/target"
	"github.com/stevedore-deploy/stevedore/internal/transport"
)

// Options are the inputs shared by every lifecycle verb.
type Options struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// TargetSpec is the deployment target ("[host]:path"); falls back to the
	// configured default target when empty.
	TargetSpec string
	// AppSpec names the application, optionally version-qualified
	// ("app" or "app:version").
	AppSpec string
}

var (
	errNoTarget = errors.New("no target given and no default target configured")
	// errVersionNotAllowed rejects version-qualified specs on verbs that
	// operate on the application as a whole.
	errVersionNotAllowed = errors.New("this command takes an application name without a version")
)

// runner holds the resolved collaborators for a single lifecycle invocation.
// It is intentionally unexported; callers go through the verb entry points.
type runner struct {
	cfg     *config.Config
	tgt     target.Target
	app     string
	version string // requested version, empty means "resolve latest"
	t       transport.Transport
	store   *store.Store
	hooks   *hook.Runner
}

// newRunner resolves configuration, target and application spec, and binds
// the transport, store and hook runner for the invocation.
func newRunner(opts *Options) (*runner, error) {
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	spec := opts.TargetSpec
	if spec == "" {
		spec = cfg.DefaultTarget
	}

	if spec == "" {
		return nil, errNoTarget
	}

	tgt, err := target.Resolve(spec)
	if err != nil {
		return nil, err
	}

	app, version, err := target.ParseAppSpec(opts.AppSpec)
	if err != nil {
		return nil, err
	}

	t := transport.New(tgt, app)

	return &runner{
		cfg:     cfg,
		tgt:     tgt,
		app:     app,
		version: version,
		t:       t,
		store:   store.New(t, app),
		hooks:   hook.NewRunner(t),
	}, nil
}

// withLock runs fn while holding the namespace write lock.
func (r *runner) withLock(ctx context.Context, fn func() error) error {
	if err := r.store.Lock(ctx); err != nil {
		return err
	}

	defer r.store.Unlock(ctx)

	return fn()
}

// resolveUploaded resolves the requested version against packages/,
// defaulting to the latest uploaded version.
func (r *runner) resolveUploaded(ctx context.Context) (string, error) {
	if r.version != "" {
		return r.store.FindUploaded(ctx, r.version)
	}

	uploaded, err := r.store.ListUploaded(ctx)
	if err != nil {
		return "", err
	}

	latest, err := pkgver.Latest(uploaded)
	if err != nil {
		return "", fmt.Errorf("%s has no uploaded versions: %w", r.app, err)
	}

	return latest, nil
}

// teardown performs the deactivation sequence for the given version: stop
// hook first (it may need the still-valid run/ symlinks to know what to
// stop), then symlink teardown, then the marker, removed last so a crash
// mid-teardown is observed as still-active and re-runnable.
func (r *runner) teardown(ctx context.Context, version string, withHooks bool) error {
	if withHooks {
		r.runStopHook(ctx, version)
	}

	runPath := r.store.RunPath()

	present, err := r.t.Exists(ctx, runPath)
	if err != nil {
		return fmt.Errorf("check run directory: %w", err)
	}

	if present {
		entries, err := r.t.ListDir(ctx, runPath)
		if err != nil {
			return fmt.Errorf("list run directory: %w", err)
		}

		for _, name := range entries {
			if err := r.t.RemoveAll(ctx, r.store.RunEntry(name)); err != nil {
				return fmt.Errorf("remove run entry %s: %w", name, err)
			}
		}

		if err := r.t.RemoveAll(ctx, runPath); err != nil {
			return fmt.Errorf("remove run directory: %w", err)
		}
	}

	if err := r.t.RemoveAll(ctx, r.store.ActivePath()); err != nil {
		return fmt.Errorf("remove active marker: %w", err)
	}

	return nil
}

// runStopHook invokes on-stop and reports failures without blocking the
// teardown: cleanup must proceed even when the stop hook errors, otherwise
// the namespace gets stuck half-active.
func (r *runner) runStopHook(ctx context.Context, version string) {
	h, err := r.hooks.Find(ctx, hook.NameStop, r.store.DistPath(version))
	if err != nil {
		logger.WarnKV(ctx, "Unable to look up stop hook", "app", r.app, "error", err)
		return
	}

	if h == nil {
		return
	}

	if err := r.hooks.Run(ctx, h, r.cfg.HookTimeout); err != nil {
		logger.ErrorKV(ctx, "Stop hook failed, proceeding with teardown",
			"app", r.app, "version", version, "error", err)
	}
}

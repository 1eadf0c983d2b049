package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/stevedore-deploy/stevedore/internal/config"
	"github.com/stevedore-deploy/stevedore/internal/logger"
	"github.com/stevedore-deploy/stevedore/internal/store"
	"github.com/stevedore-deploy/stevedore/internal/target"
	"github.com/stevedore-deploy/stevedore/internal/transport"
)

var errNoTarget = errors.New("no target given and no default target configured")

// Options are inputs for the status entry point.
type Options struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// TargetSpec is the deployment target ("[host]:path"); falls back to the
	// configured default target when empty.
	TargetSpec string
	// App is the application name (no version qualifier).
	App string
}

// Run reports the namespace state of one application: uploaded versions,
// installed versions and the active one. Status is a read; it takes no lock.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "status")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	spec := opts.TargetSpec
	if spec == "" {
		spec = cfg.DefaultTarget
	}

	if spec == "" {
		return errNoTarget
	}

	tgt, err := target.Resolve(spec)
	if err != nil {
		return err
	}

	st := store.New(transport.New(tgt, opts.App), opts.App)

	uploaded, err := st.ListUploaded(ctx)
	if err != nil {
		return fmt.Errorf("status %s: %w", opts.App, err)
	}

	installed, err := st.ListInstalled(ctx)
	if err != nil {
		return fmt.Errorf("status %s: %w", opts.App, err)
	}

	active, isActive, err := st.ActiveVersion(ctx)
	if err != nil {
		return fmt.Errorf("status %s: %w", opts.App, err)
	}

	if !isActive {
		active = "none"
	}

	logger.InfoKV(ctx, "Application status",
		"app", opts.App,
		"target", tgt.String(),
		"uploaded", strings.Join(uploaded, ", "),
		"installed", strings.Join(installed, ", "),
		"active", active)

	if !tgt.IsRemote() {
		reportLocalProcesses(ctx, opts.App)
	}

	return nil
}

// reportLocalProcesses scans the local process table for anything matching
// the application name. Best-effort and informational: the supervisor, not
// stevedore, owns the processes.
func reportLocalProcesses(ctx context.Context, app string) {
	processes, err := ps.Processes()
	if err != nil {
		logger.DebugKV(ctx, "Unable to inspect local processes", "error", err)
		return
	}

	var pids []int

	for _, process := range processes {
		if strings.Contains(process.Executable(), app) {
			pids = append(pids, process.Pid())
		}
	}

	if len(pids) == 0 {
		logger.InfoKV(ctx, "No matching local processes", "app", app)
		return
	}

	logger.InfoKV(ctx, "Matching local processes", "app", app, "pids", fmt.Sprint(pids))
}

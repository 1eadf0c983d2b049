package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stevedore-deploy/stevedore/internal/archive"
	"github.com/stevedore-deploy/stevedore/internal/config"
	"github.com/stevedore-deploy/stevedore/internal/logger"
	"github.com/stevedore-deploy/stevedore/internal/store"
	"github.com/stevedore-deploy/stevedore/internal/target"
	"github.com/stevedore-deploy/stevedore/internal/transport"
)

// CreateOptions are inputs for the create entry point.
type CreateOptions struct {
	// SourceDir is the application source tree to package.
	SourceDir string
	// Output is an optional archive path; defaults to <name>-<version>.tar.gz
	// in the working directory.
	Output string
	// Name overrides the application name from the source manifest.
	Name string
	// Version overrides the version from the source manifest.
	Version string
}

// UploadOptions are inputs for the upload entry point.
type UploadOptions struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// TargetSpec is the deployment target ("[host]:path"); falls back to the
	// configured default target when empty.
	TargetSpec string
	// ArchiveFile is the archive produced by create.
	ArchiveFile string
}

var (
	errNoTarget   = errors.New("no target given and no default target configured")
	errUnnamed    = errors.New("application name and version are required (deploy.yaml in the source directory, or --name/--app-version)")
	errNotRegular = errors.New("archive is not a regular file")
)

// RunCreate packages an application source directory into a versioned
// archive and returns its path.
func RunCreate(ctx context.Context, opts *CreateOptions) (string, error) {
	ctx = logger.WithName(ctx, "create")

	name, version := opts.Name, opts.Version

	manifest, err := archive.LoadManifest(opts.SourceDir)

	switch {
	case err == nil:
		if name == "" {
			name = manifest.Name
		}

		if version == "" {
			version = manifest.Version
		}
	case !errors.Is(err, archive.ErrNoManifest):
		return "", fmt.Errorf("create: %w", err)
	}

	if name == "" || version == "" {
		return "", fmt.Errorf("create: %w", errUnnamed)
	}

	out := opts.Output
	if out == "" {
		out = archive.FileName(name, version)
	}

	if err := archive.Build(opts.SourceDir, out); err != nil {
		return "", fmt.Errorf("create %s:%s: %w", name, version, err)
	}

	logger.InfoKV(ctx, "Created package archive", "app", name, "version", version, "path", out)
	logger.Infof(ctx, "Next: upload it with `stevedore upload --target <host>:<path> %s`", out)

	return out, nil
}

// RunUpload copies an archive into a target's packages/ directory, creating
// the application namespace on first use. Re-uploading an archive that is
// already there is a reported no-op.
func RunUpload(ctx context.Context, opts *UploadOptions) error {
	ctx = logger.WithName(ctx, "upload")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	info, err := os.Stat(opts.ArchiveFile)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("upload %s: %w", opts.ArchiveFile, errNotRegular)
	}

	app, version, err := archive.ParseFileName(filepath.Base(opts.ArchiveFile))
	if err != nil {
		return fmt.Errorf("upload: %w", err)
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

	t := transport.New(tgt, app)
	st := store.New(t, app)

	if err := st.EnsureNamespace(ctx); err != nil {
		return fmt.Errorf("create namespace for %s: %w", app, err)
	}

	if err := st.Lock(ctx); err != nil {
		return err
	}

	defer st.Unlock(ctx)

	rel := st.ArchivePath(version)

	present, err := t.Exists(ctx, rel)
	if err != nil {
		return fmt.Errorf("check archive on target: %w", err)
	}

	if present {
		logger.InfoKV(ctx, "Already uploaded", "app", app, "version", version, "target", tgt.String())
		return nil
	}

	if err := t.PutFile(ctx, opts.ArchiveFile, rel); err != nil {
		return fmt.Errorf("upload %s: %w", opts.ArchiveFile, err)
	}

	logger.InfoKV(ctx, "Uploaded", "app", app, "version", version, "target", tgt.String())

	return nil
}

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stevedore-deploy/stevedore/internal/service/packager"
)

const testApp = "billing-api"

// hookLog is written by the test hook scripts into the application namespace
// (hooks run with the namespace as working directory).
const hookLog = "hook-invocations.log"

// startHookBody records an on-start invocation in the hook log.
func startHookBody(version string) string {
	return "echo \"on-start " + version + "\" >> " + hookLog + "\n"
}

// stopHookBody records an on-stop invocation in the hook log.
func stopHookBody(version string) string {
	return "echo \"on-stop " + version + "\" >> " + hookLog + "\n"
}

// makeSourceTree lays out a minimal application source directory: a manifest,
// a payload file, and start/stop hook scripts that record their invocations.
func makeSourceTree(t *testing.T, version string) string {
	t.Helper()

	return makeSourceTreeHooks(t, version, startHookBody(version), stopHookBody(version))
}

// makeSourceTreeHooks is makeSourceTree with explicit hook script bodies
// (shell fragments placed after the shebang line).
func makeSourceTreeHooks(t *testing.T, version, startBody, stopBody string) string {
	t.Helper()

	dir := t.TempDir()

	manifest := "name: " + testApp + "\nversion: " + version + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy.yaml"), []byte(manifest), 0o600))

	payload := "payload of " + version + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload.txt"), []byte(payload), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "hooks"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hooks", "on-start"), []byte("#!/bin/sh\n"+startBody), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hooks", "on-stop"), []byte("#!/bin/sh\n"+stopBody), 0o755))

	return dir
}

// packAndUpload runs create and upload for one version against a local target
// root and returns the archive path.
func packAndUpload(t *testing.T, ctx context.Context, root, version string) string {
	t.Helper()

	return uploadTree(t, ctx, root, makeSourceTree(t, version), version)
}

// uploadTree packages an existing source tree and uploads the archive to the
// local target root.
func uploadTree(t *testing.T, ctx context.Context, root, source, version string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), testApp+"-"+version+".tar.gz")

	archivePath, err := packager.RunCreate(ctx, &packager.CreateOptions{
		SourceDir: source,
		Output:    out,
	})
	require.NoError(t, err)

	err = packager.RunUpload(ctx, &packager.UploadOptions{
		TargetSpec:  ":" + root,
		ArchiveFile: archivePath,
	})
	require.NoError(t, err)

	return archivePath
}

// namespacePath joins path elements under the application namespace on the
// target root.
func namespacePath(root string, elem ...string) string {
	return filepath.Join(append([]string{root, testApp}, elem...)...)
}

// readHookLog returns the recorded hook invocations, or "" when no hook has
// run yet.
func readHookLog(t *testing.T, root string) string {
	t.Helper()

	contents, err := os.ReadFile(namespacePath(root, hookLog))
	if os.IsNotExist(err) {
		return ""
	}

	require.NoError(t, err)

	return string(contents)
}

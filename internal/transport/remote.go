package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/stevedore-deploy/stevedore/internal/target"
)

// Remote operates on a target reached through an SSH remote shell. Files
// travel over scp, everything else is plain POSIX tooling executed on the
// other side.
type Remote struct {
	host string
	base string
}

// sshConnectionExitCode is what ssh itself exits with when the channel could
// not be established, as opposed to the remote command's own exit code.
const sshConnectionExitCode = 255

// NewRemote binds a remote transport to an application namespace.
func NewRemote(tgt target.Target, app string) *Remote {
	return &Remote{
		host: tgt.Host,
		base: path.Join(tgt.Root, app),
	}
}

// Base returns the absolute application namespace path on the remote host.
func (r *Remote) Base() string {
	return r.base
}

func (r *Remote) abs(rel string) string {
	return path.Join(r.base, rel)
}

// shellQuote makes a string safe for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// run executes a command line on the remote host and returns its exit code
// together with captured stdout and stderr. A broken channel (ssh exit 255
// or a spawn failure) is reported as a transport *Error.
func (r *Remote) run(ctx context.Context, op, command string, stdin io.Reader) (int, string, string, error) {
	cmd := exec.CommandContext(ctx, "ssh", r.host, command) //nolint:gosec // Host comes from the resolved target.
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() != sshConnectionExitCode {
			return exitErr.ExitCode(), stdout.String(), stderr.String(), nil
		}

		return -1, stdout.String(), stderr.String(), &Error{
			Op:     op,
			Target: r.host + ":" + r.base,
			Err:    fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	return 0, stdout.String(), stderr.String(), nil
}

// mustSucceed runs a remote command and treats any non-zero exit as an
// error, carrying the remote diagnostic.
func (r *Remote) mustSucceed(ctx context.Context, op, command string, stdin io.Reader) error {
	code, _, stderr, err := r.run(ctx, op, command, stdin)
	if err != nil {
		return err
	}

	if code != 0 {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return fmt.Errorf("remote %s exited with code %d: %s", op, code, msg)
		}

		return fmt.Errorf("remote %s exited with code %d", op, code)
	}

	return nil
}

// remotePathError classifies a failed remote filesystem command by its
// stderr: a missing path maps to os.ErrNotExist, everything else (permission
// denied, I/O errors) keeps the remote diagnostic verbatim.
func remotePathError(op, rel string, code int, stderr string) error {
	msg := strings.TrimSpace(stderr)
	if strings.Contains(msg, "No such file or directory") {
		return fmt.Errorf("%s %s: %w", op, rel, os.ErrNotExist)
	}

	if msg == "" {
		return fmt.Errorf("%s %s: exit code %d", op, rel, code)
	}

	return fmt.Errorf("%s %s: %s", op, rel, msg)
}

// PutFile copies a local file into the remote namespace via scp.
func (r *Remote) PutFile(ctx context.Context, localPath, rel string) error {
	dest := r.abs(rel)
	if err := r.mustSucceed(ctx, "put", "mkdir -p "+shellQuote(path.Dir(dest)), nil); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "scp", "-q", localPath, r.host+":"+dest) //nolint:gosec // Host comes from the resolved target.

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &Error{
			Op:     "put",
			Target: r.host + ":" + dest,
			Err:    fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	return nil
}

// ReadFile returns the contents of a remote file.
func (r *Remote) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	code, out, stderr, err := r.run(ctx, "read", "cat "+shellQuote(r.abs(rel)), nil)
	if err != nil {
		return nil, err
	}

	if code != 0 {
		return nil, remotePathError("read", rel, code, stderr)
	}

	return []byte(out), nil
}

// WriteFile replaces the contents of a remote file.
func (r *Remote) WriteFile(ctx context.Context, rel string, data []byte) error {
	dest := r.abs(rel)
	command := "mkdir -p " + shellQuote(path.Dir(dest)) + " && cat > " + shellQuote(dest)

	return r.mustSucceed(ctx, "write", command, bytes.NewReader(data))
}

// CreateExclusive creates a remote file only if nothing is at the path yet.
// The shell's noclobber mode makes the check and the create one atomic step.
func (r *Remote) CreateExclusive(ctx context.Context, rel string, data []byte) error {
	dest := r.abs(rel)
	command := "mkdir -p " + shellQuote(path.Dir(dest)) + " && set -C && cat > " + shellQuote(dest)

	code, _, _, err := r.run(ctx, "create", command, bytes.NewReader(data))
	if err != nil {
		return err
	}

	if code != 0 {
		return fmt.Errorf("create %s: %w", rel, os.ErrExist)
	}

	return nil
}

// Exists reports whether a remote path exists; dangling symlinks count.
func (r *Remote) Exists(ctx context.Context, rel string) (bool, error) {
	code, _, _, err := r.run(ctx, "exists", "test -e "+shellQuote(r.abs(rel))+" -o -L "+shellQuote(r.abs(rel)), nil)
	if err != nil {
		return false, err
	}

	return code == 0, nil
}

// ListDir returns the entry names of a remote directory.
func (r *Remote) ListDir(ctx context.Context, rel string) ([]string, error) {
	code, out, stderr, err := r.run(ctx, "list", "ls -1A "+shellQuote(r.abs(rel)), nil)
	if err != nil {
		return nil, err
	}

	if code != 0 {
		return nil, remotePathError("list", rel, code, stderr)
	}

	var names []string

	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}

	return names, nil
}

// MkdirAll creates a remote directory and any missing parents.
func (r *Remote) MkdirAll(ctx context.Context, rel string) error {
	return r.mustSucceed(ctx, "mkdir", "mkdir -p "+shellQuote(r.abs(rel)), nil)
}

// RemoveAll deletes a remote path and anything below it.
func (r *Remote) RemoveAll(ctx context.Context, rel string) error {
	return r.mustSucceed(ctx, "remove", "rm -rf "+shellQuote(r.abs(rel)), nil)
}

// Rename moves a remote path within the namespace.
func (r *Remote) Rename(ctx context.Context, oldRel, newRel string) error {
	return r.mustSucceed(ctx, "rename", "mv "+shellQuote(r.abs(oldRel))+" "+shellQuote(r.abs(newRel)), nil)
}

// Symlink creates a remote symbolic link at linkRel pointing to dest.
func (r *Remote) Symlink(ctx context.Context, dest, linkRel string) error {
	return r.mustSucceed(ctx, "symlink", "ln -sfn "+shellQuote(dest)+" "+shellQuote(r.abs(linkRel)), nil)
}

// Extract unpacks a remote archive with the remote host's tar.
func (r *Remote) Extract(ctx context.Context, archiveRel, destRel string) error {
	dest := r.abs(destRel)
	command := "mkdir -p " + shellQuote(dest) + " && tar -xzf " + shellQuote(r.abs(archiveRel)) + " -C " + shellQuote(dest)

	return r.mustSucceed(ctx, "extract", command, nil)
}

// RunScript executes a script on the remote host and returns its exit code
// and combined output.
func (r *Remote) RunScript(ctx context.Context, scriptRel string, args []string, cwdRel string) (int, string, error) {
	parts := []string{
		"cd " + shellQuote(r.abs(cwdRel)) + " &&",
		shellQuote(r.abs(scriptRel)),
	}
	for _, arg := range args {
		parts = append(parts, shellQuote(arg))
	}

	command := strings.Join(parts, " ") + " 2>&1"

	code, out, _, err := r.run(ctx, "script", command, nil)

	return code, out, err
}

package hook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stevedore-deploy/stevedore/internal/transport"
)

// Lifecycle hook script names, looked up at well-known locations.
const (
	// NameStart runs after an activation commits.
	NameStart = "on-start"
	// NameStop runs before a deactivation tears down symlinks.
	NameStop = "on-stop"
	// NameHealthCheck verifies a committed activation.
	NameHealthCheck = "health-check"
)

// Hook is a lifecycle script found on the target. Absence of a hook is not an
// error: lookups return a nil *Hook, a tagged absence the caller branches on.
type Hook struct {
	// Name is the lifecycle point (on-start, on-stop, health-check).
	Name string
	// Path is the namespace-relative script location.
	Path string
}

// FailedError reports a hook that ran and exited non-zero. Whether this
// aborts the surrounding transition is the caller's decision.
type FailedError struct {
	// Name of the hook that failed.
	Name string
	// ExitCode the script exited with.
	ExitCode int
	// Output captured from the script (stdout and stderr combined).
	Output string
}

// Error implements the error interface.
func (e *FailedError) Error() string {
	msg := fmt.Sprintf("hook %s exited with code %d", e.Name, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}

	return msg
}

// TimeoutError reports a hook that exceeded its time budget. Kept distinct
// from FailedError so a hung script is not mistaken for an unhealthy one.
type TimeoutError struct {
	// Name of the hook that hung.
	Name string
	// Timeout that was exceeded.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("hook %s did not finish within %s", e.Name, e.Timeout)
}

// Runner locates and invokes lifecycle hooks through a transport.
type Runner struct {
	t transport.Transport
}

// NewRunner returns a hook runner bound to one application namespace.
func NewRunner(t transport.Transport) *Runner {
	return &Runner{t: t}
}

// Find looks a hook up at its well-known locations. The hook shipped inside
// the version being acted on wins over one placed in the namespace root.
// A nil result with no error means the hook does not exist.
func (r *Runner) Find(ctx context.Context, name, distPath string) (*Hook, error) {
	candidates := []string{
		distPath + "/hooks/" + name,
		distPath + "/" + name,
		name,
	}

	for _, path := range candidates {
		present, err := r.t.Exists(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("look up hook %s: %w", name, err)
		}

		if present {
			return &Hook{Name: name, Path: path}, nil
		}
	}

	return nil, nil //nolint:nilnil // Tagged absence: a missing hook is a valid lookup result.
}

// Run invokes a hook with the application namespace as working directory,
// bounded by timeout when positive. Exit code zero is success; non-zero
// yields a *FailedError, an exceeded budget a *TimeoutError.
func (r *Runner) Run(ctx context.Context, h *Hook, timeout time.Duration) error {
	runCtx := ctx

	if timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	code, output, err := r.t.RunScript(runCtx, h.Path, nil, ".")

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Name: h.Name, Timeout: timeout}
	}

	// An operator interrupt is a cancellation, not a script failure.
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("hook %s interrupted: %w", h.Name, cerr)
	}

	if err != nil {
		return fmt.Errorf("run hook %s: %w", h.Name, err)
	}

	if code != 0 {
		return &FailedError{Name: h.Name, ExitCode: code, Output: output}
	}

	return nil
}

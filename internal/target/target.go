package target

import (
	"errors"
	"fmt"
	"strings"
)

// Target is a resolved deployment destination: a root directory on the local
// machine, or a root directory on a remote host. Immutable once resolved;
// all operations against a target are root-relative.
type Target struct {
	// Host is the remote hostname (or user@host). Empty means local.
	Host string
	// Root is the directory under which application namespaces live.
	Root string
}

var (
	// ErrInvalidTarget is returned for malformed target specifications.
	ErrInvalidTarget = errors.New("invalid target spec")
	// ErrInvalidAppSpec is returned for malformed application specifications.
	ErrInvalidAppSpec = errors.New("invalid application spec")
)

// Resolve parses a target specification of the form "[host]:path".
// An empty host segment denotes a local target rooted at path.
func Resolve(spec string) (Target, error) {
	idx := strings.Index(spec, ":")
	if idx < 0 {
		return Target{}, fmt.Errorf("%w: %q (want \"[host]:path\")", ErrInvalidTarget, spec)
	}

	t := Target{
		Host: spec[:idx],
		Root: spec[idx+1:],
	}
	if t.Root == "" {
		return Target{}, fmt.Errorf("%w: %q (empty path)", ErrInvalidTarget, spec)
	}

	return t, nil
}

// IsRemote reports whether the target lives on another host.
func (t Target) IsRemote() bool {
	return t.Host != ""
}

// String renders the target back in "[host]:path" form.
func (t Target) String() string {
	return t.Host + ":" + t.Root
}

// ParseAppSpec splits an application specification into its name and optional
// version. Accepted forms are "app" and "app:version".
func ParseAppSpec(spec string) (app, version string, err error) {
	app, version, found := strings.Cut(spec, ":")
	if app == "" || (found && version == "") {
		return "", "", fmt.Errorf("%w: %q (want \"app\" or \"app:version\")", ErrInvalidAppSpec, spec)
	}

	if strings.Contains(version, ":") {
		return "", "", fmt.Errorf("%w: %q (too many separators)", ErrInvalidAppSpec, spec)
	}

	return app, version, nil
}

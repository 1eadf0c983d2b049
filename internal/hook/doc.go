// Package hook locates and invokes optional lifecycle scripts (on-start,
// on-stop, health-check) shipped inside packages. A missing hook is a tagged
// absence, not an error; a failing hook carries its name, exit code and
// captured output so callers can decide what the failure means.
package hook

// Package deployer implements the package lifecycle state machine: install,
// activate, deactivate, uninstall and remove, coordinated purely through
// filesystem state on the target.
//
// Every destructive step is preceded by the state check that makes it safe,
// and every transition writes its commit marker last, so the system recovers
// from a crash by re-running the same command rather than needing a separate
// repair procedure. Idempotent no-ops ("already installed", "already active",
// "already inactive") are successful outcomes and are reported as such.
package deployer

// Package checker reports the deployment state of an application on a target:
// uploaded and installed versions, the active version, and (for local
// targets) a best-effort view of matching processes.
package checker

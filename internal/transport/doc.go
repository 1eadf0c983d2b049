// Package transport abstracts "local" vs "remote" execution behind one
// interface of filesystem and script primitives. Local targets use direct
// filesystem calls; remote targets go through an SSH shell channel (scp for
// file copies, POSIX tooling for everything else).
//
// Channel failures surface as *Error, kept distinct from filesystem errors
// on the target and from non-zero script exit codes.
package transport

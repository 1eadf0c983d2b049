// Package store implements the on-target package store: the per-application
// directory layout recording uploaded archives, extracted versions and the
// active marker, plus the advisory lock serializing write operations.
//
// The filesystem is the database. Every read goes back to the target; nothing
// is cached across operations within one invocation.
package store

// Package store is the durable local mirror of in-progress exam state. It
// outlives the in-memory containers across process restarts and is the resume
// source of truth until the first successful server fetch completes.
//
// The contract is deliberately forgiving: writes never return errors to
// callers — a storage failure mid-exam must degrade resume capability, not
// interrupt the student. Failed writes are logged and swallowed.
package store

import "context"

// Store is a slice-granular key-value store. Values are whole-slice
// overwrites (map-replace, not partial patch), so concurrent triggers
// converge on last-writer-wins without locking.
type Store interface {
	// Write persists value under key, JSON-encoded. Failures are swallowed.
	Write(ctx context.Context, key string, value any)

	// Read decodes the last written value into dest. Returns false when the
	// key is absent or unreadable.
	Read(ctx context.Context, key string, dest any) bool

	// Clear removes every key under prefix. Used only after a confirmed
	// server submission.
	Clear(ctx context.Context, prefix string)
}

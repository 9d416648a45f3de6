// Package storage defines the key-value contract the token store persists
// through. Durable backends survive restarts; ephemeral ones live for a
// single session.
package storage

import "context"

// KV is a minimal string key-value store.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// SetMany writes every entry or none of them.
	SetMany(ctx context.Context, entries map[string]string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

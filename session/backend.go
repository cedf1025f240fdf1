package session

import "context"

// Backend is the key-value persistence under a [Store].
//
// Put must apply all entries or none. Missing keys are absent from the map
// returned by Get and are not an error. Delete of a missing key is a no-op.
type Backend interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Put(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	// Durable reports whether data survives a process restart.
	Durable() bool
}

// Replacer is implemented by backends whose keys expire. Replace overwrites
// values without resetting their remaining lifetime.
type Replacer interface {
	Replace(ctx context.Context, entries map[string]string) error
}

package opts

import "context"

// Entry is one raw record held by a Store. Key is the key exactly as
// persisted, which may predate name canonicalisation.
type Entry struct {
	Key   string
	Value Value
}

// Store persists option overrides. Only values that differ from their default
// are written; presence of an entry means the option was explicitly set.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, name Name) (Value, bool, error)
	Put(ctx context.Context, name Name, value Value) error
	// Delete removes key if present. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// All returns every persisted entry under its raw key.
	All(ctx context.Context) ([]Entry, error)
	Close() error
}

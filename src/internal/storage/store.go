package storage

import "context"

// Entry is a single key/value pair returned by prefix listing.
type Entry struct {
	Key   string
	Value []byte
}

// Store is the keyed persistence layer shared by the chat and web paths.
// Get returns models.ErrKeyNotFound for absent keys; Delete is idempotent.
// Update performs an atomic read-modify-write of a single key: fn receives
// the current value (nil when absent) and returns the value to write.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Entry, error)
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}

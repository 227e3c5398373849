// Package store persists cached lookup results in a single logical
// key-value table, backed by SQLite or Postgres.
package store

import (
	"context"
	"time"
)

// Entry is one cached record: an opaque JSON payload plus an auxiliary
// metadata blob.
type Entry struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	Metadata  []byte    `json:"metadata"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence interface for the lookup cache. Entries are
// never deleted by the core; deletion is an operational concern.
type Store interface {
	// Get returns the entry for an exact key, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put upserts an entry. Concurrent writers racing on the same key are
	// safe: the payload is a deterministic re-fetch, last writer wins.
	Put(ctx context.Context, key string, payload, metadata []byte) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

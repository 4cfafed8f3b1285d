// Package cache holds raw external responses keyed by the query that
// produced them.
package cache

import (
	"context"
	"time"
)

// Entry is a stored response and the time it was stored. Freshness is
// judged by the reader against StoredAt.
type Entry struct {
	Value    []byte    `json:"value"`
	StoredAt time.Time `json:"storedAt"`
}

type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Len(ctx context.Context) (int, error)
}

package db

import (
	"context"
	"time"
)

// Store is the database facade used by the Redis-backed stats recorder.
type Store interface {
	Pinger
	KVStore
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides integer counters.
type KVStore interface {
	GetInt64(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// ListStore provides capped list operations.
type ListStore interface {
	// LPushTrim prepends value and trims the list to maxLen elements in one round-trip.
	LPushTrim(ctx context.Context, key string, value []byte, maxLen int) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

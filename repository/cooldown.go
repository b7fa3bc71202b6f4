package repository

import (
	"context"
	"time"
)

// CooldownRepository grants at most one acquisition per key per window.
type CooldownRepository interface {
	// Acquire returns true when the key was free and is now held for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Remaining reports how long the key stays held.
	Remaining(ctx context.Context, key string) (time.Duration, error)
	// Release frees the key before its window ends.
	Release(ctx context.Context, key string) error
}

package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances, so only one scheduler
// polls schedules at a time.
type DistributedLock interface {
	// Acquire attempts to take a named lock for ttl.
	// Returns false without error when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives the lock back. Safe to call when the lock is not held.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a held lock.
	// PostgreSQL advisory locks have no TTL and treat this as a liveness check.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}

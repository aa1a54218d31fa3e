package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// DefaultLockPrefix namespaces lock keys
const DefaultLockPrefix = "sercha-sync:lock:"

// ErrLockNotHeld is returned by Extend when another owner holds the lock or it expired
var ErrLockNotHeld = errors.New("lock not held by this instance")

// Lock implements DistributedLock with owner-tagged keys carrying a TTL.
type Lock struct {
	client  redis.UniversalClient
	prefix  string
	ownerID string
}

// NewLock creates a lock whose owner id is unique to this process.
func NewLock(client redis.UniversalClient) *Lock {
	hostname, _ := os.Hostname()
	return &Lock{
		client:  client,
		prefix:  DefaultLockPrefix,
		ownerID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
}

// WithPrefix returns a copy of the lock using a different key prefix
func (l *Lock) WithPrefix(prefix string) *Lock {
	c := *l
	c.prefix = prefix
	return &c
}

// acquireScript takes a free lock, or refreshes the TTL when the caller
// already owns it.
var acquireScript = redis.NewScript(`
	local owner = redis.call("get", KEYS[1])
	if owner == ARGV[1] then
		redis.call("pexpire", KEYS[1], ARGV[2])
		return 1
	end
	if owner then
		return 0
	end
	redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
`)

// releaseScript deletes the key only for its owner
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// extendScript pushes out the TTL only for the owner
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Acquire takes the named lock for ttl. Re-acquiring a lock this instance
// holds succeeds and refreshes the TTL.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	n, err := acquireScript.Run(ctx, l.client, []string{l.prefix + name}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return n == 1, nil
}

// Release gives the lock back if this instance holds it.
func (l *Lock) Release(ctx context.Context, name string) error {
	err := releaseScript.Run(ctx, l.client, []string{l.prefix + name}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend pushes out the TTL of a lock this instance holds.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.prefix + name}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, ErrLockNotHeld)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this lock holder in logs
func (l *Lock) OwnerID() string {
	return l.ownerID
}

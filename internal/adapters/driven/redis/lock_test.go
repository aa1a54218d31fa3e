package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLock_OwnerIDUnique(t *testing.T) {
	_, client := setupTestRedis(t)

	a, b := NewLock(client), NewLock(client)
	if a.OwnerID() == "" {
		t.Fatal("expected non-empty owner ID")
	}
	if a.OwnerID() == b.OwnerID() {
		t.Errorf("expected unique owner IDs, got %s twice", a.OwnerID())
	}
}

func TestLock_AcquireExclusive(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	first, second := NewLock(client), NewLock(client)

	ok, err := first.Acquire(ctx, "scheduler", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got %v, %v", ok, err)
	}
	if got, _ := mr.Get(DefaultLockPrefix + "scheduler"); got != first.OwnerID() {
		t.Errorf("expected key owned by %s, got %s", first.OwnerID(), got)
	}

	ok, err = second.Acquire(ctx, "scheduler", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second owner to be refused")
	}
}

func TestLock_ReacquireRefreshesTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	if ok, _ := lock.Acquire(ctx, "scheduler", 2*time.Second); !ok {
		t.Fatal("expected acquire to succeed")
	}
	ok, err := lock.Acquire(ctx, "scheduler", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected re-acquire to succeed, got %v, %v", ok, err)
	}
	if ttl := mr.TTL(DefaultLockPrefix + "scheduler"); ttl != time.Minute {
		t.Errorf("expected ttl refreshed to 1m, got %v", ttl)
	}
}

func TestLock_ExpiryFreesLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	first, second := NewLock(client), NewLock(client)
	if ok, _ := first.Acquire(ctx, "scheduler", time.Second); !ok {
		t.Fatal("expected acquire to succeed")
	}

	mr.FastForward(2 * time.Second)

	ok, err := second.Acquire(ctx, "scheduler", time.Second)
	if err != nil || !ok {
		t.Fatalf("expected acquire after expiry, got %v, %v", ok, err)
	}
}

func TestLock_ReleaseOnlyByOwner(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	owner, other := NewLock(client), NewLock(client)
	if ok, _ := owner.Acquire(ctx, "scheduler", time.Minute); !ok {
		t.Fatal("expected acquire to succeed")
	}

	if err := other.Release(ctx, "scheduler"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists(DefaultLockPrefix + "scheduler") {
		t.Fatal("expected lock to survive release by another owner")
	}

	if err := owner.Release(ctx, "scheduler"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(DefaultLockPrefix + "scheduler") {
		t.Error("expected lock to be released")
	}

	// Releasing again is a no-op
	if err := owner.Release(ctx, "scheduler"); err != nil {
		t.Errorf("expected no error releasing a free lock, got %v", err)
	}
}

func TestLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	owner, other := NewLock(client), NewLock(client)
	if ok, _ := owner.Acquire(ctx, "scheduler", time.Second); !ok {
		t.Fatal("expected acquire to succeed")
	}

	if err := owner.Extend(ctx, "scheduler", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl := mr.TTL(DefaultLockPrefix + "scheduler"); ttl != time.Minute {
		t.Errorf("expected ttl 1m, got %v", ttl)
	}

	if err := other.Extend(ctx, "scheduler", time.Minute); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld, got %v", err)
	}
}

func TestLock_WithPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	lock := NewLock(client).WithPrefix("tenant-a:")
	if ok, _ := lock.Acquire(ctx, "scheduler", time.Minute); !ok {
		t.Fatal("expected acquire to succeed")
	}
	if !mr.Exists("tenant-a:scheduler") {
		t.Error("expected key under custom prefix")
	}
}

func TestLock_Ping(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client)

	if err := lock.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected error after redis closed")
	}
}

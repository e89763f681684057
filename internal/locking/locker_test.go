package locking

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalLocker_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	release, err := l.Acquire(ctx, "acct-1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "acct-1", time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if _, err := l.Acquire(ctx, "acct-2", time.Minute); err != nil {
		t.Fatalf("other keys should be free: %v", err)
	}
	_ = release(ctx)
	_ = release(ctx)
	if _, err := l.Acquire(ctx, "acct-1", time.Minute); err != nil {
		t.Fatalf("expected reacquire after release: %v", err)
	}
}

func TestLocalLocker_ExpiredHolderCannotReleaseSuccessor(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.now = func() time.Time { return now }

	stale, err := l.Acquire(ctx, "acct-1", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := l.Acquire(ctx, "acct-1", time.Minute); err != nil {
		t.Fatalf("expected expired lock to be taken over: %v", err)
	}
	_ = stale(ctx)
	if _, err := l.Acquire(ctx, "acct-1", time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("stale release must not free the new holder, got %v", err)
	}
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLocker(client, "dispatch:")

	release, err := l.Acquire(ctx, "acct-1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("dispatch:acct-1") {
		t.Fatal("expected lock key in redis")
	}
	if ttl := mr.TTL("dispatch:acct-1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl set, got %s", ttl)
	}
	if _, err := l.Acquire(ctx, "acct-1", time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("dispatch:acct-1") {
		t.Fatal("expected lock key removed")
	}
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLocker(client, "dispatch:")

	release, err := l.Acquire(ctx, "acct-1", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := l.Acquire(ctx, "acct-1", time.Minute); err != nil {
		t.Fatalf("expected expired lock to be taken over: %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !mr.Exists("dispatch:acct-1") {
		t.Fatal("stale release deleted the new holder's key")
	}
}

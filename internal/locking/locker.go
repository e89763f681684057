// Package locking guards per-key critical sections such as a single account's
// vendor dispatch.
package locking

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLocked is returned when another holder owns the key.
var ErrLocked = errors.New("locking: key already held")

// Release frees a lock. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker acquires exclusive, expiring locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// LocalLocker is an in-process Locker used when Redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrLocked
	}
	expires := now.Add(ttl)
	l.held[key] = expires

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// A later holder may own the key once ours expired.
			if cur, ok := l.held[key]; ok && cur.Equal(expires) {
				delete(l.held, key)
			}
		})
		return nil
	}, nil
}

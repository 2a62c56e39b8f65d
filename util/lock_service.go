// util/lock_service.go

package util

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aegis-iam/aegis/db"
)

// ResourceLocker serializes writers on a named resource. The policy service
// holds one lock per policy for the duration of a rule-set swap, never
// across external role lookups.
type ResourceLocker interface {
	Lock(ctx context.Context, resource string) error
	Unlock(ctx context.Context, resource string) error
}

// RedisLocker backs ResourceLocker with Redis SetNX locks.
type RedisLocker struct {
	TTL time.Duration
}

func NewRedisLocker(ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{TTL: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, resource string) error {
	for {
		locked, err := db.LockResource(ctx, resource, l.TTL)
		if err != nil {
			return err
		}
		if locked {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to acquire lock on %s: %w", resource, ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (l *RedisLocker) Unlock(ctx context.Context, resource string) error {
	return db.UnlockResource(ctx, resource)
}

// LocalLocker is an in-process ResourceLocker for tests and single-node
// deployments.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Lock(ctx context.Context, resource string) error {
	l.mu.Lock()
	m, ok := l.locks[resource]
	if !ok {
		m = &sync.Mutex{}
		l.locks[resource] = m
	}
	l.mu.Unlock()
	m.Lock()
	return nil
}

func (l *LocalLocker) Unlock(ctx context.Context, resource string) error {
	l.mu.Lock()
	m, ok := l.locks[resource]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("unlock of unknown resource %s", resource)
	}
	m.Unlock()
	return nil
}

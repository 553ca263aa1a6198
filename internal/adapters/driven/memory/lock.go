package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local DistributedLock with TTL expiry, used when no
// Redis or PostgreSQL backend is configured.
type Lock struct {
	mu    sync.Mutex
	locks map[string]time.Time // name -> expiry
	now   func() time.Time
}

// NewLock creates an empty process-local lock table.
func NewLock() *Lock {
	return &Lock{locks: make(map[string]time.Time), now: time.Now}
}

// Acquire takes name unless it is held and not yet expired.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.locks[name]; ok && now.Before(exp) {
		return false, nil
	}
	l.locks[name] = now.Add(ttl)
	return true, nil
}

// Release drops name.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, name)
	return nil
}

// Extend pushes out the expiry of a held lock.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.locks[name]; !ok || !now.Before(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	l.locks[name] = now.Add(ttl)
	return nil
}

// Ping always succeeds.
func (l *Lock) Ping(ctx context.Context) error {
	return nil
}

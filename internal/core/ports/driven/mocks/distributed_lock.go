package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockDistributedLock keeps ingestion locks in memory with real expiry and
// records every renewal.
type MockDistributedLock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	extends map[string]int

	// ExtendFn overrides Extend when set.
	ExtendFn func(name string, ttl time.Duration) error
}

// NewMockDistributedLock creates an empty lock table.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{
		expires: make(map[string]time.Time),
		extends: make(map[string]int),
	}
}

// Acquire takes name unless an unexpired holder exists.
func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.expires[name]; ok && time.Now().Before(exp) {
		return false, nil
	}
	m.expires[name] = time.Now().Add(ttl)
	return true, nil
}

// Release drops name.
func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, name)
	return nil
}

// Extend renews a held lock and counts the call.
func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.extends[name]++
	if m.ExtendFn != nil {
		return m.ExtendFn(name, ttl)
	}
	exp, ok := m.expires[name]
	if !ok || !time.Now().Before(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	m.expires[name] = time.Now().Add(ttl)
	return nil
}

// Ping always succeeds.
func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return nil
}

// IsHeld reports whether name is held and unexpired.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[name]
	return ok && time.Now().Before(exp)
}

// Extends returns how many times name was renewed.
func (m *MockDistributedLock) Extends(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extends[name]
}

// SetLockHeld marks name as held by another owner for ttl.
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[name] = time.Now().Add(ttl)
}

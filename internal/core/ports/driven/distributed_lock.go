package driven

import (
	"context"
	"time"
)

// DistributedLock serialises work on a named resource across instances.
// Ingestion takes one lock per document so two replicas never chunk and
// upsert the same file at the same time.
type DistributedLock interface {
	// Acquire attempts to take the named lock for ttl.
	// Returns false with a nil error when another holder owns it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort and safe to call when the
	// lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a held lock.
	// Not all backends support it (PostgreSQL advisory locks have no TTL).
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}

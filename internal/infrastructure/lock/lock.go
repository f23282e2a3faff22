// Package lock provides keyed mutual exclusion used to serialize work per
// principal: credential refreshes and sync runs.
package lock

import "context"

// Release gives up a held lock. Calling it more than once is safe.
type Release func()

// Locker hands out exclusive locks by key
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done
	Acquire(ctx context.Context, key string) (Release, error)

	// TryAcquire takes the lock only if it is free right now
	TryAcquire(ctx context.Context, key string) (Release, bool, error)
}

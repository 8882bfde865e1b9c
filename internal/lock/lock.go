// Package lock provides the mutual exclusion used by background jobs that
// must not run on two replicas at once.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotHeld is returned when releasing a lock that expired or was taken over.
var ErrNotHeld = errors.New("lock not held")

// Locker hands out named leases. A lease expires after ttl even if never
// released.
type Locker interface {
	// TryAcquire returns ok=false without error when someone else holds key.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (l *Lease, ok bool, err error)
}

// Lease is a held lock.
type Lease struct {
	key     string
	release func(ctx context.Context) error
}

func (l *Lease) Key() string { return l.key }

// Release gives the lock back.
func (l *Lease) Release(ctx context.Context) error {
	return l.release(ctx)
}

// Local is an in-process Locker for single-replica deployments and tests.
type Local struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
}

type localEntry struct {
	token   uint64
	expires time.Time
}

func NewLocal() *Local {
	return &Local{held: map[string]localEntry{}, now: time.Now}
}

func (l *Local) TryAcquire(_ context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cur, busy := l.held[key]
	if busy && now.Before(cur.expires) {
		return nil, false, nil
	}
	entry := localEntry{token: cur.token + 1, expires: now.Add(ttl)}
	l.held[key] = entry

	return &Lease{key: key, release: func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if got, ok := l.held[key]; !ok || got.token != entry.token {
			return ErrNotHeld
		}
		delete(l.held, key)
		return nil
	}}, true, nil
}

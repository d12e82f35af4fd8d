/*
locks.go - Keyed mutual exclusion

PURPOSE:
  Serializes mutations per key (one balance, one request) without a global
  lock. Acquisition is bounded: a waiter that cannot take the key within
  the timeout fails with ErrBusy instead of hanging.

EVICTION:
  Entries are reference-counted and removed once the last holder or waiter
  is gone, so the map does not accumulate an entry for every employee-year
  or request the process has ever touched.
*/
package engine

import (
	"context"
	"sync"
	"time"
)

type lockEntry struct {
	ch   chan struct{}
	refs int
}

type keyedLocks[K comparable] struct {
	mu   sync.Mutex
	keys map[K]*lockEntry
}

func newKeyedLocks[K comparable]() *keyedLocks[K] {
	return &keyedLocks[K]{keys: make(map[K]*lockEntry)}
}

// acquire takes the lock for a key, or fails with ErrBusy after timeout.
// The returned function releases the lock.
func (kl *keyedLocks[K]) acquire(ctx context.Context, k K, timeout time.Duration) (func(), error) {
	kl.mu.Lock()
	e, ok := kl.keys[k]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		kl.keys[k] = e
	}
	e.refs++
	kl.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			kl.drop(k, e)
		}, nil
	case <-timer.C:
		kl.drop(k, e)
		return nil, ErrBusy
	case <-ctx.Done():
		kl.drop(k, e)
		return nil, ctx.Err()
	}
}

// drop unregisters a holder or waiter and evicts the entry once unused.
func (kl *keyedLocks[K]) drop(k K, e *lockEntry) {
	kl.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(kl.keys, k)
	}
	kl.mu.Unlock()
}

package store

import (
	"auction-house/internal/auctionerrors"
	"context"
	"fmt"
	"sync"
	"time"
)

// keyedMutex provides an exclusive lock per row key with a bounded wait.
// A lock is a 1-buffered channel: sending acquires, receiving releases.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]chan struct{})}
}

func (k *keyedMutex) lock(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()

	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	return ch
}

// acquire blocks until the key's lock is free, the wait bound elapses, or
// ctx is cancelled. A timed-out acquisition is a transient error; the caller
// may resubmit the whole unit of work.
func (k *keyedMutex) acquire(ctx context.Context, key string, wait time.Duration) error {
	ch := k.lock(key)

	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("acquire %s after %s: %w", key, wait, auctionerrors.ErrLockTimeout)
	case <-ctx.Done():
		return fmt.Errorf("acquire %s: %w", key, ctx.Err())
	}
}

func (k *keyedMutex) release(key string) {
	<-k.lock(key)
}

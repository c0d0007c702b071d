package limits

import (
	"context"
	"sync"

	"guardian/pkg/domain"
)

// keyedLock serializes work per child without a global critical section.
// Locks are channel-based so acquisition can honor context cancellation;
// decisions for different children never contend.
type keyedLock struct {
	mu    sync.Mutex
	locks map[domain.ChildID]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[domain.ChildID]chan struct{})}
}

func (k *keyedLock) get(child domain.ChildID) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.locks[child]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[child] = ch
	}
	return ch
}

// Lock acquires the child's lock or fails when ctx is done.
func (k *keyedLock) Lock(ctx context.Context, child domain.ChildID) error {
	ch := k.get(child)
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *keyedLock) Unlock(child domain.ChildID) {
	ch := k.get(child)
	select {
	case <-ch:
	default:
		panic("limits: unlock of unlocked child lock")
	}
}

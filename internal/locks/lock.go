package locks

import (
	"context"
	"errors"
	"sync"
)

// Lock guards a critical section that must never run concurrently with
// itself, such as the daily sweep.
type Lock interface {
	Acquire(ctx context.Context) error

	Release(ctx context.Context) error
}

var ErrLockHeld = errors.New("lock is held by another holder")

// Local is an in-process non-blocking mutex.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Acquire(ctx context.Context) error {
	if !l.mu.TryLock() {
		return ErrLockHeld
	}
	return nil
}

func (l *Local) Release(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}

// Chain acquires every lock in order and releases them in reverse. If any
// acquisition fails the ones already taken are released.
type Chain []Lock

func (c Chain) Acquire(ctx context.Context) error {
	for i, l := range c {
		if err := l.Acquire(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c[j].Release(ctx)
			}
			return err
		}
	}
	return nil
}

func (c Chain) Release(ctx context.Context) error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

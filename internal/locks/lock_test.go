package locks

import (
	"context"
	"errors"
	"testing"
)

type fakeLock struct {
	acquireErr error
	held       bool
	released   int
}

func (f *fakeLock) Acquire(ctx context.Context) error {
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.held = true
	return nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.held = false
	f.released++
	return nil
}

func TestLocal_RejectsSecondHolder(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() err = %v, want nil", err)
	}
	if err := l.Acquire(ctx); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("second Acquire() err = %v, want %v", err, ErrLockHeld)
	}
	if err := l.Release(ctx); err != nil {
		t.Fatalf("Release() err = %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() after release err = %v, want nil", err)
	}
}

func TestChain_ReleasesTakenLocksOnFailure(t *testing.T) {
	ctx := context.Background()
	first := &fakeLock{}
	second := &fakeLock{acquireErr: ErrLockHeld}

	err := Chain{first, second}.Acquire(ctx)
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("Acquire() err = %v, want %v", err, ErrLockHeld)
	}
	if first.held || first.released != 1 {
		t.Fatalf("first lock held=%v released=%d, want released once", first.held, first.released)
	}
}

func TestChain_ReleaseInReverse(t *testing.T) {
	ctx := context.Background()
	first := &fakeLock{}
	second := &fakeLock{}
	c := Chain{first, second}

	if err := c.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() err = %v", err)
	}
	if err := c.Release(ctx); err != nil {
		t.Fatalf("Release() err = %v", err)
	}
	if first.held || second.held {
		t.Fatal("locks still held after Release()")
	}
}

package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrGuardNotHeld is returned when releasing a key that is not held.
var ErrGuardNotHeld = errors.New("guard key is not held")

// Guard is a keyed, non-blocking lock for destructive operations
// (for example bulk deletes) scoped to a resource such as a channel.
type Guard interface {
	// TryAcquire never waits. It reports false if the key is already held.
	TryAcquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// OpGuard is the in-process Guard.
type OpGuard struct {
	held sync.Map // key -> time.Time acquired
}

func NewOpGuard() *OpGuard {
	return &OpGuard{}
}

func (g *OpGuard) TryAcquire(_ context.Context, key string) (bool, error) {
	_, loaded := g.held.LoadOrStore(key, time.Now())
	return !loaded, nil
}

func (g *OpGuard) Release(_ context.Context, key string) error {
	if _, loaded := g.held.LoadAndDelete(key); !loaded {
		return fmt.Errorf("%w: %s", ErrGuardNotHeld, key)
	}
	return nil
}

// Held returns the number of keys currently held.
func (g *OpGuard) Held() int {
	n := 0
	g.held.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// WithGuard runs fn while holding key. If the key is busy fn is not run and
// ran is false. The key is released on every exit path of fn, panics included.
func WithGuard(ctx context.Context, g Guard, key string, fn func() error) (ran bool, err error) {
	ok, err := g.TryAcquire(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to acquire guard %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	defer func() {
		// The guarded operation may have cancelled ctx; release must still happen.
		if relErr := g.Release(context.WithoutCancel(ctx), key); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return true, fn()
}

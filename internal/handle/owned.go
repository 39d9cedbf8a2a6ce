// Package handle wraps reference-counted native resources (COM interfaces and
// similar) so that each reference is released exactly once.
//
// An Owned or Shared value may be handed from one goroutine to another, but it
// must not be used from two goroutines at the same time without external
// locking.
package handle

import (
	"errors"
	"sync"
)

// ErrReleased is returned when a handle is used after Release.
var ErrReleased = errors.New("handle: use after release")

// Releaser is a native resource that drops one reference when released.
type Releaser interface {
	Release()
}

// Owned is a single-owner wrapper around one native reference.
//
// Owned values must not be copied after first use; pass *Owned around.
type Owned[T Releaser] struct {
	mu       sync.Mutex
	res      T
	released bool
}

// NewOwned takes ownership of res. The caller must not release res itself.
func NewOwned[T Releaser](res T) *Owned[T] {
	return &Owned[T]{res: res}
}

// Get returns the wrapped resource, or ErrReleased once Release has run.
func (o *Owned[T]) Get() (T, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.released {
		var zero T
		return zero, ErrReleased
	}
	return o.res, nil
}

// Release drops the reference. Calling it more than once is a no-op.
func (o *Owned[T]) Release() {
	if o == nil {
		return
	}
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return
	}
	res := o.res
	var zero T
	o.res = zero
	o.released = true
	o.mu.Unlock()

	res.Release()
}

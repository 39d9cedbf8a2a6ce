package handle

import "sync"

// Shared is a reference-counted container for a resource that several owners
// hold at once, e.g. one D3D11 device used by every duplicated output of an
// adapter. The resource is released when the last holder lets go.
//
// Lock/Unlock serialise the mutating calls made through the resource
// (texture creation, resource copies, map/unmap). Callers sharing one
// resource across goroutines must hold the lock around those calls.
type Shared[T Releaser] struct {
	state *sharedState[T]
	done  bool
}

type sharedState[T Releaser] struct {
	mu   sync.Mutex // guards refs and res
	use  sync.Mutex // serialises use of res
	res  T
	refs int
}

// NewShared takes ownership of res with a reference count of one.
func NewShared[T Releaser](res T) *Shared[T] {
	return &Shared[T]{state: &sharedState[T]{res: res, refs: 1}}
}

// Clone returns a new holder of the same resource.
func (s *Shared[T]) Clone() (*Shared[T], error) {
	if s.done {
		return nil, ErrReleased
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if s.state.refs == 0 {
		return nil, ErrReleased
	}
	s.state.refs++
	return &Shared[T]{state: s.state}, nil
}

// Get returns the resource, or ErrReleased once this holder has released it.
func (s *Shared[T]) Get() (T, error) {
	if s.done {
		var zero T
		return zero, ErrReleased
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.res, nil
}

// Lock acquires the use lock shared by every holder of the resource.
func (s *Shared[T]) Lock() { s.state.use.Lock() }

// Unlock releases the use lock.
func (s *Shared[T]) Unlock() { s.state.use.Unlock() }

// Refs reports the number of live holders.
func (s *Shared[T]) Refs() int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.refs
}

// Release drops this holder. The resource itself is released with the last
// holder. Calling Release twice on the same holder is a no-op.
func (s *Shared[T]) Release() {
	if s == nil || s.done {
		return
	}
	s.done = true

	s.state.mu.Lock()
	s.state.refs--
	last := s.state.refs == 0
	res := s.state.res
	if last {
		var zero T
		s.state.res = zero
	}
	s.state.mu.Unlock()

	if last {
		res.Release()
	}
}

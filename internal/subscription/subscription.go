// Package subscription holds listener sets whose registrations are released
// through a handle, so a component that subscribes on mount can release
// deterministically on unmount with a deferred Close.
package subscription

import (
	"slices"
	"sync"
)

// Set is a concurrency-safe set of listeners for events of type T.
type Set[T any] struct {
	mu   sync.Mutex
	next uint64
	fns  map[uint64]func(T)
}

// Add registers fn and returns the handle that releases it.
func (s *Set[T]) Add(fn func(T)) *Handle {
	if fn == nil {
		return &Handle{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[uint64]func(T))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return &Handle{release: func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}}
}

// Notify calls every live listener with v. Listeners run outside the set lock
// and may release themselves.
func (s *Set[T]) Notify(v T) {
	s.mu.Lock()
	if len(s.fns) == 0 {
		s.mu.Unlock()
		return
	}
	ids := make([]uint64, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.fns[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of live listeners.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// Handle releases one registration. Close is idempotent.
type Handle struct {
	once    sync.Once
	release func()
}

func (h *Handle) Close() error {
	if h == nil || h.release == nil {
		return nil
	}
	h.once.Do(h.release)
	return nil
}

package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loader fetches the authoritative value from the backend.
type Loader[T any] func(ctx context.Context) (T, error)

// Store mirrors a backend query result and drops it whenever a change event
// arrives for one of the watched tables. The next Get refetches.
type Store[T any] struct {
	name    string
	load    Loader[T]
	maxAge  time.Duration
	version atomic.Uint64

	mu       sync.Mutex
	value    T
	valid    bool
	loadedAt time.Time
	cancels  []func()
}

// NewStore creates a store. maxAge bounds staleness if change events stop
// arriving; zero disables the bound.
func NewStore[T any](name string, load Loader[T], maxAge time.Duration) *Store[T] {
	s := &Store[T]{name: name, load: load, maxAge: maxAge}
	s.version.Store(1)
	return s
}

func (s *Store[T]) Name() string { return s.name }

// Watch invalidates the store on every event for the given tables.
func (s *Store[T]) Watch(sub Subscriber, tables ...string) *Store[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, table := range tables {
		s.cancels = append(s.cancels, sub.Subscribe(table, func(Event) {
			s.Invalidate()
		}))
	}
	return s
}

func (s *Store[T]) Get(ctx context.Context) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	if s.valid {
		return s.value, nil
	}

	value, err := s.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.value = value
	s.valid = true
	s.loadedAt = time.Now()
	return value, nil
}

func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
	s.version.Add(1)
}

// expireLocked drops a value older than maxAge. Aging out counts as an
// invalidation so pollers holding the old version see a change even when no
// events arrive. s.mu must be held.
func (s *Store[T]) expireLocked() {
	if s.valid && s.maxAge > 0 && time.Since(s.loadedAt) >= s.maxAge {
		s.valid = false
		s.version.Add(1)
	}
}

// Version changes every time the store is invalidated or its value ages out.
func (s *Store[T]) Version() uint64 {
	s.mu.Lock()
	s.expireLocked()
	s.mu.Unlock()
	return s.version.Load()
}

// Close stops watching tables.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

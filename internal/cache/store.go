// Package cache provides the path-keyed stores that hold loaded templates and
// partials for the duration of one build.
package cache

import (
	"sync"
	"sync/atomic"
)

// Stats is a snapshot of a store's counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Loads   int64 `json:"loads"`
	Clears  int64 `json:"clears"`
}

// HitRate returns hits / (hits + misses), or 0 when nothing was looked up.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total)
}

// Store maps keys to immutable values until it is explicitly cleared.
// Entries are never evicted or replaced; the first value loaded for a key is
// the one every later lookup returns.
type Store[V any] struct {
	name    string
	entries map[string]V
	mutex   sync.RWMutex

	hits   int64
	misses int64
	loads  int64
	clears int64
}

// NewStore creates an empty store. The name is used in logs and stats output.
func NewStore[V any](name string) *Store[V] {
	return &Store[V]{
		name:    name,
		entries: make(map[string]V),
	}
}

// Name returns the store's name.
func (s *Store[V]) Name() string {
	return s.name
}

// Get returns the value cached under key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, ok := s.entries[key]
	if ok {
		atomic.AddInt64(&s.hits, 1)
	} else {
		atomic.AddInt64(&s.misses, 1)
	}
	return value, ok
}

// GetOrLoad returns the cached value for key, calling load and caching its
// result on a miss. Failed loads are not cached.
func (s *Store[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if value, ok := s.Get(key); ok {
		return value, nil
	}

	value, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	atomic.AddInt64(&s.loads, 1)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if existing, ok := s.entries[key]; ok {
		return existing, nil
	}
	s.entries[key] = value
	return value, nil
}

// Has reports whether key is cached without touching the hit counters.
func (s *Store[V]) Has(key string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of cached entries.
func (s *Store[V]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

// Clear drops every entry. Counters other than Clears are kept so they
// describe the store's whole lifetime.
func (s *Store[V]) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries = make(map[string]V)
	atomic.AddInt64(&s.clears, 1)
}

// Stats returns a snapshot of the store's counters.
func (s *Store[V]) Stats() Stats {
	s.mutex.RLock()
	entries := len(s.entries)
	s.mutex.RUnlock()

	return Stats{
		Entries: entries,
		Hits:    atomic.LoadInt64(&s.hits),
		Misses:  atomic.LoadInt64(&s.misses),
		Loads:   atomic.LoadInt64(&s.loads),
		Clears:  atomic.LoadInt64(&s.clears),
	}
}

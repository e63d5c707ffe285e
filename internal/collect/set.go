package collect

import "sync"

// Set is a deduplicating URL set that remembers first-insertion order.
// Hook observers add to it from backend goroutines.
type Set struct {
	mu    sync.RWMutex
	index map[string]struct{}
	items []string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Add inserts u and reports whether it was new.
func (s *Set) Add(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[u]; ok {
		return false
	}
	s.index[u] = struct{}{}
	s.items = append(s.items, u)
	return true
}

// Contains reports whether u is in the set.
func (s *Set) Contains(u string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[u]
	return ok
}

// Len returns the number of unique URLs.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of the URLs in insertion order.
func (s *Set) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// At returns the i-th URL in insertion order.
func (s *Set) At(i int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.items) {
		return "", false
	}
	return s.items[i], true
}

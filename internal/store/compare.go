package store

import (
	"sync"

	"github.com/kisuya/reasoncard/internal/domain"
)

// compareAgg caches the derived EvidenceCompare payload per event
// (spec.md §3: "EvidenceCompare (derived, cached)").
type compareAgg struct {
	o  *owner
	mu sync.RWMutex
	m  map[string]domain.EvidenceCompare
}

func newCompareAgg() *compareAgg {
	return &compareAgg{o: newOwner(), m: map[string]domain.EvidenceCompare{}}
}

func (s *Store) GetCachedCompare(eventID string) (domain.EvidenceCompare, bool) {
	s.compare.mu.RLock()
	defer s.compare.mu.RUnlock()
	c, ok := s.compare.m[eventID]
	return c, ok
}

func (s *Store) PutCachedCompare(c domain.EvidenceCompare) {
	s.compare.o.do(func() {
		s.compare.mu.Lock()
		defer s.compare.mu.Unlock()
		s.compare.m[c.EventID] = c
	})
}

// InvalidateCompare drops the cached payload, used after a Reason
// Engine rerun changes an event's reason set.
func (s *Store) InvalidateCompare(eventID string) {
	s.compare.o.do(func() {
		s.compare.mu.Lock()
		defer s.compare.mu.Unlock()
		delete(s.compare.m, eventID)
	})
}

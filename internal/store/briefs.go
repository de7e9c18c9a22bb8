package store

import (
	"sort"
	"sync"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/domain"
)

type briefsAgg struct {
	o      *owner
	mu     sync.RWMutex
	byID   map[string]domain.Brief
	byUser map[string][]string // userID -> brief ids, creation order
}

func newBriefsAgg() *briefsAgg {
	return &briefsAgg{o: newOwner(), byID: map[string]domain.Brief{}, byUser: map[string][]string{}}
}

func (s *Store) CreateBrief(b domain.Brief) domain.Brief {
	s.briefs.o.do(func() {
		s.briefs.mu.Lock()
		defer s.briefs.mu.Unlock()
		if b.ID == "" {
			b.ID = s.newID()
		}
		s.briefs.byID[b.ID] = b
		s.briefs.byUser[b.UserID] = append(s.briefs.byUser[b.UserID], b.ID)
	})
	return b
}

func (s *Store) ListBriefs(userID string, size int) []domain.Brief {
	s.briefs.mu.RLock()
	defer s.briefs.mu.RUnlock()
	ids := s.briefs.byUser[userID]
	out := make([]domain.Brief, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.briefs.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAtUTC.After(out[j].GeneratedAtUTC) })
	return paginate(out, 1, size)
}

// GetBrief returns the brief regardless of expiry; callers decide how
// to react (spec.md §4.6: listing still shows expired rows, only the
// detail fetch returns 410).
func (s *Store) GetBrief(userID, id string) (domain.Brief, error) {
	s.briefs.mu.RLock()
	defer s.briefs.mu.RUnlock()
	b, ok := s.briefs.byID[id]
	if !ok || b.UserID != userID {
		return domain.Brief{}, apperr.NotFound("brief")
	}
	return b, nil
}

func (s *Store) MarkBriefRead(userID, id string) (domain.Brief, error) {
	var out domain.Brief
	var fail error
	s.briefs.o.do(func() {
		s.briefs.mu.Lock()
		defer s.briefs.mu.Unlock()
		b, ok := s.briefs.byID[id]
		if !ok || b.UserID != userID {
			fail = apperr.NotFound("brief")
			return
		}
		b.Status = domain.BriefRead
		s.briefs.byID[id] = b
		out = b
	})
	return out, fail
}

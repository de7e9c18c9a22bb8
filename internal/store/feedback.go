package store

import (
	"sync"

	"github.com/kisuya/reasoncard/internal/domain"
)

type feedbackKey struct {
	userID, eventID, reasonID string
}

type feedbackAgg struct {
	o  *owner
	mu sync.RWMutex
	m  map[feedbackKey]domain.Feedback
}

func newFeedbackAgg() *feedbackAgg {
	return &feedbackAgg{o: newOwner(), m: map[feedbackKey]domain.Feedback{}}
}

// UpsertFeedback is the idempotence-key (user,event,reason) vote upsert
// from spec.md §5. overwritten is true when a prior vote existed.
func (s *Store) UpsertFeedback(userID, eventID, reasonID string, vote domain.Vote) (fb domain.Feedback, overwritten bool) {
	key := feedbackKey{userID, eventID, reasonID}
	s.feedback.o.do(func() {
		s.feedback.mu.Lock()
		defer s.feedback.mu.Unlock()
		_, overwritten = s.feedback.m[key]
		fb = domain.Feedback{UserID: userID, EventID: eventID, ReasonID: reasonID, Vote: vote, UpdatedAtUTC: s.now()}
		s.feedback.m[key] = fb
	})
	return fb, overwritten
}

func (s *Store) GetFeedback(userID, eventID, reasonID string) (domain.Feedback, bool) {
	s.feedback.mu.RLock()
	defer s.feedback.mu.RUnlock()
	fb, ok := s.feedback.m[feedbackKey{userID, eventID, reasonID}]
	return fb, ok
}

package store

import (
	"sort"
	"sync"
	"time"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/domain"
)

// eventsAgg holds PriceEvent and EventReason together: spec.md §4.1
// allows exactly one cross-aggregate transaction, the detector->reason
// engine commit, so both live under one owner/lock.
type eventsAgg struct {
	o          *owner
	mu         sync.RWMutex
	byID       map[string]domain.PriceEvent
	bySymbol   map[string][]string // "market:symbol" -> event ids, chronological
	reasons    map[string][]domain.EventReason // eventID -> reasons, rank order
}

func newEventsAgg() *eventsAgg {
	return &eventsAgg{
		o:        newOwner(),
		byID:     map[string]domain.PriceEvent{},
		bySymbol: map[string][]string{},
		reasons:  map[string][]domain.EventReason{},
	}
}

func symbolKey(market domain.Market, symbol string) string { return string(market) + ":" + symbol }

// CreateEventWithReasons performs the single logical commit from
// spec.md §4.1/§4.3.6: a PriceEvent and its (possibly empty) initial
// EventReason rows are written atomically, so a reader can never
// observe the event without its reason list.
func (s *Store) CreateEventWithReasons(ev domain.PriceEvent, reasons []domain.EventReason) (domain.PriceEvent, []domain.EventReason, error) {
	if len(reasons) > 3 {
		return domain.PriceEvent{}, nil, apperr.InvalidInput("at most three reasons per event")
	}
	seenRank := map[int]bool{}
	seenURL := map[string]bool{}
	for _, r := range reasons {
		if r.Rank < 1 || r.Rank > 3 || seenRank[r.Rank] {
			return domain.PriceEvent{}, nil, apperr.InvalidInput("reason rank must be unique within {1,2,3}")
		}
		seenRank[r.Rank] = true
		if r.SourceURL != "" && seenURL[r.SourceURL] {
			return domain.PriceEvent{}, nil, apperr.InvalidInput("reason source_url must be unique within event")
		}
		seenURL[r.SourceURL] = true
	}

	s.events.o.do(func() {
		s.events.mu.Lock()
		defer s.events.mu.Unlock()
		if ev.ID == "" {
			ev.ID = s.newID()
		}
		key := symbolKey(ev.Market, ev.Symbol)
		s.events.byID[ev.ID] = ev
		s.events.bySymbol[key] = append(s.events.bySymbol[key], ev.ID)

		stamped := make([]domain.EventReason, len(reasons))
		for i, r := range reasons {
			r.EventID = ev.ID
			if r.ID == "" {
				r.ID = s.newID()
			}
			stamped[i] = r
		}
		sort.Slice(stamped, func(i, j int) bool { return stamped[i].Rank < stamped[j].Rank })
		s.events.reasons[ev.ID] = stamped
	})
	return ev, s.events.reasons[ev.ID], nil
}

func (s *Store) GetEvent(id string) (domain.PriceEvent, []domain.EventReason, error) {
	s.events.mu.RLock()
	defer s.events.mu.RUnlock()
	ev, ok := s.events.byID[id]
	if !ok {
		return domain.PriceEvent{}, nil, apperr.NotFound("event")
	}
	return ev, append([]domain.EventReason(nil), s.events.reasons[id]...), nil
}

// ListRecentEventsForUser returns events (last 30 days) for symbols the
// user tracks, descending by detected_at_utc, with a simple opaque
// cursor (spec.md §6 "GET /v1/events?size&cursor").
func (s *Store) ListRecentEventsForUser(userID string, symbols []string, market map[string]domain.Market, size int, cursor string, now time.Time) ([]domain.PriceEvent, string) {
	s.events.mu.RLock()
	defer s.events.mu.RUnlock()

	cutoff := now.Add(-30 * 24 * time.Hour)
	var all []domain.PriceEvent
	for _, sym := range symbols {
		key := symbolKey(market[sym], sym)
		for _, id := range s.events.bySymbol[key] {
			ev := s.events.byID[id]
			if ev.DetectedAtUTC.After(cutoff) {
				all = append(all, ev)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DetectedAtUTC.After(all[j].DetectedAtUTC) })

	start := 0
	if cursor != "" {
		for i, ev := range all {
			if ev.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if size <= 0 {
		size = 20
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	if start > len(all) {
		start = len(all)
	}
	page := all[start:end]
	next := ""
	if end < len(all) {
		next = page[len(page)-1].ID
	}
	return page, next
}

// UpdateReasonConfidence mutates the current confidence_score/breakdown
// of a reason, used by ReasonRevision writes (spec.md §3: "Writing a
// revision mutates the target EventReason's current confidence_score
// and breakdown") and by Reason Engine reruns.
func (s *Store) UpdateReasonConfidence(eventID, reasonID string, score float64, breakdown *domain.ScoreBreakdown) error {
	var fail error
	s.events.o.do(func() {
		s.events.mu.Lock()
		defer s.events.mu.Unlock()
		rs := s.events.reasons[eventID]
		for i := range rs {
			if rs[i].ID == reasonID {
				rs[i].ConfidenceScore = score
				rs[i].ConfidenceBreakdown = breakdown
				s.events.reasons[eventID] = rs
				return
			}
		}
		fail = apperr.NotFound("reason")
	})
	return fail
}

// ReplaceReasons overwrites an event's reason set after a rerun
// (spec.md §4.3 "Reruns ... update the existing reason row").
func (s *Store) ReplaceReasons(eventID string, reasons []domain.EventReason) error {
	var fail error
	s.events.o.do(func() {
		s.events.mu.Lock()
		defer s.events.mu.Unlock()
		if _, ok := s.events.byID[eventID]; !ok {
			fail = apperr.NotFound("event")
			return
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i].Rank < reasons[j].Rank })
		s.events.reasons[eventID] = reasons
	})
	return fail
}

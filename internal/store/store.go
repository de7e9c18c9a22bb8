// Package store is the in-memory transactional repository for every
// entity in spec.md §3. Each aggregate kind has its own owner goroutine
// (the "single writer lock per aggregate" from spec.md §4.1, implemented
// as message-passed writes per SPEC_FULL.md §9) guarding a
// sync.RWMutex-protected map so readers never contend with each other or
// with a different aggregate's writer (spec.md §5).
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/domain"
)

// Store aggregates every per-entity owner. Construct with New.
type Store struct {
	clock clockid.Clock
	ids   clockid.Minter

	users      *usersAgg
	watchlist  *watchlistAgg
	thresholds *thresholdsAgg
	events     *eventsAgg // PriceEvent + EventReason, single logical commit
	feedback   *feedbackAgg
	reports    *reportsAgg // ReasonReport + ReasonStatusTransition + ReasonRevision
	notifs     *notifsAgg
	briefs     *briefsAgg
	compare    *compareAgg
}

func New(clock clockid.Clock, ids clockid.Minter) *Store {
	return &Store{
		clock:      clock,
		ids:        ids,
		users:      newUsersAgg(),
		watchlist:  newWatchlistAgg(),
		thresholds: newThresholdsAgg(),
		events:     newEventsAgg(),
		feedback:   newFeedbackAgg(),
		reports:    newReportsAgg(),
		notifs:     newNotifsAgg(),
		briefs:     newBriefsAgg(),
		compare:    newCompareAgg(),
	}
}

func (s *Store) now() time.Time   { return s.clock.Now() }
func (s *Store) newID() string    { return s.ids.NewID() }

// ---- users ----

type usersAgg struct {
	o       *owner
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // lower(email) -> id
}

func newUsersAgg() *usersAgg {
	return &usersAgg{o: newOwner(), byID: map[string]domain.User{}, byEmail: map[string]string{}}
}

func (s *Store) CreateUser(email, passwordHash, locale string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return domain.User{}, apperr.InvalidInput("email and password are required")
	}
	var out domain.User
	var fail error
	s.users.o.do(func() {
		s.users.mu.Lock()
		defer s.users.mu.Unlock()
		if _, exists := s.users.byEmail[email]; exists {
			fail = apperr.New(apperr.CodeEmailAlreadyExists, "an account with this email already exists")
			return
		}
		out = domain.User{
			ID:           s.newID(),
			Email:        email,
			PasswordHash: passwordHash,
			Locale:       locale,
			CreatedAtUTC: s.now(),
		}
		s.users.byID[out.ID] = out
		s.users.byEmail[email] = out.ID
	})
	if fail != nil {
		return domain.User{}, fail
	}
	return out, nil
}

func (s *Store) GetUserByID(id string) (domain.User, error) {
	s.users.mu.RLock()
	defer s.users.mu.RUnlock()
	u, ok := s.users.byID[id]
	if !ok {
		return domain.User{}, apperr.NotFound("user")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.users.mu.RLock()
	defer s.users.mu.RUnlock()
	id, ok := s.users.byEmail[email]
	if !ok {
		return domain.User{}, apperr.NotFound("user")
	}
	return s.users.byID[id], nil
}

// ---- watchlist ----

type watchlistAgg struct {
	o        *owner
	mu       sync.RWMutex
	byID     map[string]domain.WatchlistItem
	byUser   map[string][]string // userID -> item ids, insertion order
}

func newWatchlistAgg() *watchlistAgg {
	return &watchlistAgg{o: newOwner(), byID: map[string]domain.WatchlistItem{}, byUser: map[string][]string{}}
}

// AddWatchlistItem upserts by (user, market, ticker) unique key (spec.md §3).
// isDuplicate is true when the (user,market,ticker) triple was already
// present and still active (spec.md §6 "is_duplicate").
func (s *Store) AddWatchlistItem(userID string, market domain.Market, ticker string) (item domain.WatchlistItem, isDuplicate bool, err error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !market.Valid() || ticker == "" {
		return domain.WatchlistItem{}, false, apperr.InvalidInput("market and ticker are required")
	}
	s.watchlist.o.do(func() {
		s.watchlist.mu.Lock()
		defer s.watchlist.mu.Unlock()
		for _, id := range s.watchlist.byUser[userID] {
			existing := s.watchlist.byID[id]
			if existing.Market == market && existing.Ticker == ticker {
				item, isDuplicate = existing, true
				return
			}
		}
		item = domain.WatchlistItem{
			ID:           s.newID(),
			UserID:       userID,
			Market:       market,
			Ticker:       ticker,
			CreatedAtUTC: s.now(),
		}
		s.watchlist.byID[item.ID] = item
		s.watchlist.byUser[userID] = append(s.watchlist.byUser[userID], item.ID)
	})
	return item, isDuplicate, nil
}

func (s *Store) RemoveWatchlistItem(userID, itemID string) error {
	var fail error
	s.watchlist.o.do(func() {
		s.watchlist.mu.Lock()
		defer s.watchlist.mu.Unlock()
		item, ok := s.watchlist.byID[itemID]
		if !ok || item.UserID != userID {
			fail = apperr.NotFound("watchlist item")
			return
		}
		delete(s.watchlist.byID, itemID)
		ids := s.watchlist.byUser[userID]
		for i, id := range ids {
			if id == itemID {
				s.watchlist.byUser[userID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	})
	return fail
}

func (s *Store) ListWatchlistItems(userID string, page, size int) ([]domain.WatchlistItem, int) {
	s.watchlist.mu.RLock()
	defer s.watchlist.mu.RUnlock()
	ids := s.watchlist.byUser[userID]
	out := make([]domain.WatchlistItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.watchlist.byID[id])
	}
	return paginate(out, page, size), len(out)
}

// WatchlistUsersFor returns every user tracking (market, symbol), for
// the scanner to fan a detected event out to debounce/notify per user.
func (s *Store) WatchlistUsersFor(market domain.Market, symbol string) []string {
	s.watchlist.mu.RLock()
	defer s.watchlist.mu.RUnlock()
	var users []string
	for _, it := range s.watchlist.byID {
		if it.Market == market && it.Ticker == symbol {
			users = append(users, it.UserID)
		}
	}
	return users
}

// TrackedSymbol is one distinct (market, ticker) pair that at least one
// user is watching.
type TrackedSymbol struct {
	Market domain.Market
	Ticker string
}

// DistinctTrackedSymbols returns every (market, ticker) pair with at
// least one active watcher, for the scanner's per-tick fan-out loop
// (spec.md §4.2: the detector observes one rolling window per tracked
// symbol, not per user).
func (s *Store) DistinctTrackedSymbols() []TrackedSymbol {
	s.watchlist.mu.RLock()
	defer s.watchlist.mu.RUnlock()
	seen := map[TrackedSymbol]bool{}
	var out []TrackedSymbol
	for _, it := range s.watchlist.byID {
		key := TrackedSymbol{Market: it.Market, Ticker: it.Ticker}
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

func paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = 20
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ---- thresholds ----

type thresholdsAgg struct {
	o  *owner
	mu sync.RWMutex
	m  map[string]map[int]domain.Threshold // userID -> windowMinutes -> Threshold
}

func newThresholdsAgg() *thresholdsAgg {
	return &thresholdsAgg{o: newOwner(), m: map[string]map[int]domain.Threshold{}}
}

// UpsertThreshold implements the "one row per window" upsert semantics
// (spec.md §3).
func (s *Store) UpsertThreshold(userID string, windowMinutes int, thresholdPct float64) (domain.Threshold, error) {
	if windowMinutes <= 0 || thresholdPct < 0 {
		return domain.Threshold{}, apperr.InvalidInput("window_minutes must be positive and threshold_pct non-negative")
	}
	var out domain.Threshold
	s.thresholds.o.do(func() {
		s.thresholds.mu.Lock()
		defer s.thresholds.mu.Unlock()
		if s.thresholds.m[userID] == nil {
			s.thresholds.m[userID] = map[int]domain.Threshold{}
		}
		out = domain.Threshold{UserID: userID, WindowMinutes: windowMinutes, ThresholdPct: thresholdPct, UpdatedAtUTC: s.now()}
		s.thresholds.m[userID][windowMinutes] = out
	})
	return out, nil
}

func (s *Store) ListThresholds(userID string) []domain.Threshold {
	s.thresholds.mu.RLock()
	defer s.thresholds.mu.RUnlock()
	out := make([]domain.Threshold, 0, len(s.thresholds.m[userID]))
	for _, t := range s.thresholds.m[userID] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WindowMinutes < out[j].WindowMinutes })
	return out
}

// EffectiveThreshold resolves the per-user threshold for a window, or
// def when the user has not configured one (spec.md §4.2).
func (s *Store) EffectiveThreshold(userID string, windowMinutes int, def float64) float64 {
	s.thresholds.mu.RLock()
	defer s.thresholds.mu.RUnlock()
	if t, ok := s.thresholds.m[userID][windowMinutes]; ok {
		return t.ThresholdPct
	}
	return def
}

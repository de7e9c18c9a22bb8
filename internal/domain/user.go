package domain

import "time"

// Market is one of the two supported equity markets (spec.md §3).
type Market string

const (
	MarketKR Market = "KR"
	MarketUS Market = "US"
)

func (m Market) Valid() bool { return m == MarketKR || m == MarketUS }

// User is a signed-up account. Password is never stored in plaintext;
// PasswordHash is a bcrypt verifier (SPEC_FULL.md §3).
type User struct {
	ID           string
	Email        string // stored lower-cased; uniqueness is case-insensitive
	PasswordHash string
	Locale       string
	CreatedAtUTC time.Time
}

// WatchlistItem ties a User to a tracked (market, ticker) pair.
type WatchlistItem struct {
	ID           string
	UserID       string
	Market       Market
	Ticker       string
	CreatedAtUTC time.Time
}

// Threshold is a per (user, window_minutes) alert sensitivity.
type Threshold struct {
	UserID        string
	WindowMinutes int
	ThresholdPct  float64 // non-negative, interpreted as |±pct|
	UpdatedAtUTC  time.Time
}

package domain

import "time"

// SessionLabel classifies the exchange session active when a PriceEvent
// was detected (spec.md §3, §4.2).
type SessionLabel string

const (
	SessionRegular SessionLabel = "regular"
	SessionPre     SessionLabel = "pre"
	SessionPost    SessionLabel = "post"
	SessionClosed  SessionLabel = "closed"
)

// PriceEvent is an immutable detected significant price move.
type PriceEvent struct {
	ID               string
	Market           Market
	Symbol           string
	ChangePct        float64 // signed
	WindowMinutes    int
	DetectedAtUTC    time.Time
	ExchangeTimezone string
	SessionLabel     SessionLabel

	// DeltaRealert marks an event that bypassed debounce via delta re-alert
	// (spec.md §4.2, supplemented for notifier/UI attribution).
	DeltaRealert bool
}

// ReasonType is the provenance of an EventReason (spec.md §3).
type ReasonType string

const (
	ReasonFiling ReasonType = "filing"
	ReasonNews   ReasonType = "news"
	ReasonOther  ReasonType = "other"
)

// ScoreBreakdown records the weighted three-signal scoring computation
// verbatim so the API can reconstruct Total (spec.md §4.7).
type ScoreBreakdown struct {
	Weights [3]float64 // source_reliability, event_match, time_proximity
	Signals [3]float64
	Total   float64 // rounded to 2 decimals; abs(total - Σw·s) <= 0.01
}

// EventReason is a ranked candidate explanation for a PriceEvent.
type EventReason struct {
	ID                 string
	EventID            string
	Rank               int // 1..3, unique within event
	ReasonType         ReasonType
	ConfidenceScore    float64 // [0,1], equals ScoreBreakdown.Total
	Summary            string
	SourceURL          string // canonicalized http/https URL, unique within event
	PublishedAtUTC     time.Time
	ConfidenceBreakdown *ScoreBreakdown
	FetchDurationsMS   map[string]int64 // per-adapter fetch durations (SPEC_FULL.md §3)
}

// ReasonStatus is derived from an event's reason set (spec.md §3).
type ReasonStatus string

const (
	ReasonStatusCollecting ReasonStatus = "collecting_evidence"
	ReasonStatusVerified   ReasonStatus = "verified"
)

// DeriveReasonStatus implements the derivation rule from spec.md §3.
func DeriveReasonStatus(reasons []EventReason) ReasonStatus {
	if len(reasons) == 0 {
		return ReasonStatusCollecting
	}
	for _, r := range reasons {
		if r.SourceURL != "" {
			return ReasonStatusVerified
		}
	}
	return ReasonStatusCollecting
}

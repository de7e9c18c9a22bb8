package domain

import "time"

// CompareAxis is the sentiment/direction partition an EventReason is
// classified into for the evidence-compare card (spec.md §4.9).
type CompareAxis string

const (
	AxisPositive  CompareAxis = "positive"
	AxisNegative  CompareAxis = "negative"
	AxisUncertain CompareAxis = "uncertain"
)

// CompareStatus is whether a comparison payload has enough material.
type CompareStatus string

const (
	CompareReady       CompareStatus = "ready"
	CompareUnavailable CompareStatus = "compare_unavailable"
)

// CompareItem is one reason rendered onto an axis. Malformed items keep
// empty fields so the client can render its own fallback labels
// (spec.md §4.9).
type CompareItem struct {
	ReasonID    string
	Axis        CompareAxis
	Summary     string
	SourceURL   string
	PublishedAt *time.Time
	ReasonType  ReasonType
}

// EvidenceCompare is the derived, cached axis partition for an event.
type EvidenceCompare struct {
	EventID        string
	Status         CompareStatus
	FallbackReason FallbackReason
	BiasWarning    string
	Items          []CompareItem
	GeneratedAtUTC time.Time
}

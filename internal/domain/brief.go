package domain

import "time"

// BriefType is when the digest was generated (spec.md §3).
type BriefType string

const (
	BriefPreMarket BriefType = "pre_market"
	BriefPostClose BriefType = "post_close"
)

// FallbackReason explains why a Brief (or an EvidenceCompare) came back
// thin (spec.md §3, §4.6, §4.9).
type FallbackReason string

const (
	FallbackInsufficientData      FallbackReason = "insufficient_data"
	FallbackNoEvents              FallbackReason = "no_events"
	FallbackMarketHoliday         FallbackReason = "market_holiday"
	FallbackPartialAggregation    FallbackReason = "partial_aggregation"
	FallbackInsufficientEvidence  FallbackReason = "insufficient_evidence"
	FallbackAxisImbalance         FallbackReason = "axis_imbalance"
	FallbackAmbiguousClassifier   FallbackReason = "ambiguous_classification"
	FallbackMissingSourceMetadata FallbackReason = "missing_source_metadata"
	FallbackPermissionDenied      FallbackReason = "permission_denied"
)

// BriefReadStatus is per-user (spec.md §3).
type BriefReadStatus string

const (
	BriefUnread BriefReadStatus = "unread"
	BriefRead   BriefReadStatus = "read"
)

// BriefContentItem is one event's entry within a Brief.
type BriefContentItem struct {
	EventID        string
	Symbol         string
	ChangePct      float64
	Summary        string
	SourceURL      string
	EventDetailURL string
}

// Brief is a scheduled pre-market or post-close digest.
type Brief struct {
	ID             string
	UserID         string
	BriefType      BriefType
	GeneratedAtUTC time.Time
	Markets        []Market
	Items          []BriefContentItem
	FallbackReason FallbackReason // empty when none applies
	FloorCount     int            // item-count floor used for insufficient_data decision
	Status         BriefReadStatus
	ExpiresAtUTC   time.Time
}

// IsExpired reports whether a detail fetch against this brief should
// return brief_link_expired (spec.md §4.6).
func (b Brief) IsExpired(now time.Time) bool {
	return now.After(b.ExpiresAtUTC)
}

// Package reasonengine implements spec.md §4.3: fetch candidate
// filings/news, gate/canonicalize/dedupe, score, rank, and persist
// EventReason rows for a PriceEvent, plus the §4.4 rerun path.
package reasonengine

import (
	"context"
	"time"

	"github.com/kisuya/reasoncard/internal/domain"
)

// TimeRange bounds a candidate lookup (spec.md §4.3: "items published
// within [detected_at_utc − lookback, detected_at_utc + trailing]").
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Candidate is one raw item an adapter returns, before the gate.
type Candidate struct {
	ReasonType     domain.ReasonType
	Summary        string
	SourceURL      string
	PublishedAtUTC time.Time
	// RawText is extra candidate text (title, body excerpt) folded into
	// the event_match lexical-overlap signal; optional.
	RawText string
}

// Fetcher is the single-method adapter capability the Reason Engine
// needs (SPEC_FULL.md §9 design note: "Adapter polymorphism"). Filings
// and news sources, and deterministic test fixtures, all implement it.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, market domain.Market, tr TimeRange) ([]Candidate, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, symbol string, market domain.Market, tr TimeRange) ([]Candidate, error)

func (f FetcherFunc) Fetch(ctx context.Context, symbol string, market domain.Market, tr TimeRange) ([]Candidate, error) {
	return f(ctx, symbol, market, tr)
}

// NamedAdapter pairs a Fetcher with the name used for rate limiting,
// circuit breaking, and audit records (spec.md §4.3, §5).
type NamedAdapter struct {
	Name    string
	Fetcher Fetcher
}

// Explanation is the tagged-variant payload behind the schema-less
// JSON `explanation` field (SPEC_FULL.md §4.7, design note §9:
// "dynamic dictionaries ... model them as tagged variants keyed by
// reason_type"). Only the field set matching Kind is populated. No
// handler in internal/httpapi serializes this type.
type Explanation struct {
	Kind   domain.ReasonType
	Filing *FilingExplanation
	News   *NewsExplanation
	Other  *OtherExplanation
}

type FilingExplanation struct {
	FilingFormType string `json:"filing_form_type,omitempty"`
	Filer          string `json:"filer,omitempty"`
}

type NewsExplanation struct {
	Publisher string `json:"publisher,omitempty"`
	Headline  string `json:"headline,omitempty"`
}

type OtherExplanation struct {
	Note string `json:"note,omitempty"`
}

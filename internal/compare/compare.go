// Package compare implements the evidence-compare axis classifier
// (spec.md §4.9): partitions an event's reasons into positive/negative/
// uncertain using the configured polarity lexicon, with malformed-item
// and insufficient-material fallbacks. The event's own sign and each
// reason's reason_type do not affect the axis.
package compare

import (
	"strings"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/store"
)

// Classifier derives and caches EvidenceCompare payloads.
type Classifier struct {
	store *store.Store
	cfg   config.CompareConfig
	clock clockid.Clock
}

func New(st *store.Store, cfg config.CompareConfig, clock clockid.Clock) *Classifier {
	return &Classifier{store: st, cfg: cfg, clock: clock}
}

// Classify returns the cached EvidenceCompare for eventID if present,
// otherwise derives it from the event's current reasons and caches the
// result (spec.md §3: "EvidenceCompare (derived, cached)").
func (c *Classifier) Classify(eventID string) (domain.EvidenceCompare, error) {
	if cached, ok := c.store.GetCachedCompare(eventID); ok {
		return cached, nil
	}
	ev, reasons, err := c.store.GetEvent(eventID)
	if err != nil {
		return domain.EvidenceCompare{}, err
	}
	out := c.derive(ev, reasons)
	c.store.PutCachedCompare(out)
	return out, nil
}

// Invalidate drops the cache, used after a rerun replaces the reason
// set (spec.md §4.4 implies derived caches go stale on revision).
func (c *Classifier) Invalidate(eventID string) { c.store.InvalidateCompare(eventID) }

func (c *Classifier) derive(ev domain.PriceEvent, reasons []domain.EventReason) domain.EvidenceCompare {
	out := domain.EvidenceCompare{
		EventID:        ev.ID,
		GeneratedAtUTC: c.clock.Now(),
		BiasWarning:    "comparative evidence summary, not investment direction; read axes as evidence framing, not a buy/sell signal",
	}

	if len(reasons) < c.cfg.MinCompareItems {
		out.Status = domain.CompareUnavailable
		out.FallbackReason = domain.FallbackInsufficientEvidence
		return out
	}

	items := make([]domain.CompareItem, 0, len(reasons))
	for _, r := range reasons {
		items = append(items, c.classifyOne(ev, r))
	}
	out.Items = items

	positives, negatives := 0, 0
	for _, it := range items {
		switch it.Axis {
		case domain.AxisPositive:
			positives++
		case domain.AxisNegative:
			negatives++
		}
	}

	// spec.md §4.9: ready requires both axes populated, not just enough
	// total items — an event whose reasons are all uncertain, or whose
	// reasons all land on one side, still needs compare_unavailable even
	// though len(reasons) >= MinCompareItems (§8 scenario 6: uncertain
	// items stay in Items, only positive/negative end up empty).
	if positives == 0 || negatives == 0 {
		out.Status = domain.CompareUnavailable
		out.FallbackReason = domain.FallbackAxisImbalance
	} else {
		out.Status = domain.CompareReady
	}
	return out
}

// classifyOne applies the polarity lexicon to one reason's summary: a
// score at or above PolarityThreshold is positive, at or below its
// negative is negative, anything between is uncertain. The axis comes
// from the summary's language alone; ev's price direction and the
// reason's reason_type are not consulted. A reason with an empty
// summary or source_url is uncertain.
func (c *Classifier) classifyOne(ev domain.PriceEvent, r domain.EventReason) domain.CompareItem {
	item := domain.CompareItem{
		ReasonID:   r.ID,
		Summary:    r.Summary,
		SourceURL:  r.SourceURL,
		ReasonType: r.ReasonType,
	}
	if !r.PublishedAtUTC.IsZero() {
		t := r.PublishedAtUTC
		item.PublishedAt = &t
	}

	if strings.TrimSpace(r.Summary) == "" || r.SourceURL == "" {
		item.Axis = domain.AxisUncertain
		return item
	}

	score := c.lexiconScore(r.Summary)
	switch {
	case score >= c.cfg.PolarityThreshold:
		item.Axis = domain.AxisPositive
	case score <= -c.cfg.PolarityThreshold:
		item.Axis = domain.AxisNegative
	default:
		item.Axis = domain.AxisUncertain
	}
	return item
}

func (c *Classifier) lexiconScore(summary string) float64 {
	tokens := strings.FieldsFunc(strings.ToLower(summary), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	var total float64
	var hits int
	for _, tok := range tokens {
		if w, ok := c.cfg.Polarity[tok]; ok {
			total += w
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return total / float64(hits)
}

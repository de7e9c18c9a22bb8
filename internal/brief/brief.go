// Package brief implements the scheduled pre-market/post-close digest
// builder (spec.md §4.6): top-N events by |change_pct| across a user's
// watchlist, with a documented fallback reason when the floor count
// isn't met, and session-aware expiry via internal/sessioncal.
package brief

import (
	"sort"
	"time"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/sessioncal"
	"github.com/kisuya/reasoncard/internal/store"
)

// Builder generates Brief rows for a user from their recent events.
type Builder struct {
	store  *store.Store
	cfg    config.BriefConfig
	cals   map[string]config.MarketCalendar
	clock  clockid.Clock
	minter clockid.Minter
}

func New(st *store.Store, cfg config.BriefConfig, cals map[string]config.MarketCalendar, clock clockid.Clock, minter clockid.Minter) *Builder {
	return &Builder{store: st, cfg: cfg, cals: cals, clock: clock, minter: minter}
}

// Build assembles one Brief for userID over their watchlist symbols
// (spec.md §4.6): top cfg.TopN events by |change_pct| within
// cfg.LookbackWindow, or a fallback reason when too few qualify.
func (b *Builder) Build(userID string, briefType domain.BriefType, symbols []string, market map[string]domain.Market, now time.Time) domain.Brief {
	events, _ := b.store.ListRecentEventsForUser(userID, symbols, market, 0, "", now)

	cutoff := now.Add(-b.cfg.LookbackWindow)
	var inWindow []domain.PriceEvent
	for _, ev := range events {
		if ev.DetectedAtUTC.After(cutoff) {
			inWindow = append(inWindow, ev)
		}
	}
	sort.Slice(inWindow, func(i, j int) bool {
		return absf(inWindow[i].ChangePct) > absf(inWindow[j].ChangePct)
	})

	topN := b.cfg.TopN
	if topN <= 0 {
		topN = 10
	}
	if len(inWindow) > topN {
		inWindow = inWindow[:topN]
	}

	items := make([]domain.BriefContentItem, 0, len(inWindow))
	partialAggregation := false
	for _, ev := range inWindow {
		_, reasons, _ := b.store.GetEvent(ev.ID)
		summary, sourceURL := "", ""
		if len(reasons) > 0 {
			summary = reasons[0].Summary
			sourceURL = reasons[0].SourceURL
		} else {
			// spec.md §4.10: an event may persist with fewer reasons than
			// expected when adapters failed; zero reasons here means every
			// adapter failed for this event, so the brief is aggregating
			// over incomplete evidence.
			partialAggregation = true
		}
		items = append(items, domain.BriefContentItem{
			EventID:        ev.ID,
			Symbol:         ev.Symbol,
			ChangePct:      ev.ChangePct,
			Summary:        summary,
			SourceURL:      sourceURL,
			EventDetailURL: "/v1/events/" + ev.ID,
		})
	}

	fallback := b.fallbackReason(items, symbols, market, now, partialAggregation)

	br := domain.Brief{
		UserID:         userID,
		BriefType:      briefType,
		GeneratedAtUTC: now,
		Markets:        distinctMarkets(market, symbols),
		Items:          items,
		FallbackReason: fallback,
		FloorCount:     b.cfg.MinFloorCount,
		Status:         domain.BriefUnread,
		ExpiresAtUTC:   b.expiry(briefType, market, symbols, now),
	}
	return b.store.CreateBrief(br)
}

// fallbackReason follows spec.md §4.6's stated precedence: no_events,
// then partial_aggregation, then market_holiday, then insufficient_data.
func (b *Builder) fallbackReason(items []domain.BriefContentItem, symbols []string, market map[string]domain.Market, now time.Time, partialAggregation bool) domain.FallbackReason {
	if len(symbols) == 0 || len(items) == 0 {
		return domain.FallbackNoEvents
	}
	if partialAggregation {
		return domain.FallbackPartialAggregation
	}
	if anyMarketHoliday(b.cals, market, symbols, now) {
		return domain.FallbackMarketHoliday
	}
	if len(items) < b.cfg.MinFloorCount {
		return domain.FallbackInsufficientData
	}
	return ""
}

func anyMarketHoliday(cals map[string]config.MarketCalendar, market map[string]domain.Market, symbols []string, now time.Time) bool {
	seen := map[domain.Market]bool{}
	for _, sym := range symbols {
		seen[market[sym]] = true
	}
	for m := range seen {
		cal, ok := cals[string(m)]
		if !ok {
			continue
		}
		// One all-day session: Resolve reports closed only on a listed
		// holiday, so ordinary off-hours do not count as a holiday.
		allDay := config.MarketCalendar{
			Timezone: cal.Timezone,
			Holidays: cal.Holidays,
			Sessions: []config.SessionWindow{{Label: string(domain.SessionRegular), Start: "00:00", End: "24:00"}},
		}
		label, err := sessioncal.Resolve(allDay, now)
		if err == nil && label == domain.SessionClosed {
			return true
		}
	}
	return false
}

func distinctMarkets(market map[string]domain.Market, symbols []string) []domain.Market {
	seen := map[domain.Market]bool{}
	var out []domain.Market
	for _, sym := range symbols {
		m := market[sym]
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// expiry implements spec.md §4.6: pre_market briefs expire at the next
// session open, post_close briefs expire 24h after generation.
func (b *Builder) expiry(briefType domain.BriefType, market map[string]domain.Market, symbols []string, now time.Time) time.Time {
	if briefType == domain.BriefPostClose {
		return now.Add(24 * time.Hour)
	}
	var earliest time.Time
	for _, m := range distinctMarkets(market, symbols) {
		cal, ok := b.cals[string(m)]
		if !ok {
			continue
		}
		open := nextSessionOpen(cal, now)
		if earliest.IsZero() || open.Before(earliest) {
			earliest = open
		}
	}
	if earliest.IsZero() {
		return now.Add(24 * time.Hour)
	}
	return earliest
}

// nextSessionOpen walks forward in 15-minute steps (bounded to 7 days)
// until sessioncal reports a regular session; adequate for a scheduled
// daily brief where exact market-open precision isn't required.
func nextSessionOpen(cal config.MarketCalendar, from time.Time) time.Time {
	t := from
	for i := 0; i < 7*24*4; i++ {
		t = t.Add(15 * time.Minute)
		label, err := sessioncal.Resolve(cal, t)
		if err == nil && label == domain.SessionRegular {
			return t
		}
	}
	return from.Add(24 * time.Hour)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

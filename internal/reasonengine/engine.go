package reasonengine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kisuya/reasoncard/internal/auditlog"
	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/ratelimit"
	"github.com/kisuya/reasoncard/internal/store"
)

// Engine ties the adapter fan-out, gate/dedupe/score pipeline, and the
// single-commit persistence step together (spec.md §4.3).
type Engine struct {
	store    *store.Store
	cfg      config.ReasonEngineConfig
	adapters []NamedAdapter
	limiter  *ratelimit.Keyed
	breakers *Breakers
	audit    *auditlog.Sink
	clock    clockid.Clock
	minter   clockid.Minter
	log      zerolog.Logger
}

// Breakers exposes the engine's per-adapter circuit breakers so the
// caller can wire a metrics sink (internal/metrics.Registry) into them
// before the engine starts processing events.
func (e *Engine) Breakers() *Breakers { return e.breakers }

func New(st *store.Store, cfg config.ReasonEngineConfig, adapters []NamedAdapter, audit *auditlog.Sink, clock clockid.Clock, minter clockid.Minter, log zerolog.Logger) *Engine {
	return &Engine{
		store:    st,
		cfg:      cfg,
		adapters: adapters,
		limiter:  ratelimit.NewKeyed(2, 4),
		breakers: NewBreakers(30 * time.Second),
		audit:    audit,
		clock:    clock,
		minter:   minter,
		log:      log.With().Str("component", "reason_engine").Logger(),
	}
}

// pipeline runs fan-out -> gate -> dedupe -> score -> rank/top3 and
// returns the EventReason rows for eventID, plus per-adapter fetch
// durations for the audit mirror.
func (e *Engine) pipeline(ctx context.Context, eventID, symbol string, market domain.Market, detectedAt time.Time) ([]domain.EventReason, map[string]int64) {
	tr := TimeRange{
		From: detectedAt.Add(-e.cfg.LookbackBefore),
		To:   detectedAt.Add(e.cfg.TrailingAfter),
	}
	outcomes := FanOut(ctx, e.adapters, symbol, market, tr, e.cfg, e.limiter, e.breakers)

	durations := make(map[string]int64, len(outcomes))
	var gated []Candidate
	for _, o := range outcomes {
		durations[o.Adapter] = o.Duration.Milliseconds()
		if e.audit != nil {
			e.audit.RecordFetch(ctx, eventID, o.Adapter, o.Duration, len(o.Candidates), o.Err)
		}
		if o.Err != nil {
			e.log.Warn().Err(o.Err).Str("adapter", o.Adapter).Str("event_id", eventID).Msg("adapter fetch failed")
			continue
		}
		for _, c := range o.Candidates {
			if PassesGate(c) {
				gated = append(gated, c)
			}
		}
	}

	deduped, err := DedupeMerge(gated, e.cfg)
	if err != nil {
		e.log.Error().Err(err).Str("event_id", eventID).Msg("dedupe failed")
	}

	winners := RankAndSelect(symbol, deduped, detectedAt, e.cfg)
	reasons := make([]domain.EventReason, len(winners))
	for i, w := range winners {
		breakdown := w.Breakdown
		reasons[i] = domain.EventReason{
			ID:                  e.minter.NewID(),
			EventID:             eventID,
			Rank:                i + 1,
			ReasonType:          w.Candidate.ReasonType,
			ConfidenceScore:     breakdown.Total,
			Summary:             w.Candidate.Summary,
			SourceURL:           w.Candidate.SourceURL,
			PublishedAtUTC:      w.Candidate.PublishedAtUTC,
			ConfidenceBreakdown: &breakdown,
			FetchDurationsMS:    durations,
		}
	}
	return reasons, durations
}

// ProcessEvent runs the pipeline for a freshly detected PriceEvent and
// commits the event with its initial reasons in one store call
// (spec.md §4.1: "a PriceEvent is never observable without its reason
// rows").
func (e *Engine) ProcessEvent(ctx context.Context, ev domain.PriceEvent) (domain.PriceEvent, []domain.EventReason, error) {
	if ev.ID == "" {
		ev.ID = e.minter.NewID()
	}
	reasons, _ := e.pipeline(ctx, ev.ID, ev.Symbol, ev.Market, ev.DetectedAtUTC)
	return e.store.CreateEventWithReasons(ev, reasons)
}

// Rerun implements spec.md §4.4: resolving a ReasonReport may trigger a
// fresh pipeline pass over the same event; the prior reason set is
// replaced and a ReasonRevision records the confidence delta for the
// reported reason, stamped to changedAt (the resolve transition's own
// timestamp, per the spec's "revised_at_utc equals the transition
// time" rule).
func (e *Engine) Rerun(ctx context.Context, report domain.ReasonReport, changedAt time.Time) (domain.ReasonRevision, error) {
	ev, before, err := e.store.GetEvent(report.EventID)
	if err != nil {
		return domain.ReasonRevision{}, err
	}
	var beforeScore float64
	for _, r := range before {
		if r.ID == report.ReasonID {
			beforeScore = r.ConfidenceScore
			break
		}
	}

	reasons, _ := e.pipeline(ctx, ev.ID, ev.Symbol, ev.Market, ev.DetectedAtUTC)
	if err := e.store.ReplaceReasons(ev.ID, reasons); err != nil {
		return domain.ReasonRevision{}, err
	}

	var afterScore float64
	var afterID string
	for _, r := range reasons {
		if r.SourceURL == sourceURLFor(before, report.ReasonID) {
			afterScore = r.ConfidenceScore
			afterID = r.ID
			break
		}
	}
	if afterID == "" && len(reasons) > 0 {
		afterID = reasons[0].ID
		afterScore = reasons[0].ConfidenceScore
	}

	rev := e.store.RecordRevision(domain.ReasonRevision{
		ID:               e.minter.NewID(),
		EventID:          ev.ID,
		ReasonID:         afterID,
		ReportID:         report.ID,
		ConfidenceBefore: beforeScore,
		ConfidenceAfter:  afterScore,
		RevisionReason:   fmt.Sprintf("rerun after report %s resolved", report.ID),
		RevisedAtUTC:     changedAt,
	})
	return rev, nil
}

func sourceURLFor(reasons []domain.EventReason, reasonID string) string {
	for _, r := range reasons {
		if r.ID == reasonID {
			return r.SourceURL
		}
	}
	return ""
}

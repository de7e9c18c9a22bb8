package brief

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/store"
)

func TestBuildTopNByAbsChangePct(t *testing.T) {
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	st := store.New(clockid.FixedClock{At: now}, clockid.NewSequenceMinter("id"))

	market := map[string]domain.Market{"AAPL": domain.MarketUS, "MSFT": domain.MarketUS}
	st.CreateEventWithReasons(domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", ChangePct: -8.0, DetectedAtUTC: now.Add(-time.Hour)}, []domain.EventReason{
		{Rank: 1, ReasonType: domain.ReasonNews, Summary: "AAPL slides on guidance cut", SourceURL: "https://reuters.com/a"},
	})
	st.CreateEventWithReasons(domain.PriceEvent{Market: domain.MarketUS, Symbol: "MSFT", ChangePct: 3.0, DetectedAtUTC: now.Add(-time.Hour)}, []domain.EventReason{
		{Rank: 1, ReasonType: domain.ReasonNews, Summary: "MSFT gains on cloud growth", SourceURL: "https://reuters.com/b"},
	})

	cfg := config.Default().Brief
	cfg.MinFloorCount = 1
	b := New(st, cfg, config.Default().Calendars, clockid.FixedClock{At: now}, clockid.NewSequenceMinter("brief"))

	br := b.Build("u1", domain.BriefPreMarket, []string{"AAPL", "MSFT"}, market, now)
	require.Len(t, br.Items, 2)
	require.Equal(t, "AAPL", br.Items[0].Symbol, "larger |change_pct| ranks first")
	require.Empty(t, br.FallbackReason)
}

func TestBuildFallsBackWhenBelowFloor(t *testing.T) {
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	st := store.New(clockid.FixedClock{At: now}, clockid.NewSequenceMinter("id"))
	cfg := config.Default().Brief
	cfg.MinFloorCount = 3
	b := New(st, cfg, config.Default().Calendars, clockid.FixedClock{At: now}, clockid.NewSequenceMinter("brief"))

	market := map[string]domain.Market{"AAPL": domain.MarketUS}
	br := b.Build("u1", domain.BriefPreMarket, []string{"AAPL"}, market, now)
	require.Equal(t, domain.FallbackNoEvents, br.FallbackReason)
}

func TestBuildFallsBackWhenReasonsMissing(t *testing.T) {
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	st := store.New(clockid.FixedClock{At: now}, clockid.NewSequenceMinter("id"))
	cfg := config.Default().Brief
	cfg.MinFloorCount = 1
	b := New(st, cfg, config.Default().Calendars, clockid.FixedClock{At: now}, clockid.NewSequenceMinter("brief"))

	market := map[string]domain.Market{"AAPL": domain.MarketUS}
	st.CreateEventWithReasons(domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", ChangePct: -8.0, DetectedAtUTC: now.Add(-time.Hour)}, nil)

	br := b.Build("u1", domain.BriefPreMarket, []string{"AAPL"}, market, now)
	require.Equal(t, domain.FallbackPartialAggregation, br.FallbackReason)
}

func TestBuildPostCloseExpiresIn24h(t *testing.T) {
	now := time.Date(2026, 7, 31, 20, 5, 0, 0, time.UTC)
	st := store.New(clockid.FixedClock{At: now}, clockid.NewSequenceMinter("id"))
	cfg := config.Default().Brief
	b := New(st, cfg, config.Default().Calendars, clockid.FixedClock{At: now}, clockid.NewSequenceMinter("brief"))

	market := map[string]domain.Market{"AAPL": domain.MarketUS}
	br := b.Build("u1", domain.BriefPostClose, []string{"AAPL"}, market, now)
	require.Equal(t, now.Add(24*time.Hour), br.ExpiresAtUTC)
}

package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/detector"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/notifier"
	"github.com/kisuya/reasoncard/internal/store"
)

// fixedFeed replays one price per (market, symbol) call, stamping each
// tick with its own clock; the test advances that clock between sweeps
// so successive ticks land in the detector's window.
type fixedFeed struct {
	prices map[string]float64
	clock  clockid.FixedClock
}

func (f *fixedFeed) LatestTick(ctx context.Context, market domain.Market, symbol string) (detector.Tick, error) {
	return detector.Tick{
		Market:    string(market),
		Symbol:    symbol,
		Timestamp: f.clock.Now(),
		Price:     f.prices[symbol],
	}, nil
}

func TestSweepEmitsEventOnThresholdBreach(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	clock := clockid.FixedClock{At: base}
	st := store.New(clock, clockid.NewSequenceMinter("id"))

	_, _, err := st.AddWatchlistItem("u1", domain.MarketUS, "AAPL")
	require.NoError(t, err)

	feed := &fixedFeed{prices: map[string]float64{"AAPL": 100.0}, clock: clock}
	det := detector.New()
	cfg := config.Default().Detector

	notif := notifier.New(st, config.Default().Notifier, clock, clockid.NewSequenceMinter("notif"), nil, zerolog.Nop())

	sc := New(det, st, nil, notif, feed, map[string]config.MarketCalendar{}, cfg, clock, clockid.NewSequenceMinter("ev"), time.Minute, zerolog.Nop())

	sc.sweep(context.Background())

	feed.prices["AAPL"] = 110.0
	feed.clock.At = base.Add(time.Minute)
	sc.sweep(context.Background())

	notifs, total := st.ListNotifications("u1", 1, 10)
	require.Equal(t, 1, total)
	require.Len(t, notifs, 1)
	require.Contains(t, notifs[0].Message, "AAPL")
}

func TestEvaluateSymbolSkipsOnFeedError(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	clock := clockid.FixedClock{At: base}
	st := store.New(clock, clockid.NewSequenceMinter("id"))
	det := detector.New()
	cfg := config.Default().Detector

	sc := New(det, st, nil, nil, erroringFeed{}, nil, cfg, clock, clockid.NewSequenceMinter("ev"), time.Minute, zerolog.Nop())
	sc.evaluateSymbol(context.Background(), domain.MarketUS, "AAPL")
}

type erroringFeed struct{}

func (erroringFeed) LatestTick(ctx context.Context, market domain.Market, symbol string) (detector.Tick, error) {
	return detector.Tick{}, assertError{}
}

type assertError struct{}

func (assertError) Error() string { return "feed unavailable" }

package reasonengine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/store"
)

func fixtureFetcher(cands []Candidate, err error) Fetcher {
	return FetcherFunc(func(ctx context.Context, symbol string, market domain.Market, tr TimeRange) ([]Candidate, error) {
		return cands, err
	})
}

func TestProcessEventCommitsTopThreeReasons(t *testing.T) {
	detectedAt := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cfg := config.Default().ReasonEngine

	adapters := []NamedAdapter{
		{Name: "sec", Fetcher: fixtureFetcher([]Candidate{
			{ReasonType: domain.ReasonFiling, Summary: "AAPL 8-K filed", SourceURL: "https://sec.gov/f1", PublishedAtUTC: detectedAt.Add(-time.Hour)},
		}, nil)},
		{Name: "news", Fetcher: fixtureFetcher([]Candidate{
			{ReasonType: domain.ReasonNews, Summary: "AAPL surges on earnings beat", SourceURL: "https://reuters.com/n1", PublishedAtUTC: detectedAt.Add(-30 * time.Minute)},
			{ReasonType: domain.ReasonNews, Summary: "AAPL analyst note", SourceURL: "https://cnbc.com/n2", PublishedAtUTC: detectedAt.Add(-2 * time.Hour)},
			{ReasonType: domain.ReasonNews, Summary: "AAPL unrelated chatter", SourceURL: "https://unknownblog.test/n3", PublishedAtUTC: detectedAt.Add(-3 * time.Hour)},
		}, nil)},
	}

	st := store.New(clockid.FixedClock{At: detectedAt}, clockid.NewSequenceMinter("id"))
	eng := New(st, cfg, adapters, nil, clockid.FixedClock{At: detectedAt}, clockid.NewSequenceMinter("reason"), zerolog.Nop())

	ev := domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", ChangePct: 4.2, WindowMinutes: 5, DetectedAtUTC: detectedAt}
	committed, reasons, err := eng.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	require.NotEmpty(t, committed.ID)
	require.LessOrEqual(t, len(reasons), 3)
	require.True(t, len(reasons) >= 1)
	for i, r := range reasons {
		require.Equal(t, i+1, r.Rank)
		require.NotNil(t, r.ConfidenceBreakdown)
	}

	gotEv, gotReasons, err := st.GetEvent(committed.ID)
	require.NoError(t, err)
	require.Equal(t, "AAPL", gotEv.Symbol)
	require.Len(t, gotReasons, len(reasons))
}

func TestProcessEventSurvivesAdapterFailure(t *testing.T) {
	detectedAt := time.Now()
	cfg := config.Default().ReasonEngine
	adapters := []NamedAdapter{
		{Name: "broken", Fetcher: fixtureFetcher(nil, context.DeadlineExceeded)},
		{Name: "news", Fetcher: fixtureFetcher([]Candidate{
			{ReasonType: domain.ReasonNews, Summary: "AAPL update", SourceURL: "https://reuters.com/ok", PublishedAtUTC: detectedAt},
		}, nil)},
	}
	st := store.New(clockid.FixedClock{At: detectedAt}, clockid.NewSequenceMinter("id"))
	eng := New(st, cfg, adapters, nil, clockid.FixedClock{At: detectedAt}, clockid.NewSequenceMinter("reason"), zerolog.Nop())

	_, reasons, err := eng.ProcessEvent(context.Background(), domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", DetectedAtUTC: detectedAt})
	require.NoError(t, err, "one adapter failing must not fail the whole commit")
	require.Len(t, reasons, 1)
}

func TestRerunReplacesReasonsAndRecordsRevision(t *testing.T) {
	detectedAt := time.Now()
	cfg := config.Default().ReasonEngine
	adapters := []NamedAdapter{
		{Name: "news", Fetcher: fixtureFetcher([]Candidate{
			{ReasonType: domain.ReasonNews, Summary: "AAPL update", SourceURL: "https://reuters.com/ok", PublishedAtUTC: detectedAt},
		}, nil)},
	}
	st := store.New(clockid.FixedClock{At: detectedAt}, clockid.NewSequenceMinter("id"))
	eng := New(st, cfg, adapters, nil, clockid.FixedClock{At: detectedAt}, clockid.NewSequenceMinter("reason"), zerolog.Nop())

	ev, reasons, err := eng.ProcessEvent(context.Background(), domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", DetectedAtUTC: detectedAt})
	require.NoError(t, err)
	require.Len(t, reasons, 1)

	report, err := st.CreateReport("u1", ev.ID, reasons[0].ID, domain.ReportInaccurateReason, "wrong")
	require.NoError(t, err)
	resolved, err := st.TransitionReport(report.ID, domain.ReportResolved, "fixed")
	require.NoError(t, err)

	changedAt := detectedAt.Add(time.Minute)
	rev, err := eng.Rerun(context.Background(), resolved, changedAt)
	require.NoError(t, err)
	require.Equal(t, changedAt, rev.RevisedAtUTC)
	require.Equal(t, ev.ID, rev.EventID)

	_, after, err := st.GetEvent(ev.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
}

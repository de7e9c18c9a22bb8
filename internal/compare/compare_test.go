package compare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/store"
)

func TestClassifyPositiveNegativeUncertain(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	st := store.New(clockid.FixedClock{At: now}, clockid.NewSequenceMinter("id"))
	ev, _, err := st.CreateEventWithReasons(domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", ChangePct: 4.0, DetectedAtUTC: now}, []domain.EventReason{
		{Rank: 1, ReasonType: domain.ReasonNews, Summary: "AAPL surges on earnings beat", SourceURL: "https://reuters.com/a"},
		{Rank: 2, ReasonType: domain.ReasonNews, Summary: "AAPL faces investigation over recall", SourceURL: "https://reuters.com/b"},
		{Rank: 3, ReasonType: domain.ReasonOther, Summary: "AAPL mentioned in market roundup", SourceURL: "https://reuters.com/c"},
	})
	require.NoError(t, err)

	c := New(st, config.Default().Compare, clockid.FixedClock{At: now})
	out, err := c.Classify(ev.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CompareReady, out.Status)
	require.Len(t, out.Items, 3)
	require.Equal(t, domain.AxisPositive, out.Items[0].Axis)
	require.Equal(t, domain.AxisNegative, out.Items[1].Axis)
	require.Equal(t, domain.AxisUncertain, out.Items[2].Axis)
}

func TestClassifyInsufficientEvidence(t *testing.T) {
	now := time.Now()
	st := store.New(clockid.FixedClock{At: now}, clockid.NewSequenceMinter("id"))
	ev, _, err := st.CreateEventWithReasons(domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", DetectedAtUTC: now}, []domain.EventReason{
		{Rank: 1, ReasonType: domain.ReasonNews, Summary: "AAPL surges", SourceURL: "https://reuters.com/a"},
	})
	require.NoError(t, err)

	c := New(st, config.Default().Compare, clockid.FixedClock{At: now})
	out, err := c.Classify(ev.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CompareUnavailable, out.Status)
	require.Equal(t, domain.FallbackInsufficientEvidence, out.FallbackReason)
}

func TestClassifyMalformedItemGoesToUncertain(t *testing.T) {
	now := time.Now()
	st := store.New(clockid.FixedClock{At: now}, clockid.NewSequenceMinter("id"))
	ev, _, err := st.CreateEventWithReasons(domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", DetectedAtUTC: now}, []domain.EventReason{
		{Rank: 1, ReasonType: domain.ReasonNews, Summary: "", SourceURL: ""},
		{Rank: 2, ReasonType: domain.ReasonNews, Summary: "AAPL surges", SourceURL: "https://reuters.com/a"},
	})
	require.NoError(t, err)

	c := New(st, config.Default().Compare, clockid.FixedClock{At: now})
	out, err := c.Classify(ev.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AxisUncertain, out.Items[0].Axis)
	require.Empty(t, out.Items[0].Summary)
}

func TestClassifyCachesResult(t *testing.T) {
	now := time.Now()
	st := store.New(clockid.FixedClock{At: now}, clockid.NewSequenceMinter("id"))
	ev, _, err := st.CreateEventWithReasons(domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", DetectedAtUTC: now}, []domain.EventReason{
		{Rank: 1, ReasonType: domain.ReasonNews, Summary: "AAPL surges", SourceURL: "https://reuters.com/a"},
		{Rank: 2, ReasonType: domain.ReasonNews, Summary: "AAPL miss", SourceURL: "https://reuters.com/b"},
	})
	require.NoError(t, err)

	c := New(st, config.Default().Compare, clockid.FixedClock{At: now})
	first, err := c.Classify(ev.ID)
	require.NoError(t, err)
	cached, ok := st.GetCachedCompare(ev.ID)
	require.True(t, ok)
	require.Equal(t, first.GeneratedAtUTC, cached.GeneratedAtUTC)

	c.Invalidate(ev.ID)
	_, ok = st.GetCachedCompare(ev.ID)
	require.False(t, ok)
}

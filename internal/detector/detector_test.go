package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDetectionScenario implements spec.md §8 scenario 1.
func TestDetectionScenario(t *testing.T) {
	d := New()
	base := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)

	_, ok := d.ObserveWindow("US", "AAPL", 5, Tick{Market: "US", Symbol: "AAPL", Timestamp: base, Price: 100.0})
	require.False(t, ok, "single tick cannot form a window")

	changePct, ok := d.ObserveWindow("US", "AAPL", 5, Tick{Market: "US", Symbol: "AAPL", Timestamp: base.Add(4 * time.Minute), Price: 104.2})
	require.True(t, ok)
	require.InDelta(t, 4.2, changePct, 1e-9)

	decision := d.Evaluate(DebounceKey{ContextID: "u1", Market: "US", Symbol: "AAPL", WindowMinutes: 5}, changePct, 3.0, base.Add(4*time.Minute), 10*time.Minute, 5.0)
	require.True(t, decision.Emit)
	require.False(t, decision.DeltaRealert)
}

// TestDebounceAndDeltaRealert implements spec.md §8 scenario 2.
func TestDebounceAndDeltaRealert(t *testing.T) {
	d := New()
	base := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)
	key := DebounceKey{ContextID: "u1", Market: "US", Symbol: "AAPL", WindowMinutes: 5}

	d.ObserveWindow("US", "AAPL", 5, Tick{Market: "US", Symbol: "AAPL", Timestamp: base, Price: 100.0})
	changePct, _ := d.ObserveWindow("US", "AAPL", 5, Tick{Market: "US", Symbol: "AAPL", Timestamp: base.Add(4 * time.Minute), Price: 104.2})
	first := d.Evaluate(key, changePct, 3.0, base.Add(4*time.Minute), 10*time.Minute, 1.0)
	require.True(t, first.Emit)

	// t=5m, 104.5: tiny move off the reference, still inside debounce window
	changePct2, _ := d.ObserveWindow("US", "AAPL", 5, Tick{Market: "US", Symbol: "AAPL", Timestamp: base.Add(5 * time.Minute), Price: 104.5})
	second := d.Evaluate(key, changePct2, 3.0, base.Add(5*time.Minute), 10*time.Minute, 1.0)
	require.False(t, second.Emit, "debounced: no new event")

	// t=6m, 110.0: the 100.0 tick has left the 5-minute window, so change_pct
	// is measured from 104.2 (~5.57%); its distance from the last-emitted
	// 4.2% (~1.37) exceeds delta_pct_for_realert (1.0)
	changePct3, _ := d.ObserveWindow("US", "AAPL", 5, Tick{Market: "US", Symbol: "AAPL", Timestamp: base.Add(6 * time.Minute), Price: 110.0})
	third := d.Evaluate(key, changePct3, 3.0, base.Add(6*time.Minute), 10*time.Minute, 1.0)
	require.True(t, third.Emit)
	require.True(t, third.DeltaRealert, "bypassed cooldown via delta re-alert")
}

func TestEdgeCasesDropSymbol(t *testing.T) {
	d := New()
	base := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)

	_, ok := d.ObserveWindow("US", "ZERO", 5, Tick{Timestamp: base, Price: 0})
	require.False(t, ok)
	_, ok = d.ObserveWindow("US", "ZERO", 5, Tick{Timestamp: base.Add(time.Minute), Price: 5})
	require.False(t, ok, "reference price <= 0 drops the symbol for this cycle")

	_, ok = d.ObserveWindow("US", "NAN", 5, Tick{Timestamp: base, Price: 1})
	require.True(t, !ok) // first tick alone never emits, regardless
}

func TestPickWinnerTieBreak(t *testing.T) {
	now := time.Now()
	// larger |change_pct| wins
	require.Equal(t, -1, PickWinner(5.0, now, 3.0, now))
	require.Equal(t, 1, PickWinner(3.0, now, 5.0, now))
	// equal magnitude: earliest detected_at_utc wins
	require.Equal(t, -1, PickWinner(4.0, now, 4.0, now.Add(time.Second)))
}

// Package detector implements spec.md §4.2: rolling-window percent-change
// detection with per-key debounce and delta re-alert. Session labels are
// not resolved here; internal/scanner resolves them via internal/sessioncal.
package detector

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Tick is one (symbol, market, timestamp_utc, price) observation
// (spec.md §4.2).
type Tick struct {
	Market    string
	Symbol    string
	Timestamp time.Time
	Price     float64
}

// windowKey identifies one rolling window.
type windowKey struct {
	Market        string
	Symbol        string
	WindowMinutes int
}

// DebounceKey identifies one debounce/delta-realert context. ContextID
// is the user id when scanning a specific user's watchlist, or the
// sentinel GlobalContext when scanning with the system default
// threshold (spec.md §4.2: "the per-user threshold ... or a system
// default when scanning globally").
type DebounceKey struct {
	ContextID     string
	Market        string
	Symbol        string
	WindowMinutes int
}

// GlobalContext is the debounce ContextID used by scheduled/global
// scans that are not evaluating any one user's threshold.
const GlobalContext = "__global__"

type debounceState struct {
	lastChangePct float64
	lastEmitAt    time.Time
}

// Detector holds rolling tick windows and debounce state. Safe for
// concurrent use; the spec's "no ordering guarantee across symbols"
// (§5) means callers may invoke Observe concurrently for different
// symbols, but ticks for the same (market,symbol,window) must arrive
// in timestamp order (synchronous stream, per spec.md §4.2).
type Detector struct {
	mu        sync.Mutex
	windows   map[windowKey][]Tick
	debounce  map[DebounceKey]debounceState
	maxTicks  int // safety cap per window to bound memory
}

func New() *Detector {
	return &Detector{
		windows:  map[windowKey][]Tick{},
		debounce: map[DebounceKey]debounceState{},
		maxTicks: 10_000,
	}
}

func windowKeyFor(market, symbol string, windowMinutes int) windowKey {
	return windowKey{Market: market, Symbol: symbol, WindowMinutes: windowMinutes}
}

// ObserveWindow appends tick to the (market,symbol,windowMinutes)
// rolling window, trims ticks that fell outside the window, and
// returns the computed change_pct. ok is false on any edge case from
// spec.md §4.2: fewer than two ticks in window, a non-positive
// reference price, or a NaN/Inf price (such a tick is rejected before it
// enters the window; the ticks already in the window are kept). One Detector
// instance serves every configured window size concurrently.
func (d *Detector) ObserveWindow(market, symbol string, windowMinutes int, tick Tick) (changePct float64, ok bool) {
	if math.IsNaN(tick.Price) || math.IsInf(tick.Price, 0) {
		return 0, false
	}
	key := windowKeyFor(market, symbol, windowMinutes)
	d.mu.Lock()
	defer d.mu.Unlock()

	ticks := append(d.windows[key], tick)
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Timestamp.Before(ticks[j].Timestamp) })
	cutoff := tick.Timestamp.Add(-time.Duration(windowMinutes) * time.Minute)
	trimmed := make([]Tick, 0, len(ticks))
	for _, tk := range ticks {
		if !tk.Timestamp.Before(cutoff) {
			trimmed = append(trimmed, tk)
		}
	}
	if len(trimmed) > d.maxTicks {
		trimmed = trimmed[len(trimmed)-d.maxTicks:]
	}
	d.windows[key] = trimmed

	if len(trimmed) < 2 {
		return 0, false
	}
	reference := trimmed[0].Price
	if reference <= 0 {
		return 0, false
	}
	last := trimmed[len(trimmed)-1].Price
	return (last - reference) / reference * 100, true
}

// Decision is the debounce/delta-realert outcome for one evaluation
// (spec.md §4.2).
type Decision struct {
	Emit         bool
	DeltaRealert bool
}

// Evaluate applies the effective threshold and the debounce/delta-
// realert rule for key, given the freshly computed changePct.
func (d *Detector) Evaluate(key DebounceKey, changePct, thresholdPct float64, now time.Time, debounceDuration time.Duration, deltaPctForRealert float64) Decision {
	if math.Abs(changePct) < thresholdPct {
		return Decision{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	state, existed := d.debounce[key]
	if !existed {
		d.debounce[key] = debounceState{lastChangePct: changePct, lastEmitAt: now}
		return Decision{Emit: true}
	}

	elapsed := now.Sub(state.lastEmitAt)
	if elapsed >= debounceDuration {
		d.debounce[key] = debounceState{lastChangePct: changePct, lastEmitAt: now}
		return Decision{Emit: true}
	}

	delta := math.Abs(changePct - state.lastChangePct)
	if delta >= deltaPctForRealert {
		d.debounce[key] = debounceState{lastChangePct: changePct, lastEmitAt: now}
		return Decision{Emit: true, DeltaRealert: true}
	}

	return Decision{}
}

// EvictBefore drops debounce entries whose last emit predates cutoff,
// bounding memory for the cooldown/debounce arena (SPEC_FULL.md §9
// design note: "periodic eviction by timestamp").
func (d *Detector) EvictBefore(cutoff time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	evicted := 0
	for k, st := range d.debounce {
		if st.lastEmitAt.Before(cutoff) {
			delete(d.debounce, k)
			evicted++
		}
	}
	return evicted
}

// PickWinner implements the tie-break rule from spec.md §4.2: prefer
// the larger |change_pct|, then the earliest detected_at_utc.
func PickWinner(changePctA float64, detectedAtA time.Time, changePctB float64, detectedAtB time.Time) int {
	ai, bi := math.Abs(changePctA), math.Abs(changePctB)
	if ai != bi {
		if ai > bi {
			return -1
		}
		return 1
	}
	if detectedAtA.Before(detectedAtB) {
		return -1
	}
	if detectedAtB.Before(detectedAtA) {
		return 1
	}
	return 0
}

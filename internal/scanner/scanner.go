// Package scanner is the orchestration loop wiring internal/detector's
// rolling-window math to internal/store's watchlists and thresholds and
// on to the Reason Engine and notifier: it is the piece of spec.md §4.2
// that decides which symbols to tick, at what cadence, and what to do
// with each emitted PriceEvent. Grounded on the notifier's ticker/
// done-channel/WaitGroup run-loop shape (internal/notifier/notifier.go),
// itself grounded on other_examples' alert engine.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/detector"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/notifier"
	"github.com/kisuya/reasoncard/internal/reasonengine"
	"github.com/kisuya/reasoncard/internal/sessioncal"
	"github.com/kisuya/reasoncard/internal/store"
)

// PriceFeed is the external collaborator supplying the latest tick for
// a tracked symbol (spec.md §1: the market-data source is someone
// else's job; this interface is the seam).
type PriceFeed interface {
	LatestTick(ctx context.Context, market domain.Market, symbol string) (detector.Tick, error)
}

// Scanner polls PriceFeed for every distinct tracked symbol on an
// interval, runs each tick through the Detector, and on a debounced
// threshold breach fans out a PriceEvent to the Reason Engine queue and
// a Notification to every watching user.
type Scanner struct {
	detector *detector.Detector
	store    *store.Store
	queue    *reasonengine.Queue
	notifier *notifier.Notifier
	feed     PriceFeed
	cals     map[string]config.MarketCalendar
	cfg      config.DetectorConfig
	clock    clockid.Clock
	minter   clockid.Minter
	log      zerolog.Logger

	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

func New(det *detector.Detector, st *store.Store, queue *reasonengine.Queue, notif *notifier.Notifier, feed PriceFeed, cals map[string]config.MarketCalendar, cfg config.DetectorConfig, clock clockid.Clock, minter clockid.Minter, interval time.Duration, log zerolog.Logger) *Scanner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scanner{
		detector: det, store: st, queue: queue, notifier: notif, feed: feed,
		cals: cals, cfg: cfg, clock: clock, minter: minter,
		interval: interval, log: log.With().Str("component", "scanner").Logger(),
		done: make(chan struct{}),
	}
}

// Run starts the polling loop in the background. Call Stop to end it.
func (sc *Scanner) Run(ctx context.Context) {
	sc.wg.Add(1)
	go sc.loop(ctx)
}

func (sc *Scanner) loop(ctx context.Context) {
	defer sc.wg.Done()
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sc.done:
			return
		case <-ticker.C:
			sc.sweep(ctx)
		}
	}
}

// sweep polls every distinct tracked symbol once. Each symbol's fetch
// and evaluation runs independently; one symbol's feed error never
// blocks another (spec.md §5: "no ordering guarantee across symbols").
func (sc *Scanner) sweep(ctx context.Context) {
	for _, sym := range sc.store.DistinctTrackedSymbols() {
		sc.evaluateSymbol(ctx, sym.Market, sym.Ticker)
	}
}

func (sc *Scanner) evaluateSymbol(ctx context.Context, market domain.Market, symbol string) {
	tick, err := sc.feed.LatestTick(ctx, market, symbol)
	if err != nil {
		sc.log.Warn().Err(err).Str("market", string(market)).Str("symbol", symbol).Msg("price feed fetch failed")
		return
	}

	windowMinutes := sc.cfg.WindowMinutesDefault
	changePct, ok := sc.detector.ObserveWindow(string(market), symbol, windowMinutes, tick)
	if !ok {
		return
	}

	users := sc.store.WatchlistUsersFor(market, symbol)
	now := sc.clock.Now()

	for _, userID := range users {
		threshold := sc.store.EffectiveThreshold(userID, windowMinutes, sc.cfg.DefaultThresholdPct)
		key := detector.DebounceKey{ContextID: userID, Market: string(market), Symbol: symbol, WindowMinutes: windowMinutes}
		decision := sc.detector.Evaluate(key, changePct, threshold, now, sc.cfg.DebounceDuration, sc.cfg.DeltaPctForRealert)
		if !decision.Emit {
			continue
		}
		ev := sc.buildEvent(market, symbol, changePct, windowMinutes, decision.DeltaRealert, now)
		if sc.queue != nil {
			sc.queue.SubmitEvent(ctx, ev)
		}
		if sc.notifier != nil {
			message := notificationMessage(ev)
			sc.notifier.Dispatch(ctx, userID, ev, domain.ChannelInApp, message)
		}
	}
}

func (sc *Scanner) buildEvent(market domain.Market, symbol string, changePct float64, windowMinutes int, deltaRealert bool, now time.Time) domain.PriceEvent {
	ev := domain.PriceEvent{
		ID:            sc.minter.NewID(),
		Market:        market,
		Symbol:        symbol,
		ChangePct:     changePct,
		WindowMinutes: windowMinutes,
		DetectedAtUTC: now,
		DeltaRealert:  deltaRealert,
	}
	if cal, ok := sc.cals[string(market)]; ok {
		ev.ExchangeTimezone = cal.Timezone
		if label, err := sessioncal.Resolve(cal, now); err == nil {
			ev.SessionLabel = label
		}
	}
	return ev
}

func notificationMessage(ev domain.PriceEvent) string {
	sign := "+"
	if ev.ChangePct < 0 {
		sign = ""
	}
	return ev.Symbol + " moved " + sign + formatPct(ev.ChangePct) + "% over " + formatMinutes(ev.WindowMinutes)
}

func formatPct(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := int64(v)
	frac := int64((v - float64(whole)) * 100)
	s := itoa(whole) + "." + pad2(frac)
	if neg {
		return "-" + s
	}
	return s
}

func formatMinutes(m int) string { return itoa(int64(m)) + "m" }

func pad2(n int64) string {
	if n < 0 {
		n = -n
	}
	if n < 10 {
		return "0" + itoa(n)
	}
	return itoa(n)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Stop ends the polling loop and waits for it to exit.
func (sc *Scanner) Stop() {
	close(sc.done)
	sc.wg.Wait()
}

package reasonengine

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/ratelimit"
)

// FetchOutcome is one adapter's result, kept even on error so the
// fetch-duration audit (spec.md §4.3.6) always has a row per adapter.
type FetchOutcome struct {
	Adapter    string
	Candidates []Candidate
	Duration   time.Duration
	Err        error
}

// AdapterMetricsSink is the subset of internal/metrics.Registry that
// Breakers reports into, kept as an interface so this package never
// imports prometheus directly.
type AdapterMetricsSink interface {
	SetCircuitState(adapter string, state float64)
	IncFetch(adapter, outcome string)
}

// Breakers manages one gobreaker.CircuitBreaker per adapter name,
// grounded on sawpanic-cryptorun's internal/infrastructure/providers
// CircuitBreakerManager (per-provider breaker keyed by name, tripped
// on consecutive failures).
type Breakers struct {
	mu       sync.Mutex
	byName   map[string]*gobreaker.CircuitBreaker
	timeout  time.Duration
	metrics  AdapterMetricsSink
}

func NewBreakers(openTimeout time.Duration) *Breakers {
	return &Breakers{byName: map[string]*gobreaker.CircuitBreaker{}, timeout: openTimeout}
}

// SetMetrics wires a reporting sink (internal/metrics.Registry) that
// every breaker's state change and fetch outcome is mirrored into.
func (b *Breakers) SetMetrics(sink AdapterMetricsSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = sink
}

func (b *Breakers) get(name string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.byName[name]
	if !ok {
		sink := b.metrics
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     b.timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if sink != nil {
					sink.SetCircuitState(name, circuitStateValue(to))
				}
			},
		})
		b.byName[name] = cb
	}
	return cb
}

func circuitStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

// FanOut calls every adapter concurrently, bounded by cfg.AdapterTimeout
// per call, behind that adapter's rate limiter and circuit breaker
// (spec.md §5: "adapter failures are isolated; one slow/broken adapter
// never blocks the others or the caller past its own timeout").
func FanOut(ctx context.Context, adapters []NamedAdapter, symbol string, market domain.Market, tr TimeRange, cfg config.ReasonEngineConfig, limiter *ratelimit.Keyed, breakers *Breakers) []FetchOutcome {
	results := make([]FetchOutcome, len(adapters))
	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a NamedAdapter) {
			defer wg.Done()
			results[i] = fetchOne(ctx, a, symbol, market, tr, cfg, limiter, breakers)
		}(i, a)
	}
	wg.Wait()
	return results
}

func fetchOne(ctx context.Context, a NamedAdapter, symbol string, market domain.Market, tr TimeRange, cfg config.ReasonEngineConfig, limiter *ratelimit.Keyed, breakers *Breakers) FetchOutcome {
	start := time.Now()
	if limiter != nil {
		if err := limiter.Wait(ctx, a.Name); err != nil {
			return FetchOutcome{Adapter: a.Name, Duration: time.Since(start), Err: err}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.AdapterTimeout)
	defer cancel()

	var breaker *gobreaker.CircuitBreaker
	if breakers != nil {
		breaker = breakers.get(a.Name)
	}

	run := func() ([]Candidate, error) {
		return a.Fetcher.Fetch(callCtx, symbol, market, tr)
	}

	var cands []Candidate
	var err error
	if breaker != nil {
		var raw interface{}
		raw, err = breaker.Execute(func() (interface{}, error) { return run() })
		if err == nil {
			cands, _ = raw.([]Candidate)
		}
	} else {
		cands, err = run()
	}

	if breakers != nil && breakers.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		breakers.metrics.IncFetch(a.Name, outcome)
	}

	return FetchOutcome{Adapter: a.Name, Candidates: cands, Duration: time.Since(start), Err: err}
}

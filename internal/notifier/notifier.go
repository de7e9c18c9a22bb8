// Package notifier implements spec.md §4.5: debounced, cooldown-gated
// notification dispatch with delta re-alert bypass, plus the scheduled
// promotion of stale unread in-app notifications into cooldown.
//
// Run-loop shape grounded on the alert engine in
// other_examples/05cca491_ynujeqax-weqory__backend-internal-alert-engine.go.go:
// a long-lived struct with Run(ctx)/Stop(), a ticker-driven background
// loop, and a done channel plus sync.WaitGroup for graceful shutdown.
package notifier

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/store"
)

// Notifier decides whether a detected PriceEvent should produce a
// Notification for one user, then dispatches it.
type Notifier struct {
	store  *store.Store
	cfg    config.NotifierConfig
	clock  clockid.Clock
	minter clockid.Minter
	log    zerolog.Logger

	// redisMirror, when non-nil, mirrors cooldown/delta-realert state to
	// Redis so a horizontally scaled deployment shares one view instead
	// of each replica keeping its own in-process state (SPEC_FULL.md
	// §4.5). A nil mirror makes every method fall back to the in-memory
	// store bookkeeping only.
	redisMirror *redis.Client

	done chan struct{}
	wg   sync.WaitGroup
}

func New(st *store.Store, cfg config.NotifierConfig, clock clockid.Clock, minter clockid.Minter, redisMirror *redis.Client, log zerolog.Logger) *Notifier {
	return &Notifier{
		store:       st,
		cfg:         cfg,
		clock:       clock,
		minter:      minter,
		redisMirror: redisMirror,
		log:         log.With().Str("component", "notifier").Logger(),
		done:        make(chan struct{}),
	}
}

// Decision is the dispatch outcome for one (user, event).
type Decision struct {
	Send         bool
	DeltaRealert bool
}

// deltaPctForRealert governs when a within-cooldown event still
// bypasses the cooldown (spec.md §4.5, mirroring §4.2's detector rule).
const deltaPctForRealert = 5.0

// Decide applies the cooldown + delta re-alert rule for userID/symbol
// against a freshly detected change_pct (spec.md §4.5).
func (n *Notifier) Decide(userID, symbol, channel string, changePct float64, now time.Time) Decision {
	lastChangePct, lastSentAt, existed := n.store.NotifierState(userID, symbol)
	if !existed {
		return Decision{Send: true}
	}
	ttl, ok := n.cfg.CooldownTTL[channel]
	if !ok {
		ttl = 30 * time.Minute
	}
	if now.Sub(lastSentAt) >= ttl {
		return Decision{Send: true}
	}
	if math.Abs(changePct-lastChangePct) >= deltaPctForRealert {
		return Decision{Send: true, DeltaRealert: true}
	}
	return Decision{}
}

// Dispatch evaluates Decide and, when it says to send, records a
// Notification and updates cooldown/delta bookkeeping (store-side and,
// if configured, the Redis mirror).
func (n *Notifier) Dispatch(ctx context.Context, userID string, ev domain.PriceEvent, channel domain.Channel, message string) (domain.Notification, bool) {
	now := n.clock.Now()
	decision := n.Decide(userID, ev.Symbol, string(channel), ev.ChangePct, now)
	if !decision.Send {
		return domain.Notification{}, false
	}
	n.store.RecordAlertedChange(userID, ev.Symbol, ev.ChangePct)
	if n.redisMirror != nil {
		n.mirrorCooldown(ctx, userID, ev.Symbol, ev.ChangePct, now)
	}
	notif := n.store.CreateNotification(domain.Notification{
		ID:              n.minter.NewID(),
		UserID:          userID,
		EventID:         ev.ID,
		Symbol:          ev.Symbol,
		Channel:         channel,
		Status:          domain.NotificationSent,
		Message:         message,
		DeltaAnnotation: decision.DeltaRealert,
		SentAtUTC:       now,
	})
	return notif, true
}

func (n *Notifier) mirrorCooldown(ctx context.Context, userID, symbol string, changePct float64, now time.Time) {
	key := "reasoncard:cooldown:" + userID + ":" + symbol
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := n.redisMirror.Set(ctx, key, now.Unix(), 24*time.Hour).Err(); err != nil {
		n.log.Warn().Err(err).Str("key", key).Msg("redis cooldown mirror write failed")
	}
}

// Run starts the promotion sweep loop: periodically moves stale unread
// in-app notifications into cooldown (spec.md §4.5).
func (n *Notifier) Run(ctx context.Context) {
	n.wg.Add(1)
	go n.promotionLoop(ctx)
}

func (n *Notifier) promotionLoop(ctx context.Context) {
	defer n.wg.Done()
	interval := n.cfg.PromotionSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ttl := n.cfg.CooldownTTL[string(domain.ChannelInApp)]

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case <-ticker.C:
			promoted := n.store.PromoteStaleUnreads(ttl, n.clock.Now())
			if promoted > 0 {
				n.log.Debug().Int("promoted", promoted).Msg("promoted stale unread notifications to cooldown")
			}
		}
	}
}

// Stop signals the promotion loop to exit and waits for it.
func (n *Notifier) Stop() {
	close(n.done)
	n.wg.Wait()
}

package notifier

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

func newTestNotifier(at time.Time) (*Notifier, *store.Store) {
	st := store.New(clockid.FixedClock{At: at}, clockid.NewSequenceMinter("id"))
	cfg := config.Default().Notifier
	n := New(st, cfg, clockid.FixedClock{At: at}, clockid.NewSequenceMinter("notif"), nil, zerolog.Nop())
	return n, st
}

func TestDispatchFirstAlertAlwaysSends(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	n, _ := newTestNotifier(base)
	ev := domain.PriceEvent{ID: "ev1", Symbol: "AAPL", ChangePct: 4.0, DetectedAtUTC: base}
	notif, sent := n.Dispatch(context.Background(), "u1", ev, domain.ChannelInApp, "AAPL moved 4.0%")
	require.True(t, sent)
	require.Equal(t, domain.NotificationSent, notif.Status)
}

func TestDispatchCooldownSuppressesSmallFollowup(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	n, _ := newTestNotifier(base)
	ev := domain.PriceEvent{ID: "ev1", Symbol: "AAPL", ChangePct: 4.0, DetectedAtUTC: base}
	_, sent := n.Dispatch(context.Background(), "u1", ev, domain.ChannelInApp, "first")
	require.True(t, sent)

	n2, _ := newTestNotifier(base.Add(5 * time.Minute))
	n2.store = n.store
	ev2 := domain.PriceEvent{ID: "ev2", Symbol: "AAPL", ChangePct: 4.3, DetectedAtUTC: base.Add(5 * time.Minute)}
	_, sent2 := n2.Dispatch(context.Background(), "u1", ev2, domain.ChannelInApp, "second")
	require.False(t, sent2, "within cooldown and below delta threshold")
}

func TestDispatchDeltaRealertBypassesCooldown(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	n, st := newTestNotifier(base)
	ev := domain.PriceEvent{ID: "ev1", Symbol: "AAPL", ChangePct: 4.0, DetectedAtUTC: base}
	_, sent := n.Dispatch(context.Background(), "u1", ev, domain.ChannelInApp, "first")
	require.True(t, sent)

	later := base.Add(5 * time.Minute)
	n2 := New(st, config.Default().Notifier, clockid.FixedClock{At: later}, clockid.NewSequenceMinter("notif2"), nil, zerolog.Nop())
	ev2 := domain.PriceEvent{ID: "ev2", Symbol: "AAPL", ChangePct: 10.0, DetectedAtUTC: later}
	notif2, sent2 := n2.Dispatch(context.Background(), "u1", ev2, domain.ChannelInApp, "big move")
	require.True(t, sent2)
	require.True(t, notif2.DeltaAnnotation)
}

func TestPromotionLoopPromotesStaleUnread(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	st := store.New(clockid.FixedClock{At: base}, clockid.NewSequenceMinter("id"))
	st.CreateNotification(domain.Notification{UserID: "u1", EventID: "ev1", Symbol: "AAPL", Channel: domain.ChannelInApp, Status: domain.NotificationSent, SentAtUTC: base})

	promoted := st.PromoteStaleUnreads(time.Minute, base.Add(2*time.Minute))
	require.Equal(t, 1, promoted)
}

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/domain"
)

func newTestStore() *Store {
	clock := clockid.FixedClock{At: time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)}
	return New(clock, clockid.NewSequenceMinter("t"))
}

func TestThresholdUpsertThenList(t *testing.T) {
	s := newTestStore()
	_, err := s.UpsertThreshold("u1", 5, 3.0)
	require.NoError(t, err)
	_, err = s.UpsertThreshold("u1", 5, 4.5) // upsert replaces the 5-minute row
	require.NoError(t, err)

	got := s.ListThresholds("u1")
	require.Len(t, got, 1)
	require.Equal(t, 4.5, got[0].ThresholdPct)
}

func TestWatchlistCreateDeleteRecreate(t *testing.T) {
	s := newTestStore()
	item, dup, err := s.AddWatchlistItem("u1", domain.MarketUS, "aapl")
	require.NoError(t, err)
	require.False(t, dup)

	_, dup2, err := s.AddWatchlistItem("u1", domain.MarketUS, "AAPL")
	require.NoError(t, err)
	require.True(t, dup2, "re-adding the same (user,market,ticker) is a duplicate")

	require.NoError(t, s.RemoveWatchlistItem("u1", item.ID))
	items, total := s.ListWatchlistItems("u1", 1, 20)
	require.Empty(t, items)
	require.Equal(t, 0, total)

	// a subsequent create with the same (symbol, market) succeeds, not a duplicate
	_, dup3, err := s.AddWatchlistItem("u1", domain.MarketUS, "AAPL")
	require.NoError(t, err)
	require.False(t, dup3)
}

func TestFeedbackIdempotent(t *testing.T) {
	s := newTestStore()
	fb1, overwritten1 := s.UpsertFeedback("u1", "e1", "r1", domain.VoteHelpful)
	require.False(t, overwritten1)
	require.Equal(t, domain.VoteHelpful, fb1.Vote)

	fb2, overwritten2 := s.UpsertFeedback("u1", "e1", "r1", domain.VoteHelpful)
	require.True(t, overwritten2)
	require.Equal(t, fb1.Vote, fb2.Vote)
}

func TestReportDuplicateOpenReport(t *testing.T) {
	s := newTestStore()
	rep, err := s.CreateReport("u1", "e1", "r1", domain.ReportInaccurateReason, "")
	require.NoError(t, err)
	require.Equal(t, domain.ReportReceived, rep.State)

	_, err = s.CreateReport("u1", "e1", "r1", domain.ReportWrongSource, "")
	require.Error(t, err)
	ae, ok := err.(interface{ Error() string })
	require.True(t, ok)
	require.Contains(t, ae.Error(), "duplicate_reason_report")

	// resolving frees the slot for a new report
	_, err = s.TransitionReport(rep.ID, domain.ReportResolved, "fixed")
	require.NoError(t, err)
	_, err = s.CreateReport("u1", "e1", "r1", domain.ReportWrongSource, "")
	require.NoError(t, err)
}

func TestReportTransitionsAppendLog(t *testing.T) {
	s := newTestStore()
	rep, err := s.CreateReport("u1", "e1", "r1", domain.ReportOther, "")
	require.NoError(t, err)

	_, err = s.TransitionReport(rep.ID, domain.ReportReviewed, "")
	require.NoError(t, err)
	_, err = s.TransitionReport(rep.ID, domain.ReportReceived, "") // backward, illegal
	require.Error(t, err)

	_, transitions, hasAny := s.EventReportHistory("e1")
	require.True(t, hasAny)
	require.Len(t, transitions, 2) // received, reviewed
	require.Equal(t, domain.ReportReceived, transitions[0].ToStatus)
	require.Equal(t, domain.ReportReviewed, transitions[1].ToStatus)
}

func TestEventReportHistoryNotFoundWhenNoReports(t *testing.T) {
	s := newTestStore()
	_, _, hasAny := s.EventReportHistory("no-reports-event")
	require.False(t, hasAny)
}

func TestUnreadCount(t *testing.T) {
	s := newTestStore()
	s.CreateNotification(domain.Notification{UserID: "u1", EventID: "e1", Symbol: "AAPL", Channel: domain.ChannelInApp, Status: domain.NotificationSent})
	n2 := s.CreateNotification(domain.Notification{UserID: "u1", EventID: "e2", Symbol: "MSFT", Channel: domain.ChannelInApp, Status: domain.NotificationSent})
	require.Equal(t, 2, s.UnreadCount("u1"))

	_, err := s.MarkNotificationRead("u1", n2.ID)
	require.NoError(t, err)
	require.Equal(t, 1, s.UnreadCount("u1"))
}

func TestCreateEventWithReasonsSingleCommit(t *testing.T) {
	s := newTestStore()
	ev := domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", ChangePct: 4.2, WindowMinutes: 5}
	reasons := []domain.EventReason{
		{Rank: 1, ReasonType: domain.ReasonNews, Summary: "x", SourceURL: "https://a.com/1", ConfidenceScore: 0.5},
	}
	ev2, got, err := s.CreateEventWithReasons(ev, reasons)
	require.NoError(t, err)
	require.NotEmpty(t, ev2.ID)
	require.Len(t, got, 1)

	readEv, readReasons, err := s.GetEvent(ev2.ID)
	require.NoError(t, err)
	require.Equal(t, ev2.ID, readEv.ID)
	require.Len(t, readReasons, 1)
}

func TestCreateEventRejectsDuplicateRank(t *testing.T) {
	s := newTestStore()
	ev := domain.PriceEvent{Market: domain.MarketUS, Symbol: "AAPL", ChangePct: 4.2, WindowMinutes: 5}
	reasons := []domain.EventReason{
		{Rank: 1, Summary: "x", SourceURL: "https://a.com/1"},
		{Rank: 1, Summary: "y", SourceURL: "https://b.com/1"},
	}
	_, _, err := s.CreateEventWithReasons(ev, reasons)
	require.Error(t, err)
}

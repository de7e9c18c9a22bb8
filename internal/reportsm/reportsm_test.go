package reportsm

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/store"
)

func newTestMachine(at time.Time) (*Machine, *store.Store) {
	clock := clockid.FixedClock{At: at}
	st := store.New(clock, clockid.NewSequenceMinter("id"))
	return New(st, clock, zerolog.Nop()), st
}

func TestFileReviewResolveHappyPath(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	m, _ := newTestMachine(base)

	rep, err := m.FileReport("u1", "ev1", "reason1", domain.ReportInaccurateReason, "looks wrong")
	require.NoError(t, err)
	require.Equal(t, domain.ReportReceived, rep.State)

	rep, err = m.Review(rep.ID, "taking a look")
	require.NoError(t, err)
	require.Equal(t, domain.ReportReviewed, rep.State)

	rep, err = m.Resolve(rep.ID, "confirmed and corrected")
	require.NoError(t, err)
	require.Equal(t, domain.ReportResolved, rep.State)

	revisions, transitions, hasAny := m.ReportHistory("ev1")
	require.True(t, hasAny)
	require.NotEmpty(t, transitions)
	require.Empty(t, revisions, "no rerun happened in this test, only the state transitions")

	status, ok := m.LatestStatus("ev1")
	require.True(t, ok)
	require.Equal(t, domain.ReportResolved, status)
}

func TestResolveCanSkipReview(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	m, _ := newTestMachine(base)

	rep, err := m.FileReport("u1", "ev1", "reason1", domain.ReportOther, "")
	require.NoError(t, err)

	_, err = m.Resolve(rep.ID, "resolved without review")
	require.NoError(t, err)
}

func TestReportHistoryFalseWhenNoReportFiled(t *testing.T) {
	m, _ := newTestMachine(time.Now())
	_, _, hasAny := m.ReportHistory("does-not-exist")
	require.False(t, hasAny)
}

// Package reportsm orchestrates the ReasonReport state machine
// (spec.md §4.4) on top of internal/store's transition primitives,
// wiring in the Reason Engine rerun a reviewer triggers by resolving a
// report.
package reportsm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/reasonengine"
	"github.com/kisuya/reasoncard/internal/store"
)

// Machine is the thin layer the HTTP handlers call for report endpoints
// (feedback votes go to the store directly). It never re-implements a transition rule: every legality
// check lives in store.TransitionReport.
type Machine struct {
	store *store.Store
	clock clockid.Clock
	log   zerolog.Logger
}

func New(st *store.Store, clock clockid.Clock, log zerolog.Logger) *Machine {
	return &Machine{store: st, clock: clock, log: log.With().Str("component", "report_state_machine").Logger()}
}

// FileReport creates a ReasonReport (spec.md §4.4: at most one open
// report per (user,event,reason)).
func (m *Machine) FileReport(userID, eventID, reasonID string, reportType domain.ReportType, note string) (domain.ReasonReport, error) {
	return m.store.CreateReport(userID, eventID, reasonID, reportType, note)
}

// Review moves a report from received to reviewed.
func (m *Machine) Review(reportID, note string) (domain.ReasonReport, error) {
	return m.store.TransitionReport(reportID, domain.ReportReviewed, note)
}

// Resolve transitions a report to resolved (from either received or
// reviewed, per spec.md §4.4's skip-allowed rule). The caller decides
// whether to run the Reason Engine rerun inline (RerunAfterResolve) or
// hand it to a reasonengine.Queue under load (spec.md §5 backpressure).
func (m *Machine) Resolve(reportID, note string) (domain.ReasonReport, error) {
	return m.store.TransitionReport(reportID, domain.ReportResolved, note)
}

// ReportHistory returns every ReasonRevision and ReasonStatusTransition
// tied to eventID (spec.md §4.8).
func (m *Machine) ReportHistory(eventID string) ([]domain.ReasonRevision, []domain.ReasonStatusTransition, bool) {
	return m.store.EventReportHistory(eventID)
}

// LatestStatus exposes the most recently updated report's state for an
// event, for the revision-history endpoint's "latest_status" field.
func (m *Machine) LatestStatus(eventID string) (domain.ReportState, bool) {
	return m.store.LatestReportStatus(eventID)
}

// RerunAfterResolve runs the Reason Engine over the resolved report's
// event and records the resulting ReasonRevision, stamped to changedAt
// (the resolve transition's own UpdatedAtUTC, per spec.md §4.4).
func RerunAfterResolve(ctx context.Context, eng *reasonengine.Engine, resolved domain.ReasonReport, changedAt time.Time) (domain.ReasonRevision, error) {
	return eng.Rerun(ctx, resolved, changedAt)
}

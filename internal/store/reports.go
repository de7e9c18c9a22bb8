package store

import (
	"sort"
	"sync"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/domain"
)

type reportsAgg struct {
	o  *owner
	mu sync.RWMutex

	byID        map[string]domain.ReasonReport
	openByKey   map[feedbackKey]string   // (user,event,reason) -> open report id
	byEvent     map[string][]string      // eventID -> report ids, creation order
	transitions map[string][]domain.ReasonStatusTransition // reportID -> log
	revisions   map[string][]domain.ReasonRevision          // eventID -> revisions, revised_at ascending
}

func newReportsAgg() *reportsAgg {
	return &reportsAgg{
		o:           newOwner(),
		byID:        map[string]domain.ReasonReport{},
		openByKey:   map[feedbackKey]string{},
		byEvent:     map[string][]string{},
		transitions: map[string][]domain.ReasonStatusTransition{},
		revisions:   map[string][]domain.ReasonRevision{},
	}
}

// CreateReport implements spec.md §4.4: at most one non-resolved report
// per (user,event,reason); a second attempt fails with
// duplicate_reason_report.
func (s *Store) CreateReport(userID, eventID, reasonID string, reportType domain.ReportType, note string) (domain.ReasonReport, error) {
	key := feedbackKey{userID, eventID, reasonID}
	var out domain.ReasonReport
	var fail error
	s.reports.o.do(func() {
		s.reports.mu.Lock()
		defer s.reports.mu.Unlock()
		if _, open := s.reports.openByKey[key]; open {
			fail = apperr.DuplicateReport()
			return
		}
		now := s.now()
		out = domain.ReasonReport{
			ID:           s.newID(),
			UserID:       userID,
			EventID:      eventID,
			ReasonID:     reasonID,
			ReportType:   reportType,
			State:        domain.ReportReceived,
			Note:         note,
			CreatedAtUTC: now,
			UpdatedAtUTC: now,
		}
		s.reports.byID[out.ID] = out
		s.reports.openByKey[key] = out.ID
		s.reports.byEvent[eventID] = append(s.reports.byEvent[eventID], out.ID)
		s.reports.transitions[out.ID] = append(s.reports.transitions[out.ID], domain.ReasonStatusTransition{
			ID:           s.newID(),
			ReportID:     out.ID,
			FromStatus:   "",
			ToStatus:     domain.ReportReceived,
			ChangedAtUTC: now,
		})
	})
	if fail != nil {
		return domain.ReasonReport{}, fail
	}
	return out, nil
}

// legalTransitions mirrors spec.md §4.4: no backward transitions,
// received->resolved is allowed to skip reviewed.
var legalTransitions = map[domain.ReportState]map[domain.ReportState]bool{
	domain.ReportReceived: {domain.ReportReviewed: true, domain.ReportResolved: true},
	domain.ReportReviewed: {domain.ReportResolved: true},
}

// TransitionReport advances a report's state, appending a transition
// log row, and returns the updated report. A transition to the state the
// report is already in returns it unchanged with no error and appends no
// log row.
func (s *Store) TransitionReport(reportID string, to domain.ReportState, note string) (domain.ReasonReport, error) {
	var out domain.ReasonReport
	var fail error
	s.reports.o.do(func() {
		s.reports.mu.Lock()
		defer s.reports.mu.Unlock()
		rep, ok := s.reports.byID[reportID]
		if !ok {
			fail = apperr.NotFound("reason report")
			return
		}
		if rep.State == to {
			out = rep
			return
		}
		if !legalTransitions[rep.State][to] {
			fail = apperr.InvalidInput("illegal report transition from " + string(rep.State) + " to " + string(to))
			return
		}
		now := s.now()
		from := rep.State
		rep.State = to
		rep.UpdatedAtUTC = now
		s.reports.byID[reportID] = rep
		s.reports.transitions[reportID] = append(s.reports.transitions[reportID], domain.ReasonStatusTransition{
			ID:           s.newID(),
			ReportID:     reportID,
			FromStatus:   from,
			ToStatus:     to,
			ChangedAtUTC: now,
			Note:         note,
		})
		if to == domain.ReportResolved {
			key := feedbackKey{rep.UserID, rep.EventID, rep.ReasonID}
			if s.reports.openByKey[key] == reportID {
				delete(s.reports.openByKey, key)
			}
		}
		out = rep
	})
	if fail != nil {
		return domain.ReasonReport{}, fail
	}
	return out, nil
}

func (s *Store) GetReport(id string) (domain.ReasonReport, error) {
	s.reports.mu.RLock()
	defer s.reports.mu.RUnlock()
	r, ok := s.reports.byID[id]
	if !ok {
		return domain.ReasonReport{}, apperr.NotFound("reason report")
	}
	return r, nil
}

// RecordRevision stores a ReasonRevision and, per spec.md §4.4,
// stamps its revised_at_utc to equal the resolve transition's
// changed_at_utc (callers pass that timestamp explicitly).
func (s *Store) RecordRevision(rev domain.ReasonRevision) domain.ReasonRevision {
	s.reports.o.do(func() {
		s.reports.mu.Lock()
		defer s.reports.mu.Unlock()
		if rev.ID == "" {
			rev.ID = s.newID()
		}
		s.reports.revisions[rev.EventID] = append(s.reports.revisions[rev.EventID], rev)
		sort.Slice(s.reports.revisions[rev.EventID], func(i, j int) bool {
			return s.reports.revisions[rev.EventID][i].RevisedAtUTC.Before(s.reports.revisions[rev.EventID][j].RevisedAtUTC)
		})
	})
	return rev
}

// EventReportHistory implements spec.md §4.8: revisions ascending by
// revised_at, every transition for every report on the event, and
// whether any report has ever been filed (for the distinct 404).
func (s *Store) EventReportHistory(eventID string) (revisions []domain.ReasonRevision, transitions []domain.ReasonStatusTransition, hasAnyReport bool) {
	s.reports.mu.RLock()
	defer s.reports.mu.RUnlock()

	reportIDs := s.reports.byEvent[eventID]
	hasAnyReport = len(reportIDs) > 0
	revisions = append([]domain.ReasonRevision(nil), s.reports.revisions[eventID]...)
	for _, rid := range reportIDs {
		transitions = append(transitions, s.reports.transitions[rid]...)
	}
	sort.Slice(transitions, func(i, j int) bool { return transitions[i].ChangedAtUTC.Before(transitions[j].ChangedAtUTC) })
	return revisions, transitions, hasAnyReport
}

// LatestReportStatus returns the most recently updated report's state
// for an event, used by the revision-history endpoint's
// "latest_status" meta field.
func (s *Store) LatestReportStatus(eventID string) (domain.ReportState, bool) {
	s.reports.mu.RLock()
	defer s.reports.mu.RUnlock()
	ids := s.reports.byEvent[eventID]
	if len(ids) == 0 {
		return "", false
	}
	latest := s.reports.byID[ids[0]]
	for _, id := range ids[1:] {
		r := s.reports.byID[id]
		if r.UpdatedAtUTC.After(latest.UpdatedAtUTC) {
			latest = r
		}
	}
	return latest.State, true
}

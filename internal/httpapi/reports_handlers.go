package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/reportsm"
)

type fileReportRequest struct {
	EventID    string `json:"event_id"`
	ReasonID   string `json:"reason_id"`
	ReportType string `json:"report_type"`
	Note       string `json:"note"`
}

type reportResponse struct {
	ID         string `json:"id"`
	EventID    string `json:"event_id"`
	ReasonID   string `json:"reason_id"`
	ReportType string `json:"report_type"`
	State      string `json:"state"`
}

func toReportResponse(r domain.ReasonReport) reportResponse {
	return reportResponse{ID: r.ID, EventID: r.EventID, ReasonID: r.ReasonID, ReportType: string(r.ReportType), State: string(r.State)}
}

func (s *Server) handleFileReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	var req fileReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	rep, err := s.reports.FileReport(userID, req.EventID, req.ReasonID, domain.ReportType(req.ReportType), req.Note)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportResponse(rep))
}

type transitionRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleReviewReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	var req transitionRequest
	_ = decodeJSON(r, &req)
	rep, err := s.reports.Review(id, req.Note)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(rep))
}

// handleResolveReport transitions a report to resolved and triggers the
// Reason Engine rerun (spec.md §4.4): inline when no queue is wired,
// otherwise handed to the bounded reasonengine.Queue so a burst of
// resolutions can't spawn unbounded goroutines (spec.md §5).
func (s *Server) handleResolveReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	var req transitionRequest
	_ = decodeJSON(r, &req)
	rep, err := s.reports.Resolve(id, req.Note)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}

	if s.engine != nil {
		if s.queue != nil {
			s.queue.SubmitRerun(ctx, rep, rep.UpdatedAtUTC)
		} else {
			if _, err := reportsm.RerunAfterResolve(ctx, s.engine, rep, rep.UpdatedAtUTC); err != nil {
				s.log.Error().Err(err).Str("report_id", rep.ID).Msg("inline rerun after resolve failed")
			}
			if s.compare != nil {
				s.compare.Invalidate(rep.EventID)
			}
		}
	}
	writeJSON(w, http.StatusOK, toReportResponse(rep))
}

type revisionResponse struct {
	ID               string  `json:"id"`
	ReasonID         string  `json:"reason_id"`
	ConfidenceBefore float64 `json:"confidence_before"`
	ConfidenceAfter  float64 `json:"confidence_after"`
	RevisedAtUTC     string  `json:"revised_at_utc"`
}

type transitionLogResponse struct {
	ReportID     string `json:"report_id"`
	FromStatus   string `json:"from_status"`
	ToStatus     string `json:"to_status"`
	ChangedAtUTC string `json:"changed_at_utc"`
}

func (s *Server) handleRevisionHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := mux.Vars(r)["id"]
	revisions, transitions, hasAny := s.reports.ReportHistory(eventID)
	if !hasAny {
		writeError(w, requestIDFrom(ctx), apperr.New(apperr.CodeRevisionHistoryNone, "no reason report has ever been filed for this event"))
		return
	}

	revOut := make([]revisionResponse, 0, len(revisions))
	for _, rv := range revisions {
		revOut = append(revOut, revisionResponse{
			ID: rv.ID, ReasonID: rv.ReasonID, ConfidenceBefore: rv.ConfidenceBefore,
			ConfidenceAfter: rv.ConfidenceAfter, RevisedAtUTC: rv.RevisedAtUTC.Format(timeFormat),
		})
	}
	transOut := make([]transitionLogResponse, 0, len(transitions))
	for _, t := range transitions {
		transOut = append(transOut, transitionLogResponse{
			ReportID: t.ReportID, FromStatus: string(t.FromStatus), ToStatus: string(t.ToStatus),
			ChangedAtUTC: t.ChangedAtUTC.Format(timeFormat),
		})
	}
	latest, _ := s.reports.LatestStatus(eventID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revisions":      revOut,
		"transitions":    transOut,
		"latest_status":  latest,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := mux.Vars(r)["id"]
	out, err := s.compare.Classify(eventID)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

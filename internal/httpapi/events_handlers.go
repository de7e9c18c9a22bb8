package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/domain"
)

// watchlistUniverse resolves the symbols and market map backing every
// per-user events/briefs query, from the user's current watchlist.
func (s *Server) watchlistUniverse(userID string) ([]string, map[string]domain.Market) {
	items, _ := s.store.ListWatchlistItems(userID, 1, 10_000)
	symbols := make([]string, 0, len(items))
	market := make(map[string]domain.Market, len(items))
	for _, it := range items {
		symbols = append(symbols, it.Ticker)
		market[it.Ticker] = it.Market
	}
	return symbols, market
}

type eventResponse struct {
	ID            string  `json:"id"`
	Market        string  `json:"market"`
	Symbol        string  `json:"symbol"`
	ChangePct     float64 `json:"change_pct"`
	WindowMinutes int     `json:"window_minutes"`
	DetectedAtUTC string  `json:"detected_at_utc"`
	SessionLabel  string  `json:"session_label"`
	DeltaRealert  bool    `json:"delta_realert"`
	ReasonStatus  string  `json:"reason_status"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	symbols, market := s.watchlistUniverse(userID)

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	cursor := r.URL.Query().Get("cursor")
	events, next := s.store.ListRecentEventsForUser(userID, symbols, market, size, cursor, s.clock.Now())

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		_, reasons, _ := s.store.GetEvent(ev.ID)
		out = append(out, eventResponse{
			ID:            ev.ID,
			Market:        string(ev.Market),
			Symbol:        ev.Symbol,
			ChangePct:     ev.ChangePct,
			WindowMinutes: ev.WindowMinutes,
			DetectedAtUTC: ev.DetectedAtUTC.Format(timeFormat),
			SessionLabel:  string(ev.SessionLabel),
			DeltaRealert:  ev.DeltaRealert,
			ReasonStatus:  string(domain.DeriveReasonStatus(reasons)),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out, "next_cursor": next})
}

type eventReasonResponse struct {
	ID              string             `json:"id"`
	Rank            int                `json:"rank"`
	ReasonType      string             `json:"reason_type"`
	ConfidenceScore float64            `json:"confidence_score"`
	Summary         string             `json:"summary"`
	SourceURL       string             `json:"source_url"`
	PublishedAtUTC  string             `json:"published_at_utc"`
	Breakdown       *domain.ScoreBreakdown `json:"confidence_breakdown,omitempty"`
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	ev, reasons, err := s.store.GetEvent(id)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	reasonOut := make([]eventReasonResponse, 0, len(reasons))
	for _, rr := range reasons {
		reasonOut = append(reasonOut, eventReasonResponse{
			ID:              rr.ID,
			Rank:            rr.Rank,
			ReasonType:      string(rr.ReasonType),
			ConfidenceScore: rr.ConfidenceScore,
			Summary:         rr.Summary,
			SourceURL:       rr.SourceURL,
			PublishedAtUTC:  rr.PublishedAtUTC.Format(timeFormat),
			Breakdown:       rr.ConfidenceBreakdown,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event": eventResponse{
			ID: ev.ID, Market: string(ev.Market), Symbol: ev.Symbol, ChangePct: ev.ChangePct,
			WindowMinutes: ev.WindowMinutes, DetectedAtUTC: ev.DetectedAtUTC.Format(timeFormat),
			SessionLabel: string(ev.SessionLabel), DeltaRealert: ev.DeltaRealert,
			ReasonStatus: string(domain.DeriveReasonStatus(reasons)),
		},
		"reasons": reasonOut,
	})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

type feedbackRequest struct {
	Vote string `json:"vote"`
}

func (s *Server) handleUpsertFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	vars := mux.Vars(r)

	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	vote := domain.Vote(req.Vote)
	if vote != domain.VoteHelpful && vote != domain.VoteNotHelpful {
		writeError(w, requestIDFrom(ctx), apperr.InvalidInput("vote must be helpful or not_helpful"))
		return
	}
	fb, overwritten := s.store.UpsertFeedback(userID, vars["eventID"], vars["reasonID"], vote)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vote":        fb.Vote,
		"overwritten": overwritten,
	})
}

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/domain"
)

func (s *Server) handleSymbolSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")
	if len(q) < 2 || len(q) > 20 {
		writeError(w, requestIDFrom(ctx), apperr.InvalidInput("q must be between 2 and 20 characters"))
		return
	}
	market := domain.Market(r.URL.Query().Get("market"))
	entries := s.catalog.Search(q, market)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"catalog_version": s.catalog.Version(),
		"entries":         entries,
	})
}

type watchlistItemResponse struct {
	ID          string `json:"id"`
	Market      string `json:"market"`
	Ticker      string `json:"ticker"`
	IsDuplicate bool   `json:"is_duplicate,omitempty"`
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	page, size := pagingParams(r)
	items, total := s.store.ListWatchlistItems(userID, page, size)
	out := make([]watchlistItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, watchlistItemResponse{ID: it.ID, Market: string(it.Market), Ticker: it.Ticker})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out, "total": total})
}

type addWatchlistRequest struct {
	Market string `json:"market"`
	Ticker string `json:"ticker"`
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	var req addWatchlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	market := domain.Market(req.Market)
	if entry, ok := s.catalog.Lookup(market, req.Ticker); !ok || !entry.Active {
		writeError(w, requestIDFrom(ctx), apperr.InvalidInput("unknown or inactive symbol"))
		return
	}
	item, isDup, err := s.store.AddWatchlistItem(userID, market, req.Ticker)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	status := http.StatusCreated
	if isDup {
		status = http.StatusOK
	}
	writeJSON(w, status, watchlistItemResponse{ID: item.ID, Market: string(item.Market), Ticker: item.Ticker, IsDuplicate: isDup})
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	id := mux.Vars(r)["id"]
	if err := s.store.RemoveWatchlistItem(userID, id); err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type thresholdResponse struct {
	WindowMinutes int     `json:"window_minutes"`
	ThresholdPct  float64 `json:"threshold_pct"`
}

func (s *Server) handleListThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	ts := s.store.ListThresholds(userID)
	out := make([]thresholdResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, thresholdResponse{WindowMinutes: t.WindowMinutes, ThresholdPct: t.ThresholdPct})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

type upsertThresholdRequest struct {
	WindowMinutes int     `json:"window_minutes"`
	ThresholdPct  float64 `json:"threshold_pct"`
}

func (s *Server) handleUpsertThreshold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	var req upsertThresholdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	t, err := s.store.UpsertThreshold(userID, req.WindowMinutes, req.ThresholdPct)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, thresholdResponse{WindowMinutes: t.WindowMinutes, ThresholdPct: t.ThresholdPct})
}

func pagingParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	return page, size
}

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/domain"
)

type briefResponse struct {
	ID             string                     `json:"id"`
	BriefType      string                     `json:"brief_type"`
	GeneratedAtUTC string                     `json:"generated_at_utc"`
	ExpiresAtUTC   string                     `json:"expires_at_utc"`
	Items          []domain.BriefContentItem `json:"items"`
	FallbackReason string                     `json:"fallback_reason,omitempty"`
	Status         string                     `json:"status"`
}

func toBriefResponse(b domain.Brief) briefResponse {
	return briefResponse{
		ID: b.ID, BriefType: string(b.BriefType), GeneratedAtUTC: b.GeneratedAtUTC.Format(timeFormat),
		ExpiresAtUTC: b.ExpiresAtUTC.Format(timeFormat), Items: b.Items,
		FallbackReason: string(b.FallbackReason), Status: string(b.Status),
	}
}

func (s *Server) handleListBriefs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	briefs := s.store.ListBriefs(userID, size)
	out := make([]briefResponse, 0, len(briefs))
	for _, b := range briefs {
		out = append(out, toBriefResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

// handleGetBrief implements spec.md §4.6: an expired brief's detail
// fetch returns brief_link_expired even though listing still shows it.
func (s *Server) handleGetBrief(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	id := mux.Vars(r)["id"]
	b, err := s.store.GetBrief(userID, id)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	if b.IsExpired(s.clock.Now()) {
		writeError(w, requestIDFrom(ctx), apperr.New(apperr.CodeBriefLinkExpired, "this brief has expired"))
		return
	}
	writeJSON(w, http.StatusOK, toBriefResponse(b))
}

func (s *Server) handleMarkBriefRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	id := mux.Vars(r)["id"]
	b, err := s.store.MarkBriefRead(userID, id)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, toBriefResponse(b))
}

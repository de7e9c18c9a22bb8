package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kisuya/reasoncard/internal/domain"
)

type notificationResponse struct {
	ID              string `json:"id"`
	EventID         string `json:"event_id"`
	Symbol          string `json:"symbol"`
	Channel         string `json:"channel"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	DeltaAnnotation bool   `json:"delta_annotation"`
	SentAtUTC       string `json:"sent_at_utc"`
}

func toNotificationResponse(n domain.Notification) notificationResponse {
	return notificationResponse{
		ID: n.ID, EventID: n.EventID, Symbol: n.Symbol, Channel: string(n.Channel),
		Status: string(n.Status), Message: n.Message, DeltaAnnotation: n.DeltaAnnotation,
		SentAtUTC: n.SentAtUTC.Format(timeFormat),
	}
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	page, size := pagingParams(r)
	notifs, total := s.store.ListNotifications(userID, page, size)
	out := make([]notificationResponse, 0, len(notifs))
	for _, n := range notifs {
		out = append(out, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":        out,
		"total":        total,
		"unread_count": s.store.UnreadCount(userID),
	})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)
	id := mux.Vars(r)["id"]
	n, err := s.store.MarkNotificationRead(userID, id)
	if err != nil {
		writeError(w, requestIDFrom(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

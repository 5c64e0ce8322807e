package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.db.listNotifications(r.Context(), claimsFrom(r).Subject, r.URL.Query().Get("unread") == "true")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(notes), http.StatusOK)
}

func (h handler) readNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.db.markNotificationRead(r.Context(), claimsFrom(r).Subject, mux.Vars(r)["id"]); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithMessage(w, "notification marked as read", http.StatusOK)
}

func (h handler) readAllNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.db.markAllNotificationsRead(r.Context(), claimsFrom(r).Subject); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithMessage(w, "all notifications marked as read", http.StatusOK)
}

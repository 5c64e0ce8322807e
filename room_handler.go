package main

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func (h handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.db.listRooms(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(rooms), http.StatusOK)
}

func (h handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !readBody(w, r, &req) {
		return
	}
	req.Number = strings.ToUpper(strings.TrimSpace(req.Number))
	req.Block = strings.ToUpper(strings.TrimSpace(req.Block))
	if !h.validateRequest(w, r, req) {
		return
	}

	rm := room{
		ID:       uuid.NewString(),
		Number:   req.Number,
		Block:    req.Block,
		Floor:    req.Floor,
		Capacity: req.Capacity,
	}
	if err := h.db.insertRoom(r.Context(), rm); err != nil {
		respondWithError(w, r, err)
		return
	}

	created, err := h.db.getRoom(r.Context(), rm.ID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, created, http.StatusCreated)
}

func (h handler) allocateRoom(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if !readBody(w, r, &req) || !h.validateRequest(w, r, req) {
		return
	}
	roomID := mux.Vars(r)["id"]

	if _, err := h.db.getStudent(r.Context(), req.StudentID); err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.db.allocateRoom(r.Context(), roomID, req.StudentID); err != nil {
		respondWithError(w, r, err)
		return
	}

	rm, err := h.db.getRoom(r.Context(), roomID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"roomID": roomID, "studentID": req.StudentID}).Info("Room allocated")
	h.notifier.notify(r.Context(), req.StudentID,
		"You have been allocated room "+rm.Number+" in block "+rm.Block, notificationInfo)
	respondWithJSON(w, rm, http.StatusOK)
}

func (h handler) vacateRoom(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if !readBody(w, r, &req) || !h.validateRequest(w, r, req) {
		return
	}

	if err := h.db.vacateRoom(r.Context(), req.StudentID); err != nil {
		respondWithError(w, r, err)
		return
	}

	log.WithField("studentID", req.StudentID).Info("Room vacated")
	h.notifier.notify(r.Context(), req.StudentID, "Your room allocation has been removed", notificationInfo)
	respondWithMessage(w, "room vacated", http.StatusOK)
}

package main

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func (h handler) createComplaint(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req complaintRequest
	if !readBody(w, r, &req) {
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	req.Location = strings.TrimSpace(req.Location)
	if !h.validateRequest(w, r, req) {
		return
	}

	now := h.now().UTC()
	c := complaint{
		ID:          uuid.NewString(),
		StudentID:   claims.Subject,
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		Status:      statusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.db.insertComplaint(r.Context(), c); err != nil {
		respondWithError(w, r, err)
		return
	}

	created, err := h.db.getComplaint(r.Context(), c.ID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	msg := "New " + created.Category + " complaint from " + created.StudentName + " at " + created.Location
	if created.RoomNumber != "" {
		msg += " (room " + created.RoomNumber + ")"
	}
	h.notifier.notifyRoles(r.Context(), msg, notificationWarning, roleWarden)

	respondWithJSON(w, created, http.StatusCreated)
}

func (h handler) studentComplaints(w http.ResponseWriter, r *http.Request) {
	complaints, err := h.db.listComplaints(r.Context(), requestFilter{StudentID: claimsFrom(r).Subject})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(complaints), http.StatusOK)
}

func (h handler) wardenComplaints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	complaints, err := h.db.listComplaints(r.Context(), requestFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(complaints), http.StatusOK)
}

func (h handler) progressComplaint(w http.ResponseWriter, r *http.Request) {
	c, err := h.db.updateComplaintStatus(r.Context(), mux.Vars(r)["id"], statusChange{
		To:   statusInProgress,
		From: complaintTransitions.from(statusInProgress),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	h.notifier.notify(r.Context(), c.StudentID, "Your "+c.Category+" complaint is being worked on", notificationInfo)
	respondWithJSON(w, c, http.StatusOK)
}

func (h handler) resolveComplaint(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !readBody(w, r, &req) {
		return
	}
	req.Response = strings.TrimSpace(req.Response)
	if !h.validateRequest(w, r, req) {
		return
	}

	c, err := h.db.updateComplaintStatus(r.Context(), mux.Vars(r)["id"], statusChange{
		To:       statusResolved,
		From:     complaintTransitions.from(statusResolved),
		Response: req.Response,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	h.notifier.notify(r.Context(), c.StudentID, "Your "+c.Category+" complaint has been resolved: "+c.Response, notificationSuccess)
	respondWithJSON(w, c, http.StatusOK)
}

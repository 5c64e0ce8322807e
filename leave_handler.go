package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func (h handler) createLeave(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req leaveRequest
	if !readBody(w, r, &req) {
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if !h.validateRequest(w, r, req) {
		return
	}

	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	now := h.now().UTC()

	l := leave{
		ID:        uuid.NewString(),
		StudentID: claims.Subject,
		Type:      req.Type,
		Reason:    req.Reason,
		StartDate: newCalendarDate(start),
		EndDate:   newCalendarDate(end),
		Status:    statusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.db.insertLeave(r.Context(), l); err != nil {
		respondWithError(w, r, err)
		return
	}

	created, err := h.db.getLeave(r.Context(), l.ID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	h.notifier.notifyRoles(r.Context(),
		fmt.Sprintf("New %s leave request from %s (%s to %s)", created.Type, created.StudentName, req.StartDate, req.EndDate),
		notificationInfo, roleWarden)

	respondWithJSON(w, created, http.StatusCreated)
}

func (h handler) studentLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.db.listLeaves(r.Context(), requestFilter{StudentID: claimsFrom(r).Subject})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(leaves), http.StatusOK)
}

// cancelLeave withdraws a pending leave owned by the caller. Someone else's
// leave is reported as not found.
func (h handler) cancelLeave(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	l, err := h.db.getLeave(r.Context(), id)
	if err == nil && l.StudentID != claimsFrom(r).Subject {
		err = errNotFound
	}
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	updated, err := h.db.updateLeaveStatus(r.Context(), id, statusChange{
		To:   statusCancelled,
		From: leaveTransitions.from(statusCancelled),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, updated, http.StatusOK)
}

func (h handler) wardenLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.db.listLeaves(r.Context(), requestFilter{Status: r.URL.Query().Get("status")})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(leaves), http.StatusOK)
}

func (h handler) approveLeave(w http.ResponseWriter, r *http.Request) {
	h.reviewLeave(w, r, statusApproved)
}

func (h handler) rejectLeave(w http.ResponseWriter, r *http.Request) {
	h.reviewLeave(w, r, statusRejected)
}

func (h handler) reviewLeave(w http.ResponseWriter, r *http.Request, to string) {
	var req reviewRequest
	if r.ContentLength != 0 && !readBody(w, r, &req) {
		return
	}
	req.Remarks = strings.TrimSpace(req.Remarks)
	if !h.validateRequest(w, r, req) {
		return
	}

	l, err := h.db.updateLeaveStatus(r.Context(), mux.Vars(r)["id"], statusChange{
		To:         to,
		From:       leaveTransitions.from(to),
		ReviewedBy: claimsFrom(r).Subject,
		Remarks:    req.Remarks,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	period := fmt.Sprintf("%s to %s", l.StartDate, l.EndDate)
	if to == statusApproved {
		h.notifier.notify(r.Context(), l.StudentID, "Your leave request for "+period+" has been approved", notificationSuccess)
		h.notifier.notifyGuardian(r.Context(), l.StudentID,
			fmt.Sprintf("%s has been granted %s leave from %s.", l.StudentName, l.Type, period))
	} else {
		h.notifier.notify(r.Context(), l.StudentID, "Your leave request for "+period+" has been rejected", notificationError)
	}

	respondWithJSON(w, l, http.StatusOK)
}

// nonNil keeps empty lists encoding as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

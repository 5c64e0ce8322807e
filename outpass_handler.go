package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dchest/uniuri"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const (
	gateCodeLength = 8
	qrSize         = 256
)

func (h handler) createOutpass(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req outpassRequest
	if !readBody(w, r, &req) {
		return
	}
	req.Destination = strings.TrimSpace(req.Destination)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if !h.validateRequest(w, r, req) {
		return
	}

	now := h.now().UTC()
	o := outpass{
		ID:                 uuid.NewString(),
		StudentID:          claims.Subject,
		Destination:        req.Destination,
		Purpose:            req.Purpose,
		ExitTime:           req.ExitTime.UTC(),
		ExpectedReturnTime: req.ExpectedReturnTime.UTC(),
		Status:             statusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := h.db.insertOutpass(r.Context(), o); err != nil {
		respondWithError(w, r, err)
		return
	}

	created, err := h.db.getOutpass(r.Context(), o.ID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	h.notifier.notifyRoles(r.Context(),
		fmt.Sprintf("New outpass request from %s to %s", created.StudentName, created.Destination),
		notificationInfo, roleWarden)

	respondWithJSON(w, created, http.StatusCreated)
}

func (h handler) studentOutpasses(w http.ResponseWriter, r *http.Request) {
	outpasses, err := h.db.listOutpasses(r.Context(), requestFilter{StudentID: claimsFrom(r).Subject, Now: h.now()})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(outpasses), http.StatusOK)
}

// outpassQR renders the gate code of the caller's approved outpass as a PNG.
func (h handler) outpassQR(w http.ResponseWriter, r *http.Request) {
	o, err := h.db.getOutpass(r.Context(), mux.Vars(r)["id"])
	if err == nil && o.StudentID != claimsFrom(r).Subject {
		err = errNotFound
	}
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if o.Status != statusApproved || o.GateCode == "" {
		respondWithMessage(w, "outpass is not approved", http.StatusConflict)
		return
	}

	png, err := qrcode.Encode(o.GateCode, qrcode.Medium, qrSize)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=outpass-%s.png", o.GateCode))
	if _, err = w.Write(png); err != nil {
		log.WithError(err).Warn("Failed to write QR code")
	}
}

func (h handler) wardenOutpasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	outpasses, err := h.db.listOutpasses(r.Context(), requestFilter{
		Status:  q.Get("status"),
		Overdue: q.Get("overdue") == "true",
		Now:     h.now(),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(outpasses), http.StatusOK)
}

func (h handler) approveOutpass(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if r.ContentLength != 0 && !readBody(w, r, &req) {
		return
	}
	req.Remarks = strings.TrimSpace(req.Remarks)
	if !h.validateRequest(w, r, req) {
		return
	}

	o, err := h.db.updateOutpassStatus(r.Context(), mux.Vars(r)["id"], statusChange{
		To:         statusApproved,
		From:       outpassTransitions.from(statusApproved),
		ReviewedBy: claimsFrom(r).Subject,
		Remarks:    req.Remarks,
		GateCode:   strings.ToUpper(uniuri.NewLen(gateCodeLength)),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	h.notifier.notify(r.Context(), o.StudentID,
		fmt.Sprintf("Your outpass to %s has been approved. Gate code: %s", o.Destination, o.GateCode), notificationSuccess)
	h.notifier.notifyGuardian(r.Context(), o.StudentID,
		fmt.Sprintf("%s is leaving the hostel for %s at %s and is expected back by %s.",
			o.StudentName, o.Destination, o.ExitTime.Format("02 Jan 15:04"), o.ExpectedReturnTime.Format("02 Jan 15:04")))

	respondWithJSON(w, o, http.StatusOK)
}

func (h handler) rejectOutpass(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if r.ContentLength != 0 && !readBody(w, r, &req) {
		return
	}
	req.Remarks = strings.TrimSpace(req.Remarks)
	if !h.validateRequest(w, r, req) {
		return
	}

	o, err := h.db.updateOutpassStatus(r.Context(), mux.Vars(r)["id"], statusChange{
		To:         statusRejected,
		From:       outpassTransitions.from(statusRejected),
		ReviewedBy: claimsFrom(r).Subject,
		Remarks:    req.Remarks,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	h.notifier.notify(r.Context(), o.StudentID, "Your outpass to "+o.Destination+" has been rejected", notificationError)
	respondWithJSON(w, o, http.StatusOK)
}

func (h handler) returnOutpass(w http.ResponseWriter, r *http.Request) {
	returned := h.now().UTC()

	o, err := h.db.updateOutpassStatus(r.Context(), mux.Vars(r)["id"], statusChange{
		To:         statusReturned,
		From:       outpassTransitions.from(statusReturned),
		ReturnedAt: &returned,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if o.ExpectedReturnTime.Before(returned) {
		h.notifier.notifyRoles(r.Context(),
			fmt.Sprintf("%s returned late from %s", o.StudentName, o.Destination), notificationWarning, roleWarden)
	}
	respondWithJSON(w, o, http.StatusOK)
}

// verifyOutpass looks up an approved outpass by the code shown at the gate.
func (h handler) verifyOutpass(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !readBody(w, r, &req) {
		return
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if !h.validateRequest(w, r, req) {
		return
	}

	o, err := h.db.getOutpassByCode(r.Context(), req.Code)
	if err == nil && o.Status != statusApproved {
		err = errNotFound
	}
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, struct {
		outpass
		Overdue bool `json:"overdue"`
	}{o, o.overdue(h.now())}, http.StatusOK)
}

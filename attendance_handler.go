package main

import (
	"errors"
	"net/http"
	"time"
)

func (h handler) markAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !readBody(w, r, &req) || !h.validateRequest(w, r, req) {
		return
	}

	seen := make(map[string]bool, len(req.Records))
	for _, m := range req.Records {
		if seen[m.StudentID] {
			respondWithJSON(w, struct {
				Message string            `json:"message"`
				Errors  map[string]string `json:"errors"`
			}{"validation failed", map[string]string{"records": "contains student " + m.StudentID + " more than once"}}, http.StatusBadRequest)
			return
		}
		seen[m.StudentID] = true
	}

	date, _ := time.Parse(dateLayout, req.Date)
	records, err := h.db.markAttendance(r.Context(), date, req.Records, claimsFrom(r).Subject)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	for _, rec := range records {
		if rec.Status == attendanceAbsent && seen[rec.StudentID] {
			h.notifier.notify(r.Context(), rec.StudentID, "You were marked absent on "+req.Date, notificationWarning)
		}
	}
	respondWithJSON(w, nonNil(records), http.StatusOK)
}

func (h handler) attendanceByDate(w http.ResponseWriter, r *http.Request) {
	day := h.now().Format(dateLayout)
	if v := r.URL.Query().Get("date"); v != "" {
		day = v
	}

	date, err := time.Parse(dateLayout, day)
	if err != nil {
		respondWithMessage(w, "date must be in YYYY-MM-DD format", http.StatusBadRequest)
		return
	}

	records, err := h.db.listAttendance(r.Context(), attendanceFilter{From: date, To: date})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(records), http.StatusOK)
}

// studentAttendance returns the caller's history, the last 90 days by default.
func (h handler) studentAttendance(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.dateRange(r, 90)
	if err != nil {
		respondWithMessage(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.db.listAttendance(r.Context(), attendanceFilter{
		StudentID: claimsFrom(r).Subject,
		From:      from,
		To:        to,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(records), http.StatusOK)
}

// dateRange reads the from and to query parameters. Missing bounds default to
// today and the given number of days before it.
func (h handler) dateRange(r *http.Request, days int) (time.Time, time.Time, error) {
	today, _ := time.Parse(dateLayout, h.now().Format(dateLayout))
	from, to := today.AddDate(0, 0, -days), today

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return from, to, errors.New("from must be in YYYY-MM-DD format")
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return from, to, errors.New("to must be in YYYY-MM-DD format")
		}
		to = t
	}
	if to.Before(from) {
		return from, to, errors.New("to must not be before from")
	}
	return from, to, nil
}

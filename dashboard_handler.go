package main

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	adminStatsKey = "dashboard:admin"
	adminStatsTTL = 30 * time.Second
)

func (h handler) studentDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.studentStats(r.Context(), claimsFrom(r).Subject)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, stats, http.StatusOK)
}

func (h handler) wardenDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.wardenStats(r.Context(), h.now())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, stats, http.StatusOK)
}

// adminDashboard serves hostel wide totals from the session cache when a
// fresh copy exists.
func (h handler) adminDashboard(w http.ResponseWriter, r *http.Request) {
	if b, ok, err := h.sessions.cached(r.Context(), adminStatsKey); err != nil {
		log.WithError(err).Warn("Failed reading cached dashboard")
	} else if ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write(b)
		return
	}

	stats, err := h.db.adminStats(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if b, err := json.Marshal(stats); err == nil {
		if err = h.sessions.cache(r.Context(), adminStatsKey, b, adminStatsTTL); err != nil {
			log.WithError(err).Warn("Failed caching dashboard")
		}
	}

	w.Header().Set("X-Cache", "MISS")
	respondWithJSON(w, stats, http.StatusOK)
}

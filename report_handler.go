package main

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func (h handler) downloadRoomReport(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.db.listRooms(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	f, err := roomReport(rooms)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	h.sendWorkbook(w, f, "rooms")
}

func (h handler) downloadAttendanceReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.dateRange(r, 30)
	if err != nil {
		respondWithMessage(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.db.listAttendance(r.Context(), attendanceFilter{From: from, To: to})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	staff, err := h.db.listUsers(r.Context(), "")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	names := make(map[string]string, len(staff))
	for _, u := range staff {
		names[u.ID] = u.Name
	}

	f, err := attendanceReport(records, names)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	h.sendWorkbook(w, f, fmt.Sprintf("attendance_%s_%s", from.Format(dateLayout), to.Format(dateLayout)))
}

func (h handler) sendWorkbook(w http.ResponseWriter, f *excelize.File, name string) {
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Error closing workbook")
		}
	}()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.xlsx", name, h.now().Format("20060102_150405")))
	if err := f.Write(w); err != nil {
		log.WithError(err).Error("Failed to write workbook")
	}
}

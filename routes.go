package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRouter wires every endpoint. Role subrouters admit only their role;
// admins also pass the warden gate.
func (h handler) setupRouter() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithMessage(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithMessage(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		respondWithMessage(w, "pong", http.StatusOK)
	}).Methods(http.MethodGet)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/ws", h.serveWS).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(h.authenticate())
	authed.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/profile", h.getProfile).Methods(http.MethodGet)
	authed.HandleFunc("/profile", h.updateProfile).Methods(http.MethodPut)
	authed.HandleFunc("/profile/password", h.changePassword).Methods(http.MethodPut)
	authed.HandleFunc("/notifications", h.listNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/read-all", h.readAllNotifications).Methods(http.MethodPost)
	authed.HandleFunc("/notifications/{id}/read", h.readNotification).Methods(http.MethodPost)

	student := r.PathPrefix("/student").Subrouter()
	student.Use(h.authenticate(roleStudent))
	student.HandleFunc("/dashboard", h.studentDashboard).Methods(http.MethodGet)
	student.HandleFunc("/leaves", h.studentLeaves).Methods(http.MethodGet)
	student.HandleFunc("/leaves", h.createLeave).Methods(http.MethodPost)
	student.HandleFunc("/leaves/{id}", h.cancelLeave).Methods(http.MethodDelete)
	student.HandleFunc("/complaints", h.studentComplaints).Methods(http.MethodGet)
	student.HandleFunc("/complaints", h.createComplaint).Methods(http.MethodPost)
	student.HandleFunc("/outpasses", h.studentOutpasses).Methods(http.MethodGet)
	student.HandleFunc("/outpasses", h.createOutpass).Methods(http.MethodPost)
	student.HandleFunc("/outpasses/{id}/qr", h.outpassQR).Methods(http.MethodGet)
	student.HandleFunc("/attendance", h.studentAttendance).Methods(http.MethodGet)

	warden := r.PathPrefix("/warden").Subrouter()
	warden.Use(h.authenticate(roleWarden, roleAdmin))
	warden.HandleFunc("/dashboard", h.wardenDashboard).Methods(http.MethodGet)
	warden.HandleFunc("/students", h.listStudents).Methods(http.MethodGet)
	warden.HandleFunc("/leaves", h.wardenLeaves).Methods(http.MethodGet)
	warden.HandleFunc("/leaves/{id}/approve", h.approveLeave).Methods(http.MethodPost)
	warden.HandleFunc("/leaves/{id}/reject", h.rejectLeave).Methods(http.MethodPost)
	warden.HandleFunc("/complaints", h.wardenComplaints).Methods(http.MethodGet)
	warden.HandleFunc("/complaints/{id}/progress", h.progressComplaint).Methods(http.MethodPost)
	warden.HandleFunc("/complaints/{id}/resolve", h.resolveComplaint).Methods(http.MethodPost)
	warden.HandleFunc("/outpasses", h.wardenOutpasses).Methods(http.MethodGet)
	warden.HandleFunc("/outpasses/verify", h.verifyOutpass).Methods(http.MethodPost)
	warden.HandleFunc("/outpasses/{id}/approve", h.approveOutpass).Methods(http.MethodPost)
	warden.HandleFunc("/outpasses/{id}/reject", h.rejectOutpass).Methods(http.MethodPost)
	warden.HandleFunc("/outpasses/{id}/return", h.returnOutpass).Methods(http.MethodPost)
	warden.HandleFunc("/attendance", h.attendanceByDate).Methods(http.MethodGet)
	warden.HandleFunc("/attendance", h.markAttendance).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(h.authenticate(roleAdmin))
	admin.HandleFunc("/dashboard", h.adminDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users", h.createUser).Methods(http.MethodPost)
	admin.HandleFunc("/students/import", h.importStudents).Methods(http.MethodPost)
	admin.HandleFunc("/rooms", h.listRooms).Methods(http.MethodGet)
	admin.HandleFunc("/rooms", h.createRoom).Methods(http.MethodPost)
	admin.HandleFunc("/rooms/vacate", h.vacateRoom).Methods(http.MethodPost)
	admin.HandleFunc("/rooms/{id}/allocate", h.allocateRoom).Methods(http.MethodPost)
	admin.HandleFunc("/reports/rooms", h.downloadRoomReport).Methods(http.MethodGet)
	admin.HandleFunc("/reports/attendance", h.downloadAttendanceReport).Methods(http.MethodGet)

	return logRequests(cors(h.allowedOrigin)(r))
}

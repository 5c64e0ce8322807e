package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type storage interface {
	getUserByEmail(ctx context.Context, email string) (user, error)
	getUserByID(ctx context.Context, id string) (user, error)
	listUsers(ctx context.Context, role string) ([]user, error)
	userIDsByRole(ctx context.Context, roles ...string) ([]string, error)
	getStudent(ctx context.Context, id string) (student, error)
	listStudents(ctx context.Context) ([]student, error)
	insertUser(ctx context.Context, u user) error
	insertStudent(ctx context.Context, s student) error
	updateProfile(ctx context.Context, id string, p profileUpdate) error
	updatePassword(ctx context.Context, id string, hash []byte) error

	insertLeave(ctx context.Context, l leave) error
	getLeave(ctx context.Context, id string) (leave, error)
	listLeaves(ctx context.Context, f requestFilter) ([]leave, error)
	updateLeaveStatus(ctx context.Context, id string, c statusChange) (leave, error)

	insertComplaint(ctx context.Context, c complaint) error
	getComplaint(ctx context.Context, id string) (complaint, error)
	listComplaints(ctx context.Context, f requestFilter) ([]complaint, error)
	updateComplaintStatus(ctx context.Context, id string, c statusChange) (complaint, error)

	insertOutpass(ctx context.Context, o outpass) error
	getOutpass(ctx context.Context, id string) (outpass, error)
	getOutpassByCode(ctx context.Context, code string) (outpass, error)
	listOutpasses(ctx context.Context, f requestFilter) ([]outpass, error)
	updateOutpassStatus(ctx context.Context, id string, c statusChange) (outpass, error)

	listRooms(ctx context.Context) ([]room, error)
	getRoom(ctx context.Context, id string) (room, error)
	insertRoom(ctx context.Context, r room) error
	allocateRoom(ctx context.Context, roomID, studentID string) error
	vacateRoom(ctx context.Context, studentID string) error

	markAttendance(ctx context.Context, date time.Time, marks []attendanceMark, markedBy string) ([]attendance, error)
	listAttendance(ctx context.Context, f attendanceFilter) ([]attendance, error)

	insertNotification(ctx context.Context, n notification) error
	listNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification, error)
	markNotificationRead(ctx context.Context, userID, id string) error
	markAllNotificationsRead(ctx context.Context, userID string) error

	adminStats(ctx context.Context) (adminStats, error)
	wardenStats(ctx context.Context, now time.Time) (wardenStats, error)
	studentStats(ctx context.Context, studentID string) (studentStats, error)
}

type handler struct {
	secretKey     []byte
	tokenTTL      time.Duration
	allowedOrigin string
	db            storage
	sessions      sessionStore
	notifier      *notifier
	hub           *hub
	validate      *validator.Validate
	now           func() time.Time
}

func newHandler(cfg config, db storage, sessions sessionStore, sms smsSender) handler {
	h := handler{
		secretKey:     []byte(cfg.SecretKey),
		tokenTTL:      cfg.TokenTTL,
		allowedOrigin: cfg.AllowedOrigin,
		db:            db,
		sessions:      sessions,
		hub:           newHub(),
		now:           time.Now,
	}
	h.validate = newValidator(h.now)
	h.notifier = &notifier{db: db, hub: h.hub, sms: sms, now: h.now}
	return h
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginDecoy is compared against for unknown emails.
var loginDecoy, _ = bcrypt.GenerateFromPassword([]byte("hostel-login-decoy"), bcrypt.DefaultCost)

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      interface{} `json:"user"`
}

func (h handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if !readBody(w, r, &c) {
		return
	}

	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" || c.Password == "" {
		respondWithMessage(w, "Email or password is empty", http.StatusBadRequest)
		return
	}
	if err := h.validate.Var(c.Email, "email"); err != nil {
		respondWithMessage(w, "Email is not valid", http.StatusBadRequest)
		return
	}

	u, err := h.db.getUserByEmail(r.Context(), c.Email)
	if errors.Is(err, errNotFound) {
		_ = bcrypt.CompareHashAndPassword(loginDecoy, []byte(c.Password))
		respondWithMessage(w, "invalid email or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err = bcrypt.CompareHashAndPassword(u.Password, []byte(c.Password)); err != nil {
		log.WithField("userID", u.ID).Info("Failed login attempt")
		respondWithMessage(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	token, expires, err := h.createToken(u)
	if err != nil {
		log.WithError(err).Error("Failed generating token")
		respondWithMessage(w, "something went wrong", http.StatusInternalServerError)
		return
	}

	profile, err := h.profileOf(r.Context(), u)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Authorization", token)
	respondWithJSON(w, loginResponse{Token: token, ExpiresAt: expires, User: profile}, http.StatusOK)
}

func (h handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := h.sessions.revoke(r.Context(), claims.ID, ttl); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithMessage(w, "logged out", http.StatusOK)
}

// profileOf returns the student profile for students and the plain user for staff.
func (h handler) profileOf(ctx context.Context, u user) (interface{}, error) {
	if u.Role != roleStudent {
		return u, nil
	}
	return h.db.getStudent(ctx, u.ID)
}

func (h handler) getProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	u, err := h.db.getUserByID(r.Context(), claims.Subject)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	profile, err := h.profileOf(r.Context(), u)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, profile, http.StatusOK)
}

func (h handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var p profileUpdate
	if !readBody(w, r, &p) {
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	if claims.Role != roleStudent {
		p = profileUpdate{Name: p.Name}
	}
	if !h.validateRequest(w, r, p) {
		return
	}

	if err := h.db.updateProfile(r.Context(), claims.Subject, p); err != nil {
		respondWithError(w, r, err)
		return
	}
	h.getProfile(w, r)
}

func (h handler) changePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req passwordRequest
	if !readBody(w, r, &req) || !h.validateRequest(w, r, req) {
		return
	}

	u, err := h.db.getUserByID(r.Context(), claims.Subject)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err = bcrypt.CompareHashAndPassword(u.Password, []byte(req.CurrentPassword)); err != nil {
		respondWithJSON(w, struct {
			Message string            `json:"message"`
			Errors  map[string]string `json:"errors"`
		}{"validation failed", map[string]string{"currentPassword": "is incorrect"}}, http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err = h.db.updatePassword(r.Context(), claims.Subject, hash); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithMessage(w, "password updated", http.StatusOK)
}

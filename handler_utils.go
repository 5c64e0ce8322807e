package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var (
	errValidatingJWT = errors.New("failed to validate jwt token")
	errMissingRole   = errors.New("role is not present in token")
	errTokenRevoked  = errors.New("token has been revoked")
	errEmptyBody     = errors.New("request body must not be empty")
)

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey int

const claimsKey contextKey = iota

func (h handler) createToken(u user) (string, time.Time, error) {
	issued := time.Now()
	expires := issued.Add(h.tokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	signed, err := token.SignedString(h.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// validateToken accepts both "Bearer <token>" and a bare token.
func (h handler) validateToken(raw string) (*tokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: can not find token", errValidatingJWT)
	}
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return h.secretKey, nil
	})

	switch {
	case err == nil && token.Valid:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: that's not even a token", errValidatingJWT)
	case errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, fmt.Errorf("%w: token is either expired or not active yet", errValidatingJWT)
	default:
		return nil, fmt.Errorf("%w: %v", errValidatingJWT, err)
	}

	if _, err = uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: %v", errValidatingJWT, jwt.ErrTokenInvalidId)
	}
	return claims, nil
}

// performChecks validates the token, rejects revoked ones and, when roles are
// given, requires the token role to be one of them.
func (h handler) performChecks(ctx context.Context, raw string, roles ...string) (*tokenClaims, error) {
	claims, err := h.validateToken(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := h.sessions.isRevoked(ctx, claims.ID)
	if err != nil {
		log.WithError(err).WithField("jti", claims.ID).Error("Failed checking token revocation")
	} else if revoked {
		return nil, errTokenRevoked
	}

	if len(roles) == 0 {
		return claims, nil
	}
	for _, role := range roles {
		if claims.Role == role {
			return claims, nil
		}
	}
	return nil, errMissingRole
}

// authenticate guards a route. The validated claims are stored in the
// request context.
func (h handler) authenticate(roles ...string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := h.performChecks(r.Context(), r.Header.Get("Authorization"), roles...)
			switch {
			case errors.Is(err, errMissingRole):
				log.WithFields(log.Fields{"path": r.URL.Path, "roles": roles}).Warn("Role not allowed")
				respondWithMessage(w, "forbidden", http.StatusForbidden)
				return
			case err != nil:
				log.WithError(err).WithField("path", r.URL.Path).Debug("Rejected token")
				respondWithMessage(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

func claimsFrom(r *http.Request) *tokenClaims {
	claims, _ := r.Context().Value(claimsKey).(*tokenClaims)
	return claims
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logging middleware.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Info("request")
	})
}

func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondWithMessage(w http.ResponseWriter, messageTxt string, statusCode int) {
	type messageResponse struct {
		Message string `json:"message"`
	}

	respondWithJSON(w, &messageResponse{Message: messageTxt}, statusCode)
}

func respondWithJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("Failed to marshal response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"something went wrong"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err = w.Write(resp); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

// respondWithError maps store and workflow errors onto status codes.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNotFound):
		respondWithMessage(w, "not found", http.StatusNotFound)
	case errors.Is(err, errDuplicate):
		respondWithMessage(w, errDuplicate.Error(), http.StatusConflict)
	case errors.Is(err, errInvalidTransition), errors.Is(err, errRoomFull), errors.Is(err, errAlreadyAllocated):
		respondWithMessage(w, err.Error(), http.StatusConflict)
	default:
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("Request failed")
		respondWithMessage(w, "something went wrong", http.StatusInternalServerError)
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

// readBody decodes the request into v and answers 400 itself on failure.
func readBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := decodeBody(r, v); err != nil {
		if errors.Is(err, errEmptyBody) {
			respondWithMessage(w, "content must be provided in request body", http.StatusBadRequest)
			return false
		}
		respondWithMessage(w, "Invalid body", http.StatusBadRequest)
		return false
	}
	return true
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dchest/uniuri"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	tempPasswordLength = 10
	maxImportSize      = 5 << 20
)

func (h handler) listUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	switch role {
	case "", roleStudent, roleWarden, roleAdmin:
	default:
		respondWithMessage(w, "role must be one of: student, warden, admin", http.StatusBadRequest)
		return
	}

	users, err := h.db.listUsers(r.Context(), role)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(users), http.StatusOK)
}

func (h handler) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.db.listStudents(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, nonNil(students), http.StatusOK)
}

type createdUser struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

func (h handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !readBody(w, r, &req) {
		return
	}
	normalizeUserRequest(&req)
	if !h.validateRequest(w, r, req) {
		return
	}

	created, err := h.addUser(r.Context(), req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"userID": created.ID, "role": created.Role}).Info("User created")
	respondWithJSON(w, created, http.StatusCreated)
}

func normalizeUserRequest(req *createUserRequest) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.RollNumber = strings.ToUpper(strings.TrimSpace(req.RollNumber))
	req.Department = strings.TrimSpace(req.Department)
}

// addUser stores a validated request. Without a password a temporary one is
// generated and returned once.
func (h handler) addUser(ctx context.Context, req createUserRequest) (createdUser, error) {
	password, temporary := req.Password, ""
	if password == "" {
		password = uniuri.NewLen(tempPasswordLength)
		temporary = password
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return createdUser{}, err
	}

	u := user{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		Password:  hash,
		CreatedAt: h.now().UTC(),
	}

	if u.Role == roleStudent {
		err = h.db.insertStudent(ctx, student{
			user:            u,
			RollNumber:      req.RollNumber,
			Department:      req.Department,
			Year:            req.Year,
			ContactNumber:   req.ContactNumber,
			Address:         req.Address,
			GuardianName:    req.GuardianName,
			GuardianContact: req.GuardianContact,
		})
	} else {
		err = h.db.insertUser(ctx, u)
	}
	if err != nil {
		return createdUser{}, err
	}

	return createdUser{ID: u.ID, Email: u.Email, Role: u.Role, TemporaryPassword: temporary}, nil
}

type importResult struct {
	Imported []createdUser `json:"imported"`
	Errors   []string      `json:"errors"`
}

// importStudents creates students from an uploaded xlsx sheet. Bad rows are
// skipped and listed in the response.
func (h handler) importStudents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondWithMessage(w, "file must be uploaded as multipart form data", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondWithMessage(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, err := readStudentSheet(file)
	var rowErrs *multierror.Error
	if err != nil && !errors.As(err, &rowErrs) {
		log.WithError(err).Warn("Rejected student import")
		respondWithMessage(w, "file is not a readable xlsx workbook", http.StatusBadRequest)
		return
	}

	result := importResult{Imported: []createdUser{}}
	for _, row := range rows {
		req := row.Request
		normalizeUserRequest(&req)

		if err = h.validate.Struct(req); err != nil {
			rowErrs = multierror.Append(rowErrs, fmt.Errorf("row %d: %s", row.Line, describeValidation(err)))
			continue
		}

		created, err := h.addUser(r.Context(), req)
		if err != nil {
			if errors.Is(err, errDuplicate) {
				rowErrs = multierror.Append(rowErrs, fmt.Errorf("row %d: email or roll number already exists", row.Line))
				continue
			}
			respondWithError(w, r, err)
			return
		}
		result.Imported = append(result.Imported, created)
	}

	result.Errors = []string{}
	if rowErrs != nil {
		for _, e := range rowErrs.Errors {
			result.Errors = append(result.Errors, e.Error())
		}
	}

	log.WithFields(log.Fields{"imported": len(result.Imported), "skipped": len(result.Errors)}).Info("Student import finished")
	respondWithJSON(w, result, http.StatusOK)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" "+fieldMessage(fe))
	}
	return strings.Join(parts, "; ")
}

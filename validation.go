package main

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

const bcryptMaxBytes = 72

// outpassGrace is how far in the past an outpass exit time may lie.
const outpassGrace = 5 * time.Minute

type leaveRequest struct {
	Type      string `json:"type" validate:"required,oneof=personal medical family"`
	Reason    string `json:"reason" validate:"required,max=500"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type complaintRequest struct {
	Category    string `json:"category" validate:"required,oneof=maintenance food hygiene other"`
	Description string `json:"description" validate:"required,max=1000"`
	Location    string `json:"location" validate:"required,max=200"`
}

type outpassRequest struct {
	Destination        string    `json:"destination" validate:"required,max=200"`
	Purpose            string    `json:"purpose" validate:"required,max=500"`
	ExitTime           time.Time `json:"exitTime" validate:"required"`
	ExpectedReturnTime time.Time `json:"expectedReturnTime" validate:"required"`
}

type reviewRequest struct {
	Remarks string `json:"remarks" validate:"max=500"`
}

type resolveRequest struct {
	Response string `json:"response" validate:"required,max=1000"`
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,len=8,alphanum"`
}

type attendanceRequest struct {
	Date    string           `json:"date" validate:"required,datetime=2006-01-02"`
	Records []attendanceMark `json:"records" validate:"required,min=1,dive"`
}

type roomRequest struct {
	Number   string `json:"number" validate:"required,max=10"`
	Block    string `json:"block" validate:"required,max=5"`
	Floor    int    `json:"floor" validate:"gte=0,lte=50"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=10"`
}

type allocateRequest struct {
	StudentID string `json:"studentId" validate:"required,uuid"`
}

type createUserRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"omitempty,min=8,max=72,bcryptlen"`
	Role            string `json:"role" validate:"required,oneof=student warden admin"`
	RollNumber      string `json:"rollNumber" validate:"required_if=Role student,max=20"`
	Department      string `json:"department" validate:"required_if=Role student,max=100"`
	Year            int    `json:"year" validate:"required_if=Role student,gte=0,max=6"`
	ContactNumber   string `json:"contactNumber" validate:"omitempty,numeric,min=7,max=15"`
	Address         string `json:"address" validate:"max=300"`
	GuardianName    string `json:"guardianName" validate:"max=100"`
	GuardianContact string `json:"guardianContact" validate:"omitempty,numeric,min=7,max=15"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72,bcryptlen"`
}

func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// bcrypt rejects input longer than 72 bytes; max counts characters.
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= bcryptMaxBytes
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(leaveRequest)
		start, err1 := time.Parse(dateLayout, req.StartDate)
		end, err2 := time.Parse(dateLayout, req.EndDate)
		if err1 != nil || err2 != nil {
			return
		}
		if end.Before(start) {
			sl.ReportError(req.EndDate, "endDate", "EndDate", "gtefield", "startDate")
		}
		if req.StartDate < now().Format(dateLayout) {
			sl.ReportError(req.StartDate, "startDate", "StartDate", "notpast", "")
		}
	}, leaveRequest{})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(outpassRequest)
		if req.ExitTime.IsZero() || req.ExpectedReturnTime.IsZero() {
			return
		}
		if !req.ExpectedReturnTime.After(req.ExitTime) {
			sl.ReportError(req.ExpectedReturnTime, "expectedReturnTime", "ExpectedReturnTime", "gtfield", "exitTime")
		}
		if req.ExitTime.Before(now().Add(-outpassGrace)) {
			sl.ReportError(req.ExitTime, "exitTime", "ExitTime", "notpast", "")
		}
	}, outpassRequest{})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(attendanceRequest)
		if _, err := time.Parse(dateLayout, req.Date); err != nil {
			return
		}
		if req.Date > now().Format(dateLayout) {
			sl.ReportError(req.Date, "date", "Date", "notfuture", "")
		}
	}, attendanceRequest{})

	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "uuid":
		return "must be a valid id"
	case "numeric":
		return "must contain digits only"
	case "alphanum":
		return "must contain letters and digits only"
	case "gtfield":
		return "must be after " + fe.Param()
	case "gtefield":
		return "must not be before " + fe.Param()
	case "notpast":
		return "must not be in the past"
	case "notfuture":
		return "must not be in the future"
	case "bcryptlen":
		return "must be at most 72 bytes"
	}
	return "is invalid"
}

// validateRequest answers 400 with per-field messages when v is invalid.
func (h handler) validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondWithError(w, r, err)
		return false
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if ns := fe.Namespace(); strings.Count(ns, ".") > 1 {
			name = ns[strings.Index(ns, ".")+1:]
		}
		if _, seen := fields[name]; !seen {
			fields[name] = fieldMessage(fe)
		}
	}

	respondWithJSON(w, struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}{"validation failed", fields}, http.StatusBadRequest)
	return false
}

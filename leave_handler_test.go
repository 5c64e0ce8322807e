package main

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func day(offset int) string {
	return time.Now().AddDate(0, 0, offset).Format(dateLayout)
}

func Test_createLeave(t *testing.T) {
	env := setupHandler(t, nil)

	tests := []struct {
		name               string
		body               string
		expectedStatusCode int
		expectedField      string
	}{
		{
			"End before start",
			fmt.Sprintf(`{"type":"personal","reason":"trip","startDate":"%s","endDate":"%s"}`, day(3), day(2)),
			http.StatusBadRequest,
			"endDate",
		},
		{
			"Start in the past",
			fmt.Sprintf(`{"type":"personal","reason":"trip","startDate":"%s","endDate":"%s"}`, day(-2), day(2)),
			http.StatusBadRequest,
			"startDate",
		},
		{
			"Blank reason",
			fmt.Sprintf(`{"type":"medical","reason":"   ","startDate":"%s","endDate":"%s"}`, day(1), day(2)),
			http.StatusBadRequest,
			"reason",
		},
		{
			"Unknown type",
			fmt.Sprintf(`{"type":"holiday","reason":"trip","startDate":"%s","endDate":"%s"}`, day(1), day(2)),
			http.StatusBadRequest,
			"type",
		},
		{
			"Malformed date",
			fmt.Sprintf(`{"type":"family","reason":"trip","startDate":"tomorrow","endDate":"%s"}`, day(2)),
			http.StatusBadRequest,
			"startDate",
		},
		{
			"Single day starting today",
			fmt.Sprintf(`{"type":"family","reason":"wedding","startDate":"%s","endDate":"%s"}`, day(0), day(0)),
			http.StatusCreated,
			"",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			respRec := env.serve(env.requestWithAuth(t, http.MethodPost, "/student/leaves", test.body, env.student.user))
			if respRec.Code != test.expectedStatusCode {
				t.Fatalf("Expected response %d, but got %d: %s", test.expectedStatusCode, respRec.Code, respRec.Body)
			}
			if test.expectedField == "" {
				return
			}
			resp := decodeResponse[validationResponse](t, respRec)
			if _, ok := resp.Errors[test.expectedField]; !ok {
				t.Fatalf("Expected error for %s, got %v", test.expectedField, resp.Errors)
			}
		})
	}

	t.Run("Created leave is pending and wardens are told", func(t *testing.T) {
		body := fmt.Sprintf(`{"type":"medical","reason":" checkup ","startDate":"%s","endDate":"%s"}`, day(1), day(3))
		respRec := env.serve(env.requestWithAuth(t, http.MethodPost, "/student/leaves", body, env.student.user))
		if respRec.Code != http.StatusCreated {
			t.Fatalf("Expected response %d, but got %d: %s", http.StatusCreated, respRec.Code, respRec.Body)
		}

		l := decodeResponse[leave](t, respRec)
		if l.Status != statusPending || l.Reason != "checkup" || l.StudentID != env.student.ID || l.StudentName != "Ravi Shankar" {
			t.Fatalf("Unexpected leave %+v", l)
		}
		if l.StartDate.Format(dateLayout) != day(1) {
			t.Fatalf("Expected start date %s, got %s", day(1), l.StartDate.Format(dateLayout))
		}
		dates := fmt.Sprintf(`"startDate":"%s","endDate":"%s"`, day(1), day(3))
		if !strings.Contains(respRec.Body.String(), dates) {
			t.Fatalf("Expected plain dates %s in %s", dates, respRec.Body)
		}

		if notes := env.db.notificationsFor(env.warden.ID); len(notes) == 0 {
			t.Fatal("Expected warden notification")
		}
		if notes := env.db.notificationsFor(env.admin.ID); len(notes) != 0 {
			t.Fatal("Admins are not notified about new leaves")
		}
	})
}

func seedLeave(env *testEnv, studentID, status string, start, end time.Time) leave {
	l := leave{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Type:      "personal",
		Reason:    "visit home",
		StartDate: newCalendarDate(start),
		EndDate:   newCalendarDate(end),
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	env.db.leaves[l.ID] = l
	return l
}

func midnight(offset int) time.Time {
	t, _ := time.Parse(dateLayout, day(offset))
	return t
}

func Test_studentLeaves(t *testing.T) {
	env := setupHandler(t, nil)

	respRec := env.serve(env.requestWithAuth(t, http.MethodGet, "/student/leaves", "", env.student.user))
	if respRec.Body.String() != "[]" {
		t.Fatalf("Expected empty list, got %s", respRec.Body)
	}

	seedLeave(env, env.student.ID, statusPending, midnight(1), midnight(2))
	seedLeave(env, env.student2.ID, statusPending, midnight(1), midnight(2))

	respRec = env.serve(env.requestWithAuth(t, http.MethodGet, "/student/leaves", "", env.student.user))
	leaves := decodeResponse[[]leave](t, respRec)
	if len(leaves) != 1 || leaves[0].StudentID != env.student.ID {
		t.Fatalf("Expected only own leaves, got %+v", leaves)
	}
}

func Test_cancelLeave(t *testing.T) {
	env := setupHandler(t, nil)
	own := seedLeave(env, env.student.ID, statusPending, midnight(1), midnight(2))
	other := seedLeave(env, env.student2.ID, statusPending, midnight(1), midnight(2))
	approved := seedLeave(env, env.student.ID, statusApproved, midnight(1), midnight(2))

	tests := []struct {
		name               string
		id                 string
		expectedStatusCode int
	}{
		{"Someone else's leave", other.ID, http.StatusNotFound},
		{"Unknown leave", uuid.NewString(), http.StatusNotFound},
		{"Already approved", approved.ID, http.StatusConflict},
		{"Own pending leave", own.ID, http.StatusOK},
		{"Cancel twice", own.ID, http.StatusConflict},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			respRec := env.serve(env.requestWithAuth(t, http.MethodDelete, "/student/leaves/"+test.id, "", env.student.user))
			if respRec.Code != test.expectedStatusCode {
				t.Fatalf("Expected response %d, but got %d: %s", test.expectedStatusCode, respRec.Code, respRec.Body)
			}
		})
	}

	if env.db.leaves[own.ID].Status != statusCancelled {
		t.Fatalf("Expected cancelled leave, got %s", env.db.leaves[own.ID].Status)
	}
	if env.db.leaves[other.ID].Status != statusPending {
		t.Fatal("Other student's leave must be untouched")
	}
}

func Test_reviewLeave(t *testing.T) {
	env := setupHandler(t, nil)
	first := seedLeave(env, env.student.ID, statusPending, midnight(1), midnight(2))
	second := seedLeave(env, env.student.ID, statusPending, midnight(4), midnight(5))

	t.Run("Warden lists pending leaves", func(t *testing.T) {
		respRec := env.serve(env.requestWithAuth(t, http.MethodGet, "/warden/leaves?status=pending", "", env.warden))
		if leaves := decodeResponse[[]leave](t, respRec); len(leaves) != 2 || leaves[0].RollNumber != "19CS101" {
			t.Fatalf("Unexpected leaves %+v", leaves)
		}
	})

	t.Run("Approve", func(t *testing.T) {
		respRec := env.serve(env.requestWithAuth(t, http.MethodPost, "/warden/leaves/"+first.ID+"/approve",
			`{"remarks":"enjoy"}`, env.warden))
		if respRec.Code != http.StatusOK {
			t.Fatalf("Expected response %d, but got %d: %s", http.StatusOK, respRec.Code, respRec.Body)
		}
		l := decodeResponse[leave](t, respRec)
		if l.Status != statusApproved || l.Remarks != "enjoy" || l.ReviewedBy == nil || *l.ReviewedBy != env.warden.ID {
			t.Fatalf("Unexpected leave %+v", l)
		}

		notes := env.db.notificationsFor(env.student.ID)
		if len(notes) != 1 || notes[0].Type != notificationSuccess {
			t.Fatalf("Expected one success notification, got %+v", notes)
		}

		sent := env.sms.messages()
		if len(sent) != 1 || sent[0].to != "9876543211" || !strings.Contains(sent[0].body, "Ravi Shankar") {
			t.Fatalf("Expected guardian SMS, got %+v", sent)
		}
	})

	t.Run("Approve twice", func(t *testing.T) {
		respRec := env.serve(env.requestWithAuth(t, http.MethodPost, "/warden/leaves/"+first.ID+"/reject", "", env.warden))
		if respRec.Code != http.StatusConflict {
			t.Fatalf("Expected response %d, but got %d", http.StatusConflict, respRec.Code)
		}
	})

	t.Run("Reject without body", func(t *testing.T) {
		respRec := env.serve(env.requestWithAuth(t, http.MethodPost, "/warden/leaves/"+second.ID+"/reject", "", env.admin))
		if respRec.Code != http.StatusOK {
			t.Fatalf("Expected response %d, but got %d: %s", http.StatusOK, respRec.Code, respRec.Body)
		}
		if l := decodeResponse[leave](t, respRec); l.Status != statusRejected {
			t.Fatalf("Expected rejected leave, got %s", l.Status)
		}
		if len(env.sms.messages()) != 1 {
			t.Fatal("Rejections must not text the guardian")
		}
	})

	t.Run("Unknown leave", func(t *testing.T) {
		respRec := env.serve(env.requestWithAuth(t, http.MethodPost, "/warden/leaves/"+uuid.NewString()+"/approve", "", env.warden))
		if respRec.Code != http.StatusNotFound {
			t.Fatalf("Expected response %d, but got %d", http.StatusNotFound, respRec.Code)
		}
	})
}

package main

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
)

const (
	roleStudent = "student"
	roleWarden  = "warden"
	roleAdmin   = "admin"
)

const (
	statusPending    = "pending"
	statusApproved   = "approved"
	statusRejected   = "rejected"
	statusCancelled  = "cancelled"
	statusInProgress = "in-progress"
	statusResolved   = "resolved"
	statusReturned   = "returned"
)

const (
	attendancePresent = "present"
	attendanceAbsent  = "absent"
	attendanceLeave   = "leave"
)

const (
	notificationInfo    = "info"
	notificationSuccess = "success"
	notificationWarning = "warning"
	notificationError   = "error"
)

// transitions maps a target status to the statuses it may be reached from.
type transitions map[string][]string

func (t transitions) from(to string) []string {
	return t[to]
}

var (
	leaveTransitions = transitions{
		statusApproved:  {statusPending},
		statusRejected:  {statusPending},
		statusCancelled: {statusPending},
	}

	complaintTransitions = transitions{
		statusInProgress: {statusPending},
		statusResolved:   {statusPending, statusInProgress},
	}

	outpassTransitions = transitions{
		statusApproved: {statusPending},
		statusRejected: {statusPending},
		statusReturned: {statusApproved},
	}
)

// calendarDate is a day without time of day. It travels as YYYY-MM-DD in JSON
// and maps onto a postgres DATE.
type calendarDate struct {
	time.Time
}

func newCalendarDate(t time.Time) calendarDate {
	y, m, d := t.Date()
	return calendarDate{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d calendarDate) String() string {
	return d.Format(dateLayout)
}

func (d calendarDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *calendarDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = calendarDate{t}
	return nil
}

func (d *calendarDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = newCalendarDate(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into a date", src)
}

func (d *calendarDate) parse(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = calendarDate{t}
	return nil
}

func (d calendarDate) Value() (driver.Value, error) {
	return d.String(), nil
}

type user struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	Avatar    string    `db:"avatar" json:"avatar,omitempty"`
	Password  []byte    `db:"password" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type student struct {
	user
	RollNumber      string `db:"roll_number" json:"rollNumber"`
	RoomID          string `db:"room_id" json:"roomId,omitempty"`
	RoomNumber      string `db:"room_number" json:"roomNumber,omitempty"`
	HostelBlock     string `db:"hostel_block" json:"hostelBlock,omitempty"`
	Department      string `db:"department" json:"department"`
	Year            int    `db:"year" json:"year"`
	ContactNumber   string `db:"contact_number" json:"contactNumber"`
	Address         string `db:"address" json:"address"`
	GuardianName    string `db:"guardian_name" json:"guardianName"`
	GuardianContact string `db:"guardian_contact" json:"guardianContact"`
}

type leave struct {
	ID          string       `db:"id" json:"id"`
	StudentID   string       `db:"student_id" json:"studentId"`
	StudentName string       `db:"student_name" json:"studentName,omitempty"`
	RollNumber  string       `db:"roll_number" json:"rollNumber,omitempty"`
	Type        string       `db:"type" json:"type"`
	Reason      string       `db:"reason" json:"reason"`
	StartDate   calendarDate `db:"start_date" json:"startDate"`
	EndDate     calendarDate `db:"end_date" json:"endDate"`
	Status      string       `db:"status" json:"status"`
	ReviewedBy  *string      `db:"reviewed_by" json:"reviewedBy,omitempty"`
	Remarks     string       `db:"remarks" json:"remarks,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
}

type complaint struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"studentId"`
	StudentName string    `db:"student_name" json:"studentName,omitempty"`
	RoomNumber  string    `db:"room_number" json:"roomNumber,omitempty"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	Status      string    `db:"status" json:"status"`
	Response    string    `db:"response" json:"response,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type outpass struct {
	ID                 string     `db:"id" json:"id"`
	StudentID          string     `db:"student_id" json:"studentId"`
	StudentName        string     `db:"student_name" json:"studentName,omitempty"`
	RollNumber         string     `db:"roll_number" json:"rollNumber,omitempty"`
	Destination        string     `db:"destination" json:"destination"`
	Purpose            string     `db:"purpose" json:"purpose"`
	ExitTime           time.Time  `db:"exit_time" json:"exitTime"`
	ExpectedReturnTime time.Time  `db:"expected_return_time" json:"expectedReturnTime"`
	Status             string     `db:"status" json:"status"`
	ReviewedBy         *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
	Remarks            string     `db:"remarks" json:"remarks,omitempty"`
	GateCode           string     `db:"gate_code" json:"gateCode,omitempty"`
	ActualReturnTime   *time.Time `db:"actual_return_time" json:"actualReturnTime,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
}

// overdue reports whether an approved outpass is past its expected return.
func (o outpass) overdue(now time.Time) bool {
	return o.Status == statusApproved && o.ActualReturnTime == nil && o.ExpectedReturnTime.Before(now)
}

type attendance struct {
	ID          string       `db:"id" json:"id"`
	StudentID   string       `db:"student_id" json:"studentId"`
	StudentName string       `db:"student_name" json:"studentName,omitempty"`
	RollNumber  string       `db:"roll_number" json:"rollNumber,omitempty"`
	Date        calendarDate `db:"date" json:"date"`
	Status      string       `db:"status" json:"status"`
	MarkedBy    *string      `db:"marked_by" json:"markedBy,omitempty"`
}

type room struct {
	ID            string         `db:"id" json:"id"`
	Number        string         `db:"number" json:"number"`
	Block         string         `db:"block" json:"block"`
	Floor         int            `db:"floor" json:"floor"`
	Capacity      int            `db:"capacity" json:"capacity"`
	OccupiedCount int            `db:"occupied_count" json:"occupiedCount"`
	Available     bool           `db:"available" json:"available"`
	Students      pq.StringArray `db:"students" json:"students"`
}

type notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// statusChange describes one guarded status update. Empty fields leave the
// stored value untouched.
type statusChange struct {
	To         string
	From       []string
	ReviewedBy string
	Remarks    string
	Response   string
	GateCode   string
	ReturnedAt *time.Time
}

type requestFilter struct {
	StudentID string
	Status    string
	Category  string
	Overdue   bool
	Now       time.Time
}

type attendanceFilter struct {
	StudentID string
	From      time.Time
	To        time.Time
}

type attendanceMark struct {
	StudentID string `json:"studentId" validate:"required,uuid"`
	Status    string `json:"status" validate:"required,oneof=present absent leave"`
}

type profileUpdate struct {
	Name            string `json:"name" validate:"required,max=100"`
	ContactNumber   string `json:"contactNumber" validate:"omitempty,numeric,min=7,max=15"`
	Address         string `json:"address" validate:"max=300"`
	GuardianName    string `json:"guardianName" validate:"max=100"`
	GuardianContact string `json:"guardianContact" validate:"omitempty,numeric,min=7,max=15"`
}

type adminStats struct {
	TotalStudents        int            `json:"totalStudents"`
	TotalRooms           int            `json:"totalRooms"`
	AvailableRooms       int            `json:"availableRooms"`
	TotalCapacity        int            `json:"totalCapacity"`
	OccupiedBeds         int            `json:"occupiedBeds"`
	OccupancyRate        float64        `json:"occupancyRate"`
	PendingLeaves        int            `json:"pendingLeaves"`
	PendingComplaints    int            `json:"pendingComplaints"`
	PendingOutpasses     int            `json:"pendingOutpasses"`
	LeavesByStatus       map[string]int `json:"leavesByStatus"`
	ComplaintsByCategory map[string]int `json:"complaintsByCategory"`
	StudentsByDepartment map[string]int `json:"studentsByDepartment"`
}

// occupancyRate is the share of beds in use as a percentage with one decimal.
func occupancyRate(occupied, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Round(float64(occupied)*1000/float64(capacity)) / 10
}

type wardenStats struct {
	PendingLeaves     int `db:"pending_leaves" json:"pendingLeaves"`
	PendingComplaints int `db:"pending_complaints" json:"pendingComplaints"`
	PendingOutpasses  int `db:"pending_outpasses" json:"pendingOutpasses"`
	OverdueOutpasses  int `db:"overdue_outpasses" json:"overdueOutpasses"`
	TotalStudents     int `db:"total_students" json:"totalStudents"`
}

type studentStats struct {
	Leaves              map[string]int `json:"leaves"`
	Complaints          map[string]int `json:"complaints"`
	Outpasses           map[string]int `json:"outpasses"`
	UnreadNotifications int            `json:"unreadNotifications"`
	RoomNumber          string         `json:"roomNumber,omitempty"`
	HostelBlock         string         `json:"hostelBlock,omitempty"`
}

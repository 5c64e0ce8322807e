package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory storage with the same observable rules as the
// postgres store.
type fakeStore struct {
	mu            sync.Mutex
	users         map[string]user
	students      map[string]student
	leaves        map[string]leave
	complaints    map[string]complaint
	outpasses     map[string]outpass
	rooms         map[string]room
	attendance    map[string]attendance
	notifications []notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]user{},
		students:   map[string]student{},
		leaves:     map[string]leave{},
		complaints: map[string]complaint{},
		outpasses:  map[string]outpass{},
		rooms:      map[string]room{},
		attendance: map[string]attendance{},
	}
}

func (f *fakeStore) getUserByEmail(_ context.Context, email string) (user, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user{}, errNotFound
}

func (f *fakeStore) getUserByID(_ context.Context, id string) (user, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user{}, errNotFound
	}
	return u, nil
}

func (f *fakeStore) listUsers(_ context.Context, role string) ([]user, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []user
	for _, u := range f.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) userIDsByRole(_ context.Context, roles ...string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, u := range f.users {
		for _, r := range roles {
			if u.Role == r {
				ids = append(ids, u.ID)
			}
		}
	}
	return ids, nil
}

// studentView must be called with mu held.
func (f *fakeStore) studentView(id string) (student, bool) {
	s, ok := f.students[id]
	if !ok {
		return student{}, false
	}
	s.user = f.users[id]
	s.RoomNumber, s.HostelBlock = "", ""
	if r, ok := f.rooms[s.RoomID]; ok {
		s.RoomNumber, s.HostelBlock = r.Number, r.Block
	}
	return s, true
}

func (f *fakeStore) getStudent(_ context.Context, id string) (student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.studentView(id)
	if !ok {
		return student{}, errNotFound
	}
	return s, nil
}

func (f *fakeStore) listStudents(_ context.Context) ([]student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []student
	for id := range f.students {
		s, _ := f.studentView(id)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNumber < out[j].RollNumber })
	return out, nil
}

// addUser must be called with mu held.
func (f *fakeStore) addUser(u user) error {
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: users_email_key", errDuplicate)
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) insertUser(_ context.Context, u user) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUser(u)
}

func (f *fakeStore) insertStudent(_ context.Context, s student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.students {
		if existing.RollNumber == s.RollNumber {
			return fmt.Errorf("%w: student_profiles_roll_number_key", errDuplicate)
		}
	}
	if s.RoomID != "" {
		if _, ok := f.rooms[s.RoomID]; !ok {
			return errNotFound
		}
	}
	if err := f.addUser(s.user); err != nil {
		return err
	}
	f.students[s.ID] = s
	return nil
}

func (f *fakeStore) updateProfile(_ context.Context, id string, p profileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return errNotFound
	}
	u.Name = p.Name
	f.users[id] = u

	if s, ok := f.students[id]; ok {
		s.ContactNumber, s.Address = p.ContactNumber, p.Address
		s.GuardianName, s.GuardianContact = p.GuardianName, p.GuardianContact
		f.students[id] = s
	}
	return nil
}

func (f *fakeStore) updatePassword(_ context.Context, id string, hash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return errNotFound
	}
	u.Password = hash
	f.users[id] = u
	return nil
}

func allowed(status string, from []string) bool {
	for _, s := range from {
		if s == status {
			return true
		}
	}
	return false
}

func (f *fakeStore) leaveView(l leave) leave {
	l.StudentName = f.users[l.StudentID].Name
	l.RollNumber = f.students[l.StudentID].RollNumber
	return l
}

func (f *fakeStore) insertLeave(_ context.Context, l leave) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[l.StudentID]; !ok {
		return errNotFound
	}
	f.leaves[l.ID] = l
	return nil
}

func (f *fakeStore) getLeave(_ context.Context, id string) (leave, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leaves[id]
	if !ok {
		return leave{}, errNotFound
	}
	return f.leaveView(l), nil
}

func (f *fakeStore) listLeaves(_ context.Context, flt requestFilter) ([]leave, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []leave
	for _, l := range f.leaves {
		if (flt.StudentID == "" || l.StudentID == flt.StudentID) && (flt.Status == "" || l.Status == flt.Status) {
			out = append(out, f.leaveView(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) updateLeaveStatus(_ context.Context, id string, c statusChange) (leave, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leaves[id]
	if !ok {
		return leave{}, errNotFound
	}
	if !allowed(l.Status, c.From) {
		return leave{}, errInvalidTransition
	}
	l.Status = c.To
	if c.ReviewedBy != "" {
		reviewer := c.ReviewedBy
		l.ReviewedBy = &reviewer
	}
	if c.Remarks != "" {
		l.Remarks = c.Remarks
	}
	l.UpdatedAt = time.Now().UTC()
	f.leaves[id] = l
	return f.leaveView(l), nil
}

func (f *fakeStore) complaintView(c complaint) complaint {
	c.StudentName = f.users[c.StudentID].Name
	if r, ok := f.rooms[f.students[c.StudentID].RoomID]; ok {
		c.RoomNumber = r.Number
	}
	return c
}

func (f *fakeStore) insertComplaint(_ context.Context, c complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[c.StudentID]; !ok {
		return errNotFound
	}
	f.complaints[c.ID] = c
	return nil
}

func (f *fakeStore) getComplaint(_ context.Context, id string) (complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.complaints[id]
	if !ok {
		return complaint{}, errNotFound
	}
	return f.complaintView(c), nil
}

func (f *fakeStore) listComplaints(_ context.Context, flt requestFilter) ([]complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []complaint
	for _, c := range f.complaints {
		if (flt.StudentID == "" || c.StudentID == flt.StudentID) &&
			(flt.Status == "" || c.Status == flt.Status) &&
			(flt.Category == "" || c.Category == flt.Category) {
			out = append(out, f.complaintView(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) updateComplaintStatus(_ context.Context, id string, c statusChange) (complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cm, ok := f.complaints[id]
	if !ok {
		return complaint{}, errNotFound
	}
	if !allowed(cm.Status, c.From) {
		return complaint{}, errInvalidTransition
	}
	cm.Status = c.To
	if c.Response != "" {
		cm.Response = c.Response
	}
	cm.UpdatedAt = time.Now().UTC()
	f.complaints[id] = cm
	return f.complaintView(cm), nil
}

func (f *fakeStore) outpassView(o outpass) outpass {
	o.StudentName = f.users[o.StudentID].Name
	o.RollNumber = f.students[o.StudentID].RollNumber
	return o
}

func (f *fakeStore) insertOutpass(_ context.Context, o outpass) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[o.StudentID]; !ok {
		return errNotFound
	}
	f.outpasses[o.ID] = o
	return nil
}

func (f *fakeStore) getOutpass(_ context.Context, id string) (outpass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.outpasses[id]
	if !ok {
		return outpass{}, errNotFound
	}
	return f.outpassView(o), nil
}

func (f *fakeStore) getOutpassByCode(_ context.Context, code string) (outpass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.outpasses {
		if code != "" && o.GateCode == code {
			return f.outpassView(o), nil
		}
	}
	return outpass{}, errNotFound
}

func (f *fakeStore) listOutpasses(_ context.Context, flt requestFilter) ([]outpass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := flt.Now
	if now.IsZero() {
		now = time.Now()
	}
	var out []outpass
	for _, o := range f.outpasses {
		if (flt.StudentID == "" || o.StudentID == flt.StudentID) &&
			(flt.Status == "" || o.Status == flt.Status) &&
			(!flt.Overdue || o.overdue(now)) {
			out = append(out, f.outpassView(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) updateOutpassStatus(_ context.Context, id string, c statusChange) (outpass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.outpasses[id]
	if !ok {
		return outpass{}, errNotFound
	}
	if !allowed(o.Status, c.From) {
		return outpass{}, errInvalidTransition
	}
	o.Status = c.To
	if c.ReviewedBy != "" {
		reviewer := c.ReviewedBy
		o.ReviewedBy = &reviewer
	}
	if c.Remarks != "" {
		o.Remarks = c.Remarks
	}
	if c.GateCode != "" {
		o.GateCode = c.GateCode
	}
	if c.ReturnedAt != nil {
		o.ActualReturnTime = c.ReturnedAt
	}
	o.UpdatedAt = time.Now().UTC()
	f.outpasses[id] = o
	return f.outpassView(o), nil
}

// roomView must be called with mu held.
func (f *fakeStore) roomView(r room) room {
	r.Students = nil
	for id, s := range f.students {
		if s.RoomID == r.ID {
			r.Students = append(r.Students, id)
		}
	}
	sort.Strings(r.Students)
	r.OccupiedCount = len(r.Students)
	r.Available = r.OccupiedCount < r.Capacity
	if r.Students == nil {
		r.Students = []string{}
	}
	return r
}

func (f *fakeStore) listRooms(_ context.Context) ([]room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []room
	for _, r := range f.rooms {
		out = append(out, f.roomView(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeStore) getRoom(_ context.Context, id string) (room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return room{}, errNotFound
	}
	return f.roomView(r), nil
}

func (f *fakeStore) insertRoom(_ context.Context, r room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rooms {
		if existing.Number == r.Number {
			return fmt.Errorf("%w: rooms_number_key", errDuplicate)
		}
	}
	f.rooms[r.ID] = r
	return nil
}

func (f *fakeStore) allocateRoom(_ context.Context, roomID, studentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return errNotFound
	}
	s, ok := f.students[studentID]
	if !ok {
		return errNotFound
	}
	if s.RoomID == roomID {
		return errAlreadyAllocated
	}
	if f.roomView(r).OccupiedCount >= r.Capacity {
		return errRoomFull
	}
	s.RoomID = roomID
	f.students[studentID] = s
	return nil
}

func (f *fakeStore) vacateRoom(_ context.Context, studentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[studentID]
	if !ok || s.RoomID == "" {
		return errNotFound
	}
	s.RoomID = ""
	f.students[studentID] = s
	return nil
}

func (f *fakeStore) onApprovedLeave(studentID string, date time.Time) bool {
	for _, l := range f.leaves {
		if l.StudentID == studentID && l.Status == statusApproved && !date.Before(l.StartDate.Time) && !date.After(l.EndDate.Time) {
			return true
		}
	}
	return false
}

func (f *fakeStore) markAttendance(ctx context.Context, date time.Time, marks []attendanceMark, markedBy string) ([]attendance, error) {
	f.mu.Lock()
	for _, m := range marks {
		if _, ok := f.students[m.StudentID]; !ok {
			f.mu.Unlock()
			return nil, errNotFound
		}
	}
	for _, m := range marks {
		status := m.Status
		if f.onApprovedLeave(m.StudentID, date) {
			status = attendanceLeave
		}
		key := m.StudentID + date.Format(dateLayout)
		rec, ok := f.attendance[key]
		if !ok {
			rec = attendance{ID: uuid.NewString(), StudentID: m.StudentID, Date: newCalendarDate(date)}
		}
		marker := markedBy
		rec.Status, rec.MarkedBy = status, &marker
		f.attendance[key] = rec
	}
	f.mu.Unlock()
	return f.listAttendance(ctx, attendanceFilter{From: date, To: date})
}

func (f *fakeStore) listAttendance(_ context.Context, flt attendanceFilter) ([]attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance
	for _, a := range f.attendance {
		if (flt.StudentID == "" || a.StudentID == flt.StudentID) && !a.Date.Before(flt.From) && !a.Date.After(flt.To) {
			a.StudentName = f.users[a.StudentID].Name
			a.RollNumber = f.students[a.StudentID].RollNumber
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].RollNumber < out[j].RollNumber
	})
	return out, nil
}

func (f *fakeStore) insertNotification(_ context.Context, n notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeStore) listNotifications(_ context.Context, userID string, unreadOnly bool) ([]notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		n := f.notifications[i]
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) markNotificationRead(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			f.notifications[i].Read = true
			return nil
		}
	}
	return errNotFound
}

func (f *fakeStore) markAllNotificationsRead(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notifications {
		if n.UserID == userID {
			f.notifications[i].Read = true
		}
	}
	return nil
}

func (f *fakeStore) adminStats(_ context.Context) (adminStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := adminStats{
		TotalStudents:        len(f.students),
		TotalRooms:           len(f.rooms),
		LeavesByStatus:       map[string]int{},
		ComplaintsByCategory: map[string]int{},
		StudentsByDepartment: map[string]int{},
	}
	for _, r := range f.rooms {
		v := f.roomView(r)
		if v.Available {
			s.AvailableRooms++
		}
		s.TotalCapacity += v.Capacity
		s.OccupiedBeds += v.OccupiedCount
	}
	s.OccupancyRate = occupancyRate(s.OccupiedBeds, s.TotalCapacity)
	for _, l := range f.leaves {
		s.LeavesByStatus[l.Status]++
	}
	for _, c := range f.complaints {
		s.ComplaintsByCategory[c.Category]++
		if c.Status == statusPending {
			s.PendingComplaints++
		}
	}
	for _, st := range f.students {
		s.StudentsByDepartment[st.Department]++
	}
	for _, o := range f.outpasses {
		if o.Status == statusPending {
			s.PendingOutpasses++
		}
	}
	s.PendingLeaves = s.LeavesByStatus[statusPending]
	return s, nil
}

func (f *fakeStore) wardenStats(_ context.Context, now time.Time) (wardenStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := wardenStats{TotalStudents: len(f.students)}
	for _, l := range f.leaves {
		if l.Status == statusPending {
			s.PendingLeaves++
		}
	}
	for _, c := range f.complaints {
		if c.Status == statusPending {
			s.PendingComplaints++
		}
	}
	for _, o := range f.outpasses {
		if o.Status == statusPending {
			s.PendingOutpasses++
		}
		if o.overdue(now) {
			s.OverdueOutpasses++
		}
	}
	return s, nil
}

func (f *fakeStore) studentStats(_ context.Context, studentID string) (studentStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.studentView(studentID)
	if !ok {
		return studentStats{}, errNotFound
	}
	s := studentStats{
		Leaves:      map[string]int{},
		Complaints:  map[string]int{},
		Outpasses:   map[string]int{},
		RoomNumber:  st.RoomNumber,
		HostelBlock: st.HostelBlock,
	}
	for _, l := range f.leaves {
		if l.StudentID == studentID {
			s.Leaves[l.Status]++
		}
	}
	for _, c := range f.complaints {
		if c.StudentID == studentID {
			s.Complaints[c.Status]++
		}
	}
	for _, o := range f.outpasses {
		if o.StudentID == studentID {
			s.Outpasses[o.Status]++
		}
	}
	for _, n := range f.notifications {
		if n.UserID == studentID && !n.Read {
			s.UnreadNotifications++
		}
	}
	return s, nil
}

func (f *fakeStore) notificationsFor(userID string) []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

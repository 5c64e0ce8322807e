package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type demoRoom struct {
	number   string
	block    string
	floor    int
	capacity int
}

var demoRooms = []demoRoom{
	{"A101", "A", 1, 2},
	{"A102", "A", 1, 2},
	{"B202", "B", 2, 2},
}

var demoStaff = []user{
	{Name: "Admin User", Email: "admin@vcet.ac.in", Role: roleAdmin},
	{Name: "Warden Kumar", Email: "warden@vcet.ac.in", Role: roleWarden},
}

// demoStudents reference their room by number.
var demoStudents = []struct {
	student
	room string
}{
	{student{user: user{Name: "Ravi Shankar", Email: "ravi@vcet.ac.in"}, RollNumber: "19CS101", Department: "Computer Science", Year: 3,
		ContactNumber: "9876543210", Address: "123 Main St, Chennai", GuardianName: "Raj Shankar", GuardianContact: "9876543211"}, "A101"},
	{student{user: user{Name: "Priya Patel", Email: "priya@vcet.ac.in"}, RollNumber: "19EC102", Department: "Electronics", Year: 3,
		ContactNumber: "9876543212", Address: "456 Park Ave, Madurai", GuardianName: "Suresh Patel", GuardianContact: "9876543213"}, "B202"},
	{student{user: user{Name: "Arun Kumar", Email: "arun@vcet.ac.in"}, RollNumber: "20ME103", Department: "Mechanical", Year: 2,
		ContactNumber: "9876543214", Address: "789 Oak St, Coimbatore", GuardianName: "Ramesh Kumar", GuardianContact: "9876543215"}, "A101"},
}

// seedDemoData populates an empty database with a small hostel. Every demo
// account shares the given password.
func (conn dbConnection) seedDemoData(ctx context.Context, password string) error {
	var count int
	if err := conn.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}
	if count > 0 {
		log.WithField("users", count).Info("DB already populated, skipping demo data")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	roomIDs := make(map[string]string, len(demoRooms))
	for _, r := range demoRooms {
		id := uuid.NewString()
		if err = conn.insertRoom(ctx, room{ID: id, Number: r.number, Block: r.block, Floor: r.floor, Capacity: r.capacity}); err != nil {
			return fmt.Errorf("seed room %s: %w", r.number, err)
		}
		roomIDs[r.number] = id
	}

	for _, u := range demoStaff {
		u.ID, u.Password, u.CreatedAt = uuid.NewString(), hash, now
		if err = conn.insertUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	for _, d := range demoStudents {
		s := d.student
		s.ID, s.Role, s.Password, s.CreatedAt = uuid.NewString(), roleStudent, hash, now
		s.RoomID = roomIDs[d.room]
		if err = conn.insertStudent(ctx, s); err != nil {
			return fmt.Errorf("seed student %s: %w", s.Email, err)
		}
	}

	log.WithFields(log.Fields{
		"rooms":    len(demoRooms),
		"staff":    len(demoStaff),
		"students": len(demoStudents),
	}).Info("DB populated with demo data")
	return nil
}

package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const roomQuery = `SELECT r.id, r.number, r.block, r.floor, r.capacity,
		COUNT(sp.user_id) AS occupied_count,
		COUNT(sp.user_id) < r.capacity AS available,
		COALESCE(array_agg(sp.user_id::text) FILTER (WHERE sp.user_id IS NOT NULL), '{}') AS students
	FROM rooms r
	LEFT JOIN student_profiles sp ON sp.room_id = r.id`

func (conn dbConnection) listRooms(ctx context.Context) (rooms []room, err error) {
	err = conn.db.SelectContext(ctx, &rooms, roomQuery+" GROUP BY r.id ORDER BY r.block, r.number")
	return rooms, err
}

func (conn dbConnection) getRoom(ctx context.Context, id string) (room, error) {
	var r room
	err := conn.db.GetContext(ctx, &r, roomQuery+" WHERE r.id = $1 GROUP BY r.id", id)
	return r, classify(err)
}

func (conn dbConnection) insertRoom(ctx context.Context, r room) error {
	_, err := conn.db.ExecContext(ctx, "INSERT INTO rooms(id, number, block, floor, capacity) VALUES ($1, $2, $3, $4, $5)",
		r.ID, r.Number, r.Block, r.Floor, r.Capacity)
	return classify(err)
}

// allocateRoom moves a student into a room. The room row is locked for the
// duration of the transaction so concurrent allocations cannot overfill it.
func (conn dbConnection) allocateRoom(ctx context.Context, roomID, studentID string) error {
	return conn.withTx(ctx, func(tx *sqlx.Tx) error {
		var capacity int
		if err := tx.GetContext(ctx, &capacity, "SELECT capacity FROM rooms WHERE id = $1 FOR UPDATE", roomID); err != nil {
			return classify(err)
		}

		var current sql.NullString
		if err := tx.GetContext(ctx, &current, "SELECT room_id::text FROM student_profiles WHERE user_id = $1 FOR UPDATE", studentID); err != nil {
			return classify(err)
		}
		if current.Valid && current.String == roomID {
			return errAlreadyAllocated
		}

		var occupied int
		if err := tx.GetContext(ctx, &occupied, "SELECT COUNT(*) FROM student_profiles WHERE room_id = $1", roomID); err != nil {
			return err
		}
		if occupied >= capacity {
			return errRoomFull
		}

		_, err := tx.ExecContext(ctx, "UPDATE student_profiles SET room_id = $1 WHERE user_id = $2", roomID, studentID)
		return classify(err)
	})
}

func (conn dbConnection) vacateRoom(ctx context.Context, studentID string) error {
	res, err := conn.db.ExecContext(ctx, "UPDATE student_profiles SET room_id = NULL WHERE user_id = $1 AND room_id IS NOT NULL", studentID)
	if err != nil {
		return classify(err)
	}
	return requireRow(res)
}

// markAttendance upserts one record per student for the date. Students on an
// approved leave covering the date are recorded as on leave.
func (conn dbConnection) markAttendance(ctx context.Context, date time.Time, marks []attendanceMark, markedBy string) ([]attendance, error) {
	err := conn.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, m := range marks {
			_, err := tx.ExecContext(ctx, `INSERT INTO attendance(id, student_id, date, status, marked_by)
				SELECT $1, $2, $3::date,
					CASE WHEN EXISTS (
						SELECT 1 FROM leaves
						WHERE student_id = $2 AND status = 'approved' AND $3::date BETWEEN start_date AND end_date
					) THEN 'leave' ELSE $4 END,
					$5
				ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by`,
				uuid.NewString(), m.StudentID, newCalendarDate(date), m.Status, markedBy)
			if err != nil {
				return classify(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn.listAttendance(ctx, attendanceFilter{From: date, To: date})
}

func (conn dbConnection) listAttendance(ctx context.Context, f attendanceFilter) (records []attendance, err error) {
	err = conn.db.SelectContext(ctx, &records, `SELECT a.id, a.student_id, u.name AS student_name, sp.roll_number,
			a.date, a.status, a.marked_by
		FROM attendance a
		JOIN users u ON u.id = a.student_id
		JOIN student_profiles sp ON sp.user_id = a.student_id
		WHERE ($1 = '' OR a.student_id::text = $1) AND a.date BETWEEN $2::date AND $3::date
		ORDER BY a.date DESC, sp.roll_number`, f.StudentID, newCalendarDate(f.From), newCalendarDate(f.To))
	return records, err
}

func (conn dbConnection) insertNotification(ctx context.Context, n notification) error {
	_, err := conn.db.ExecContext(ctx, "INSERT INTO notifications(id, user_id, message, type, read, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		n.ID, n.UserID, n.Message, n.Type, n.Read, n.CreatedAt)
	return classify(err)
}

func (conn dbConnection) listNotifications(ctx context.Context, userID string, unreadOnly bool) (notifications []notification, err error) {
	err = conn.db.SelectContext(ctx, &notifications, `SELECT id, user_id, message, type, read, created_at
		FROM notifications WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC LIMIT 100`, userID, unreadOnly)
	return notifications, err
}

func (conn dbConnection) markNotificationRead(ctx context.Context, userID, id string) error {
	res, err := conn.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return classify(err)
	}
	return requireRow(res)
}

func (conn dbConnection) markAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := conn.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE", userID)
	return classify(err)
}

type keyCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func (conn dbConnection) countBy(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	var rows []keyCount
	if err := conn.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.Count
	}
	return counts, nil
}

func (conn dbConnection) adminStats(ctx context.Context) (adminStats, error) {
	var s adminStats
	var err error

	if err = conn.db.GetContext(ctx, &s.TotalStudents, "SELECT COUNT(*) FROM student_profiles"); err != nil {
		return s, err
	}

	var rooms struct {
		Total     int `db:"total"`
		Available int `db:"available"`
		Capacity  int `db:"capacity"`
		Occupied  int `db:"occupied"`
	}
	if err = conn.db.GetContext(ctx, &rooms, `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE occupied < capacity) AS available,
			COALESCE(SUM(capacity), 0) AS capacity, COALESCE(SUM(occupied), 0) AS occupied
		FROM (SELECT r.capacity, COUNT(sp.user_id) AS occupied
			FROM rooms r LEFT JOIN student_profiles sp ON sp.room_id = r.id GROUP BY r.id) t`); err != nil {
		return s, err
	}
	s.TotalRooms, s.AvailableRooms = rooms.Total, rooms.Available
	s.TotalCapacity, s.OccupiedBeds = rooms.Capacity, rooms.Occupied
	s.OccupancyRate = occupancyRate(rooms.Occupied, rooms.Capacity)

	if s.LeavesByStatus, err = conn.countBy(ctx, "SELECT status AS key, COUNT(*) AS count FROM leaves GROUP BY status"); err != nil {
		return s, err
	}
	if s.ComplaintsByCategory, err = conn.countBy(ctx, "SELECT category AS key, COUNT(*) AS count FROM complaints GROUP BY category"); err != nil {
		return s, err
	}
	if s.StudentsByDepartment, err = conn.countBy(ctx, "SELECT department AS key, COUNT(*) AS count FROM student_profiles GROUP BY department"); err != nil {
		return s, err
	}

	s.PendingLeaves = s.LeavesByStatus[statusPending]
	if err = conn.db.GetContext(ctx, &s.PendingComplaints, "SELECT COUNT(*) FROM complaints WHERE status = 'pending'"); err != nil {
		return s, err
	}
	if err = conn.db.GetContext(ctx, &s.PendingOutpasses, "SELECT COUNT(*) FROM outpasses WHERE status = 'pending'"); err != nil {
		return s, err
	}
	return s, nil
}

func (conn dbConnection) wardenStats(ctx context.Context, now time.Time) (wardenStats, error) {
	var s wardenStats
	err := conn.db.GetContext(ctx, &s, `SELECT
		(SELECT COUNT(*) FROM leaves WHERE status = 'pending') AS pending_leaves,
		(SELECT COUNT(*) FROM complaints WHERE status = 'pending') AS pending_complaints,
		(SELECT COUNT(*) FROM outpasses WHERE status = 'pending') AS pending_outpasses,
		(SELECT COUNT(*) FROM outpasses WHERE status = 'approved' AND actual_return_time IS NULL AND expected_return_time < $1) AS overdue_outpasses,
		(SELECT COUNT(*) FROM student_profiles) AS total_students`, now)
	return s, err
}

func (conn dbConnection) studentStats(ctx context.Context, studentID string) (studentStats, error) {
	var s studentStats
	var err error

	if s.Leaves, err = conn.countBy(ctx, "SELECT status AS key, COUNT(*) AS count FROM leaves WHERE student_id = $1 GROUP BY status", studentID); err != nil {
		return s, classify(err)
	}
	if s.Complaints, err = conn.countBy(ctx, "SELECT status AS key, COUNT(*) AS count FROM complaints WHERE student_id = $1 GROUP BY status", studentID); err != nil {
		return s, classify(err)
	}
	if s.Outpasses, err = conn.countBy(ctx, "SELECT status AS key, COUNT(*) AS count FROM outpasses WHERE student_id = $1 GROUP BY status", studentID); err != nil {
		return s, classify(err)
	}
	if err = conn.db.GetContext(ctx, &s.UnreadNotifications, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE", studentID); err != nil {
		return s, classify(err)
	}

	var location struct {
		Number string `db:"number"`
		Block  string `db:"block"`
	}
	err = conn.db.GetContext(ctx, &location, `SELECT COALESCE(r.number, '') AS number, COALESCE(r.block, '') AS block
		FROM student_profiles sp LEFT JOIN rooms r ON r.id = sp.room_id WHERE sp.user_id = $1`, studentID)
	if err != nil {
		return s, classify(err)
	}
	s.RoomNumber, s.HostelBlock = location.Number, location.Block
	return s, nil
}

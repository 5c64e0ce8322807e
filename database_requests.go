package main

import (
	"context"
	"time"

	"github.com/lib/pq"
)

const (
	leaveColumns = `l.id, l.student_id, u.name AS student_name, sp.roll_number, l.type, l.reason,
		l.start_date, l.end_date, l.status, l.reviewed_by, l.remarks, l.created_at, l.updated_at`

	leaveFrom = ` FROM leaves l
		JOIN users u ON u.id = l.student_id
		JOIN student_profiles sp ON sp.user_id = l.student_id`
)

func (conn dbConnection) insertLeave(ctx context.Context, l leave) error {
	_, err := conn.db.ExecContext(ctx, `INSERT INTO leaves(id, student_id, type, reason, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8, $9)`,
		l.ID, l.StudentID, l.Type, l.Reason, l.StartDate, l.EndDate, l.Status, l.CreatedAt, l.UpdatedAt)
	return classify(err)
}

func (conn dbConnection) getLeave(ctx context.Context, id string) (leave, error) {
	var l leave
	err := conn.db.GetContext(ctx, &l, "SELECT "+leaveColumns+leaveFrom+" WHERE l.id = $1", id)
	return l, classify(err)
}

func (conn dbConnection) listLeaves(ctx context.Context, f requestFilter) (leaves []leave, err error) {
	err = conn.db.SelectContext(ctx, &leaves, "SELECT "+leaveColumns+leaveFrom+`
		WHERE ($1 = '' OR l.student_id::text = $1) AND ($2 = '' OR l.status = $2)
		ORDER BY l.created_at DESC`, f.StudentID, f.Status)
	return leaves, err
}

func (conn dbConnection) updateLeaveStatus(ctx context.Context, id string, c statusChange) (leave, error) {
	err := conn.guardedUpdate(ctx, "leaves", id, `UPDATE leaves SET status = $1,
		reviewed_by = COALESCE(NULLIF($2, '')::uuid, reviewed_by),
		remarks = CASE WHEN $3 = '' THEN remarks ELSE $3 END,
		updated_at = NOW()
		WHERE id = $4 AND status = ANY($5)`,
		c.To, c.ReviewedBy, c.Remarks, id, pq.Array(c.From))
	if err != nil {
		return leave{}, err
	}
	return conn.getLeave(ctx, id)
}

const (
	complaintColumns = `c.id, c.student_id, u.name AS student_name, COALESCE(r.number, '') AS room_number,
		c.category, c.description, c.location, c.status, c.response, c.created_at, c.updated_at`

	complaintFrom = ` FROM complaints c
		JOIN users u ON u.id = c.student_id
		JOIN student_profiles sp ON sp.user_id = c.student_id
		LEFT JOIN rooms r ON r.id = sp.room_id`
)

func (conn dbConnection) insertComplaint(ctx context.Context, c complaint) error {
	_, err := conn.db.ExecContext(ctx, `INSERT INTO complaints(id, student_id, category, description, location, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.StudentID, c.Category, c.Description, c.Location, c.Status, c.CreatedAt, c.UpdatedAt)
	return classify(err)
}

func (conn dbConnection) getComplaint(ctx context.Context, id string) (complaint, error) {
	var c complaint
	err := conn.db.GetContext(ctx, &c, "SELECT "+complaintColumns+complaintFrom+" WHERE c.id = $1", id)
	return c, classify(err)
}

func (conn dbConnection) listComplaints(ctx context.Context, f requestFilter) (complaints []complaint, err error) {
	err = conn.db.SelectContext(ctx, &complaints, "SELECT "+complaintColumns+complaintFrom+`
		WHERE ($1 = '' OR c.student_id::text = $1) AND ($2 = '' OR c.status = $2) AND ($3 = '' OR c.category = $3)
		ORDER BY c.created_at DESC`, f.StudentID, f.Status, f.Category)
	return complaints, err
}

func (conn dbConnection) updateComplaintStatus(ctx context.Context, id string, c statusChange) (complaint, error) {
	err := conn.guardedUpdate(ctx, "complaints", id, `UPDATE complaints SET status = $1,
		response = CASE WHEN $2 = '' THEN response ELSE $2 END,
		updated_at = NOW()
		WHERE id = $3 AND status = ANY($4)`,
		c.To, c.Response, id, pq.Array(c.From))
	if err != nil {
		return complaint{}, err
	}
	return conn.getComplaint(ctx, id)
}

const (
	outpassColumns = `o.id, o.student_id, u.name AS student_name, sp.roll_number, o.destination, o.purpose,
		o.exit_time, o.expected_return_time, o.status, o.reviewed_by, o.remarks, o.gate_code,
		o.actual_return_time, o.created_at, o.updated_at`

	outpassFrom = ` FROM outpasses o
		JOIN users u ON u.id = o.student_id
		JOIN student_profiles sp ON sp.user_id = o.student_id`
)

func (conn dbConnection) insertOutpass(ctx context.Context, o outpass) error {
	_, err := conn.db.ExecContext(ctx, `INSERT INTO outpasses(id, student_id, destination, purpose, exit_time,
		expected_return_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.StudentID, o.Destination, o.Purpose, o.ExitTime, o.ExpectedReturnTime, o.Status, o.CreatedAt, o.UpdatedAt)
	return classify(err)
}

func (conn dbConnection) getOutpass(ctx context.Context, id string) (outpass, error) {
	var o outpass
	err := conn.db.GetContext(ctx, &o, "SELECT "+outpassColumns+outpassFrom+" WHERE o.id = $1", id)
	return o, classify(err)
}

func (conn dbConnection) getOutpassByCode(ctx context.Context, code string) (outpass, error) {
	var o outpass
	err := conn.db.GetContext(ctx, &o, "SELECT "+outpassColumns+outpassFrom+" WHERE o.gate_code = $1 AND o.gate_code <> ''", code)
	return o, classify(err)
}

func (conn dbConnection) listOutpasses(ctx context.Context, f requestFilter) (outpasses []outpass, err error) {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	err = conn.db.SelectContext(ctx, &outpasses, "SELECT "+outpassColumns+outpassFrom+`
		WHERE ($1 = '' OR o.student_id::text = $1) AND ($2 = '' OR o.status = $2)
		AND (NOT $3 OR (o.status = 'approved' AND o.actual_return_time IS NULL AND o.expected_return_time < $4))
		ORDER BY o.created_at DESC`, f.StudentID, f.Status, f.Overdue, now)
	return outpasses, err
}

func (conn dbConnection) updateOutpassStatus(ctx context.Context, id string, c statusChange) (outpass, error) {
	err := conn.guardedUpdate(ctx, "outpasses", id, `UPDATE outpasses SET status = $1,
		reviewed_by = COALESCE(NULLIF($2, '')::uuid, reviewed_by),
		remarks = CASE WHEN $3 = '' THEN remarks ELSE $3 END,
		gate_code = CASE WHEN $4 = '' THEN gate_code ELSE $4 END,
		actual_return_time = COALESCE($5, actual_return_time),
		updated_at = NOW()
		WHERE id = $6 AND status = ANY($7)`,
		c.To, c.ReviewedBy, c.Remarks, c.GateCode, c.ReturnedAt, id, pq.Array(c.From))
	if err != nil {
		return outpass{}, err
	}
	return conn.getOutpass(ctx, id)
}

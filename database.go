package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	errNotFound          = errors.New("not found")
	errDuplicate         = errors.New("already exists")
	errInvalidTransition = errors.New("status change not allowed")
	errRoomFull          = errors.New("room is full")
	errAlreadyAllocated  = errors.New("student already allocated to this room")
)

type dbConnection struct {
	db *sqlx.DB
}

func createDatabaseConnection(cfg config) (dbConnection, error) {
	db, err := sqlx.Connect("postgres", cfg.databaseDSN())
	if err != nil {
		return dbConnection{}, err
	}
	log.Info("DB connection successfully")

	if err = runMigrations(db); err != nil {
		_ = db.Close()
		return dbConnection{}, err
	}
	log.Info("DB schema migrated successfully")

	return dbConnection{
		db: db,
	}, nil
}

func runMigrations(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (conn dbConnection) close() error {
	return conn.db.Close()
}

// classify maps postgres failures onto the package's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s", errDuplicate, pqErr.Constraint)
		case "foreign_key_violation", "invalid_text_representation":
			return errNotFound
		}
	}
	return err
}

func (conn dbConnection) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := conn.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func(tx *sqlx.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err = fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

const (
	userColumns = `u.id, u.name, u.email, u.role, u.avatar, u.password, u.created_at`

	studentColumns = userColumns + `, sp.roll_number, COALESCE(sp.room_id::text, '') AS room_id,
		COALESCE(r.number, '') AS room_number, COALESCE(r.block, '') AS hostel_block,
		sp.department, sp.year, sp.contact_number, sp.address, sp.guardian_name, sp.guardian_contact`

	studentFrom = ` FROM users u
		JOIN student_profiles sp ON sp.user_id = u.id
		LEFT JOIN rooms r ON r.id = sp.room_id`
)

func (conn dbConnection) getUserByEmail(ctx context.Context, email string) (user, error) {
	var u user
	err := conn.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users u WHERE lower(u.email) = lower($1)", email)
	return u, classify(err)
}

func (conn dbConnection) getUserByID(ctx context.Context, id string) (user, error) {
	var u user
	err := conn.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users u WHERE u.id = $1", id)
	return u, classify(err)
}

func (conn dbConnection) listUsers(ctx context.Context, role string) (users []user, err error) {
	err = conn.db.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users u WHERE ($1 = '' OR u.role = $1) ORDER BY u.role, u.name", role)
	return users, err
}

func (conn dbConnection) userIDsByRole(ctx context.Context, roles ...string) (ids []string, err error) {
	err = conn.db.SelectContext(ctx, &ids, "SELECT id::text FROM users WHERE role = ANY($1)", pq.Array(roles))
	return ids, err
}

func (conn dbConnection) getStudent(ctx context.Context, id string) (student, error) {
	var s student
	err := conn.db.GetContext(ctx, &s, "SELECT "+studentColumns+studentFrom+" WHERE u.id = $1", id)
	return s, classify(err)
}

func (conn dbConnection) listStudents(ctx context.Context) (students []student, err error) {
	err = conn.db.SelectContext(ctx, &students, "SELECT "+studentColumns+studentFrom+" ORDER BY sp.roll_number")
	return students, err
}

func (conn dbConnection) insertUser(ctx context.Context, u user) error {
	return conn.withTx(ctx, func(tx *sqlx.Tx) error {
		return insertPerson(ctx, tx, u)
	})
}

func (conn dbConnection) insertStudent(ctx context.Context, s student) error {
	return conn.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertPerson(ctx, tx, s.user); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO student_profiles(user_id, roll_number, room_id, department, year,
			contact_number, address, guardian_name, guardian_contact)
			VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)`,
			s.ID, s.RollNumber, s.RoomID, s.Department, s.Year,
			s.ContactNumber, s.Address, s.GuardianName, s.GuardianContact)
		return classify(err)
	})
}

func insertPerson(ctx context.Context, tx *sqlx.Tx, u user) error {
	_, err := tx.ExecContext(ctx, "INSERT INTO users(id, name, email, role, avatar, password, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		u.ID, u.Name, u.Email, u.Role, u.Avatar, string(u.Password), u.CreatedAt)
	return classify(err)
}

func (conn dbConnection) updateProfile(ctx context.Context, id string, p profileUpdate) error {
	return conn.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE users SET name = $1 WHERE id = $2", p.Name, id)
		if err != nil {
			return classify(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errNotFound
		}

		_, err = tx.ExecContext(ctx, `UPDATE student_profiles SET contact_number = $1, address = $2,
			guardian_name = $3, guardian_contact = $4 WHERE user_id = $5`,
			p.ContactNumber, p.Address, p.GuardianName, p.GuardianContact, id)
		return classify(err)
	})
}

func (conn dbConnection) updatePassword(ctx context.Context, id string, hash []byte) error {
	res, err := conn.db.ExecContext(ctx, "UPDATE users SET password = $1 WHERE id = $2", string(hash), id)
	if err != nil {
		return classify(err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotFound
	}
	return nil
}

// guardedUpdate runs a status UPDATE whose WHERE clause includes the allowed
// source statuses. When nothing changed it tells a missing row apart from a
// row in the wrong state.
func (conn dbConnection) guardedUpdate(ctx context.Context, table, id, query string, args ...interface{}) error {
	res, err := conn.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err = conn.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = $1)", id); err != nil {
		return classify(err)
	}
	if !exists {
		return errNotFound
	}
	return errInvalidTransition
}

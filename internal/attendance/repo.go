package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"classsight/internal/store"
)

// Repository persists attendance data in Postgres or MySQL.
type Repository struct {
	db *sql.DB
	q  queries
}

type queries struct {
	teacherByUID string
	classesOn    string
	classSection string
	roster       string
	deleteDay    string
	insertRecord string
	camInsert    map[Camera]string
}

// NewRepository creates a repo speaking dialect.
func NewRepository(db *sql.DB, dialect store.Dialect) *Repository {
	return &Repository{db: db, q: buildQueries(dialect)}
}

func buildQueries(d store.Dialect) queries {
	return queries{
		teacherByUID: d.Rebind(`SELECT teacher_id, name, email FROM teachers WHERE firebase_uid = ?`),
		classesOn: d.Rebind(fmt.Sprintf(`
			SELECT class_id, section, subject, weekday,
				%s AS start_time,
				%s AS end_time
			FROM timetable
			WHERE teacher_id = ? AND LOWER(weekday) = LOWER(?)
			ORDER BY timetable.start_time
		`, d.TimeOfDay("start_time"), d.TimeOfDay("end_time"))),
		classSection: d.Rebind(`SELECT section FROM timetable WHERE class_id = ?`),
		roster: d.Rebind(`
			SELECT s.usn, s.student_name, COALESCE(a.status, 'Absent') AS current_status
			FROM student_info s
			LEFT JOIN attendance a
				ON s.usn = a.student_usn AND a.class_id = ? AND a.date = ?
			WHERE TRIM(s.student_section) = TRIM(?)
			ORDER BY s.usn ASC
		`),
		deleteDay:    d.Rebind(`DELETE FROM attendance WHERE class_id = ? AND date = ?`),
		insertRecord: d.Rebind(`INSERT INTO attendance (class_id, student_usn, date, status) VALUES (?, ?, ?, ?)`),
		camInsert: map[Camera]string{
			Cam1: d.Rebind(`INSERT INTO ` + Cam1.Table() + ` (class_id, student_usn) VALUES (?, ?)`),
			Cam2: d.Rebind(`INSERT INTO ` + Cam2.Table() + ` (class_id, student_usn) VALUES (?, ?)`),
		},
	}
}

// TeacherByUID looks a teacher up by external identity key.
func (r *Repository) TeacherByUID(ctx context.Context, uid string) (Teacher, error) {
	var t Teacher
	err := r.db.QueryRowContext(ctx, r.q.teacherByUID, uid).Scan(&t.ID, &t.Name, &t.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrNotFound
	}
	if err != nil {
		return Teacher{}, &StoreError{Op: "teacher lookup", Err: err}
	}
	return t, nil
}

// ClassesOn returns a teacher's timetable for one weekday.
func (r *Repository) ClassesOn(ctx context.Context, teacherID int64, weekday string) ([]ClassSlot, error) {
	rows, err := r.db.QueryContext(ctx, r.q.classesOn, teacherID, weekday)
	if err != nil {
		return nil, &StoreError{Op: "class lookup", Err: err}
	}
	defer rows.Close()

	res := []ClassSlot{}
	for rows.Next() {
		var c ClassSlot
		if err := rows.Scan(&c.ClassID, &c.Section, &c.Subject, &c.Weekday, &c.StartTime, &c.EndTime); err != nil {
			return nil, &StoreError{Op: "class lookup", Err: err}
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "class lookup", Err: err}
	}
	return res, nil
}

// ClassSection resolves the section a class is taught to.
func (r *Repository) ClassSection(ctx context.Context, classID int64) (string, error) {
	var section string
	err := r.db.QueryRowContext(ctx, r.q.classSection, classID).Scan(&section)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StoreError{Op: "section lookup", Err: err}
	}
	return strings.TrimSpace(section), nil
}

// Roster left-joins the section's students with the day's attendance.
func (r *Repository) Roster(ctx context.Context, classID int64, section, date string) ([]RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.q.roster, classID, date, section)
	if err != nil {
		return nil, &StoreError{Op: "roster", Err: err}
	}
	defer rows.Close()

	res := []RosterEntry{}
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.USN, &e.Name, &e.Status); err != nil {
			return nil, &StoreError{Op: "roster", Err: err}
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "roster", Err: err}
	}
	return res, nil
}

// AppendCamEvent inserts a raw sighting.
func (r *Repository) AppendCamEvent(ctx context.Context, cam Camera, classID int64, usn string) error {
	query, ok := r.q.camInsert[cam]
	if !ok {
		return fmt.Errorf("attendance: unknown camera %s", cam)
	}
	if _, err := r.db.ExecContext(ctx, query, classID, usn); err != nil {
		return &StoreError{Op: cam.String() + " insert", Err: err}
	}
	return nil
}

// ReplaceAttendance overwrites the day's snapshot for a class in one
// transaction. Nothing is committed unless every insert succeeds.
func (r *Repository) ReplaceAttendance(ctx context.Context, classID int64, date string, records []Record) error {
	return r.inTx(ctx, "attendance submit", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.q.deleteDay, classID, date); err != nil {
			return err
		}
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, r.q.insertRecord, classID, rec.StudentUSN, date, rec.Status); err != nil {
				return fmt.Errorf("insert %s: %w", rec.StudentUSN, err)
			}
		}
		return nil
	})
}

// DeleteAttendance removes the day's snapshot for a class.
func (r *Repository) DeleteAttendance(ctx context.Context, classID int64, date string) error {
	return r.inTx(ctx, "attendance revoke", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.q.deleteDay, classID, date)
		return err
	})
}

// Ping checks the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: op, Err: err}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return &StoreError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &StoreError{Op: op, Err: err}
	}
	return nil
}

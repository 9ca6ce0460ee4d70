package store

import (
	"context"
	"fmt"
)

// CreateSchema applies the development schema for Postgres or SQLite.
// Production schemas are managed outside this service. Safe to call
// repeatedly.
func CreateSchema(ctx context.Context, d *DB) error {
	var ddl string
	switch d.Dialect {
	case Postgres:
		ddl = postgresSchema
	case SQLite:
		ddl = sqliteSchema
	default:
		return fmt.Errorf("store: auto-migrate not supported for %s", d.Dialect.Name)
	}
	if _, err := d.Client.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS teachers (
    teacher_id   SERIAL PRIMARY KEY,
    firebase_uid TEXT NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    email        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS timetable (
    class_id   SERIAL PRIMARY KEY,
    teacher_id INTEGER NOT NULL REFERENCES teachers(teacher_id),
    section    TEXT NOT NULL,
    subject    TEXT NOT NULL,
    weekday    TEXT NOT NULL CHECK (weekday IN ('Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday')),
    start_time TIME NOT NULL,
    end_time   TIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_timetable_teacher_weekday ON timetable(teacher_id, lower(weekday));

CREATE TABLE IF NOT EXISTS student_info (
    usn             TEXT PRIMARY KEY,
    student_name    TEXT NOT NULL,
    student_section TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance (
    class_id    INTEGER NOT NULL REFERENCES timetable(class_id),
    student_usn TEXT NOT NULL REFERENCES student_info(usn),
    date        DATE NOT NULL,
    status      TEXT NOT NULL,
    PRIMARY KEY (class_id, student_usn, date)
);

CREATE TABLE IF NOT EXISTS attendance_cam1 (
    id          BIGSERIAL PRIMARY KEY,
    class_id    INTEGER NOT NULL,
    student_usn TEXT NOT NULL,
    seen_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_cam2 (
    id          BIGSERIAL PRIMARY KEY,
    class_id    INTEGER NOT NULL,
    student_usn TEXT NOT NULL,
    seen_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS teachers (
    teacher_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    firebase_uid TEXT NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    email        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS timetable (
    class_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    teacher_id INTEGER NOT NULL REFERENCES teachers(teacher_id),
    section    TEXT NOT NULL,
    subject    TEXT NOT NULL,
    weekday    TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_timetable_teacher ON timetable(teacher_id);

CREATE TABLE IF NOT EXISTS student_info (
    usn             TEXT PRIMARY KEY,
    student_name    TEXT NOT NULL,
    student_section TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance (
    class_id    INTEGER NOT NULL REFERENCES timetable(class_id),
    student_usn TEXT NOT NULL REFERENCES student_info(usn),
    date        TEXT NOT NULL,
    status      TEXT NOT NULL,
    PRIMARY KEY (class_id, student_usn, date)
);

CREATE TABLE IF NOT EXISTS attendance_cam1 (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    class_id    INTEGER NOT NULL,
    student_usn TEXT NOT NULL,
    seen_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attendance_cam2 (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    class_id    INTEGER NOT NULL,
    student_usn TEXT NOT NULL,
    seen_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

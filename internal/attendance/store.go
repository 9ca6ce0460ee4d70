package attendance

import "context"

// Store is the persistence boundary. Every method is a single round trip or
// a single transaction.
type Store interface {
	// TeacherByUID returns ErrNotFound when no teacher has the identity key.
	TeacherByUID(ctx context.Context, uid string) (Teacher, error)
	// ClassesOn lists a teacher's classes on weekday (case-insensitive),
	// ordered by start time.
	ClassesOn(ctx context.Context, teacherID int64, weekday string) ([]ClassSlot, error)
	// ClassSection returns the trimmed section of a class or ErrNotFound.
	ClassSection(ctx context.Context, classID int64) (string, error)
	// Roster lists the section's students ordered by usn with their status
	// for (classID, date), DefaultStatus when there is no row.
	Roster(ctx context.Context, classID int64, section, date string) ([]RosterEntry, error)
	// AppendCamEvent adds one sighting to the camera's log.
	AppendCamEvent(ctx context.Context, cam Camera, classID int64, usn string) error
	// ReplaceAttendance atomically deletes every row for (classID, date) and
	// inserts records.
	ReplaceAttendance(ctx context.Context, classID int64, date string, records []Record) error
	// DeleteAttendance atomically deletes every row for (classID, date).
	DeleteAttendance(ctx context.Context, classID int64, date string) error
	Ping(ctx context.Context) error
}

package attendance

import (
	"errors"
	"fmt"
	"time"
)

// DefaultStatus is reported for roster members with no attendance row.
const DefaultStatus = "Absent"

// Teacher is the public view of a teacher row.
type Teacher struct {
	ID    int64  `json:"teacher_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ClassSlot is one timetable entry with times rendered as HH:MM.
type ClassSlot struct {
	ClassID   int64  `json:"class_id"`
	Section   string `json:"section"`
	Subject   string `json:"subject"`
	Weekday   string `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// RosterEntry is a student in a class with their status for the day.
type RosterEntry struct {
	USN    string `json:"usn"`
	Name   string `json:"student_name"`
	Status string `json:"current_status"`
}

// Roster is the roster of one class for one date.
type Roster struct {
	Students []RosterEntry `json:"students"`
	DateUsed string        `json:"date_used"`
}

// Record is one student's status in a submission.
type Record struct {
	StudentUSN string `json:"student_usn" binding:"required"`
	Status     string `json:"status" binding:"required"`
}

// SubmitResult reports what a submission wrote.
type SubmitResult struct {
	Rows int    `json:"rows"`
	Date string `json:"date"`
}

// Camera identifies one of the two raw sighting logs.
type Camera int

const (
	Cam1 Camera = iota + 1
	Cam2
)

func (c Camera) String() string {
	switch c {
	case Cam1:
		return "cam1"
	case Cam2:
		return "cam2"
	}
	return fmt.Sprintf("cam(%d)", int(c))
}

// Table is the append-only table holding the camera's sightings.
func (c Camera) Table() string {
	return "attendance_" + c.String()
}

// Valid reports whether c names a known camera.
func (c Camera) Valid() bool {
	return c == Cam1 || c == Cam2
}

// CamEvent is a raw sighting as published to downstream consumers.
type CamEvent struct {
	ID         string    `json:"id"`
	Camera     string    `json:"camera"`
	ClassID    int64     `json:"class_id"`
	StudentUSN string    `json:"student_usn"`
	SeenAt     time.Time `json:"seen_at"`
}

var (
	// ErrNotFound is returned when a teacher or class does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStoreFailure matches every failed store call.
	ErrStoreFailure = errors.New("store failure")
)

// ValidationError rejects a request before any store work.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// StoreError wraps a failed store call with the operation name.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

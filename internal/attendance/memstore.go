package attendance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// TimetableEntry is a timetable row as held by MemoryStore.
type TimetableEntry struct {
	ClassID   int64
	TeacherID int64
	Section   string
	Subject   string
	Weekday   string
	StartTime string
	EndTime   string
}

// Student is a roster row as held by MemoryStore.
type Student struct {
	USN     string
	Name    string
	Section string
}

// Sighting is one row of a camera log.
type Sighting struct {
	ClassID    int64
	StudentUSN string
	SeenAt     time.Time
}

type dayKey struct {
	classID int64
	date    string
}

// MemoryStore is a Store kept in process memory, for development and tests.
// Replace and delete run under the write lock, so readers never see a
// half-written day.
type MemoryStore struct {
	mu         sync.RWMutex
	teachers   map[string]TeacherAccount
	timetable  map[int64]TimetableEntry
	students   []Student
	attendance map[dayKey][]Record
	cams       map[Camera][]Sighting
}

// TeacherAccount couples a teacher with the identity key used to find them.
type TeacherAccount struct {
	UID string
	Teacher
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teachers:   make(map[string]TeacherAccount),
		timetable:  make(map[int64]TimetableEntry),
		attendance: make(map[dayKey][]Record),
		cams:       make(map[Camera][]Sighting),
	}
}

func (m *MemoryStore) AddTeacher(acc TeacherAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[acc.UID] = acc
}

func (m *MemoryStore) AddClass(e TimetableEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timetable[e.ClassID] = e
}

func (m *MemoryStore) AddStudent(s Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = append(m.students, s)
}

// Attendance returns a copy of the rows stored for (classID, date).
func (m *MemoryStore) Attendance(classID int64, date string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Record(nil), m.attendance[dayKey{classID, date}]...)
}

// Sightings returns a copy of a camera log.
func (m *MemoryStore) Sightings(cam Camera) []Sighting {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Sighting(nil), m.cams[cam]...)
}

func (m *MemoryStore) TeacherByUID(_ context.Context, uid string) (Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.teachers[uid]
	if !ok {
		return Teacher{}, ErrNotFound
	}
	return acc.Teacher, nil
}

func (m *MemoryStore) ClassesOn(_ context.Context, teacherID int64, weekday string) ([]ClassSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []ClassSlot{}
	for _, e := range m.timetable {
		if e.TeacherID != teacherID || !strings.EqualFold(e.Weekday, weekday) {
			continue
		}
		res = append(res, ClassSlot{
			ClassID:   e.ClassID,
			Section:   e.Section,
			Subject:   e.Subject,
			Weekday:   e.Weekday,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
		})
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].StartTime != res[j].StartTime {
			return res[i].StartTime < res[j].StartTime
		}
		return res[i].ClassID < res[j].ClassID
	})
	return res, nil
}

func (m *MemoryStore) ClassSection(_ context.Context, classID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.timetable[classID]
	if !ok {
		return "", ErrNotFound
	}
	return strings.TrimSpace(e.Section), nil
}

func (m *MemoryStore) Roster(_ context.Context, classID int64, section, date string) ([]RosterEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]string)
	for _, rec := range m.attendance[dayKey{classID, date}] {
		status[rec.StudentUSN] = rec.Status
	}
	res := []RosterEntry{}
	for _, s := range m.students {
		if strings.TrimSpace(s.Section) != strings.TrimSpace(section) {
			continue
		}
		st, ok := status[s.USN]
		if !ok {
			st = DefaultStatus
		}
		res = append(res, RosterEntry{USN: s.USN, Name: s.Name, Status: st})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].USN < res[j].USN })
	return res, nil
}

func (m *MemoryStore) AppendCamEvent(_ context.Context, cam Camera, classID int64, usn string) error {
	if !cam.Valid() {
		return fmt.Errorf("attendance: unknown camera %s", cam)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cams[cam] = append(m.cams[cam], Sighting{ClassID: classID, StudentUSN: usn, SeenAt: time.Now().UTC()})
	return nil
}

func (m *MemoryStore) ReplaceAttendance(_ context.Context, classID int64, date string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if seen[rec.StudentUSN] {
			return &StoreError{Op: "attendance submit", Err: fmt.Errorf("duplicate key (%d, %s, %s)", classID, rec.StudentUSN, date)}
		}
		seen[rec.StudentUSN] = true
	}
	key := dayKey{classID, date}
	if len(records) == 0 {
		delete(m.attendance, key)
		return nil
	}
	m.attendance[key] = append([]Record(nil), records...)
	return nil
}

func (m *MemoryStore) DeleteAttendance(_ context.Context, classID int64, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attendance, dayKey{classID, date})
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

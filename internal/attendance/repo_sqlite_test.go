package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classsight/internal/schedule"
	"classsight/internal/store"
)

// newSQLiteService runs the service against the SQL repository on an
// in-memory SQLite database.
func newSQLiteService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := store.NewDB(ctx, "sqlite3", ":memory:", store.Options{})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.CreateSchema(ctx, db))

	seed := []string{
		`INSERT INTO teachers (teacher_id, firebase_uid, name, email) VALUES (1, 'uid-ana', 'Ana Rao', 'ana@school.test')`,
		`INSERT INTO timetable (class_id, teacher_id, section, subject, weekday, start_time, end_time) VALUES
			(10, 1, ' CSE-A ', 'Networks', 'Monday', '11:00:00', '12:00:00'),
			(11, 1, 'CSE-B', 'Compilers', 'monday', '09:00', '10:00'),
			(12, 1, 'CSE-A', 'Networks Lab', 'Wednesday', '14:00', '16:00')`,
		`INSERT INTO student_info (usn, student_name, student_section) VALUES
			('S2', 'Bina', 'CSE-A'),
			('S1', 'Arun', 'CSE-A '),
			('S3', 'Chen', 'CSE-B')`,
	}
	for _, q := range seed {
		_, err := db.Client.ExecContext(ctx, q)
		require.NoError(t, err)
	}

	repo := NewRepository(db.Client, db.Dialect)
	return NewService(repo, schedule.NewResolver(schedule.FixedClock(testNow), time.UTC), nil), db
}

func TestSQLiteClassesAndRoster(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	classes, err := svc.Classes(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, ClassSlot{ClassID: 11, Section: "CSE-B", Subject: "Compilers", Weekday: "monday", StartTime: "09:00", EndTime: "10:00"}, classes[0])
	assert.Equal(t, "11:00", classes[1].StartTime)

	teacher, err := svc.Teacher(ctx, "uid-ana")
	require.NoError(t, err)
	assert.Equal(t, int64(1), teacher.ID)

	roster, err := svc.ClassStudents(ctx, 10, "")
	require.NoError(t, err)
	assert.Equal(t, []RosterEntry{
		{USN: "S1", Name: "Arun", Status: "Absent"},
		{USN: "S2", Name: "Bina", Status: "Absent"},
	}, roster.Students)

	_, err = svc.ClassStudents(ctx, 999, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSubmitIsAtomic(t *testing.T) {
	svc, db := newSQLiteService(t)
	ctx := context.Background()

	_, err := svc.SubmitAttendance(ctx, 10, []Record{{StudentUSN: "S1", Status: "Present"}, {StudentUSN: "S2", Status: "Late"}})
	require.NoError(t, err)

	// The unknown student violates the foreign key; the earlier snapshot must survive.
	_, err = svc.SubmitAttendance(ctx, 10, []Record{{StudentUSN: "S1", Status: "Absent"}, {StudentUSN: "GHOST", Status: "Present"}})
	assert.ErrorIs(t, err, ErrStoreFailure)

	roster, err := svc.ClassStudents(ctx, 10, "2025-11-10")
	require.NoError(t, err)
	assert.Equal(t, "Present", roster.Students[0].Status)
	assert.Equal(t, "Late", roster.Students[1].Status)

	_, err = svc.SubmitAttendance(ctx, 10, []Record{{StudentUSN: "S2", Status: "Present"}})
	require.NoError(t, err)
	var rows int
	require.NoError(t, db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance WHERE class_id = 10 AND date = '2025-11-10'`).Scan(&rows))
	assert.Equal(t, 1, rows)

	_, err = svc.RevokeAttendance(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance`).Scan(&rows))
	assert.Zero(t, rows)
}

func TestSQLiteCamEvents(t *testing.T) {
	svc, db := newSQLiteService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.RecordCamEvent(ctx, Cam1, 10, "S1")
		require.NoError(t, err)
	}
	_, err := svc.RecordCamEvent(ctx, Cam2, 10, "S1")
	require.NoError(t, err)

	var cam1, cam2 int
	require.NoError(t, db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_cam1`).Scan(&cam1))
	require.NoError(t, db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_cam2`).Scan(&cam2))
	assert.Equal(t, 2, cam1)
	assert.Equal(t, 1, cam2)
}

package attendance

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classsight/internal/store"
)

func newMockRepo(t *testing.T, dialect store.Dialect) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, dialect), mock
}

var (
	deleteDaySQL = regexp.QuoteMeta(`DELETE FROM attendance WHERE class_id = $1 AND date = $2`)
	insertSQL    = regexp.QuoteMeta(`INSERT INTO attendance (class_id, student_usn, date, status) VALUES ($1, $2, $3, $4)`)
)

func TestReplaceAttendanceCommitsDeleteThenInserts(t *testing.T) {
	repo, mock := newMockRepo(t, store.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(deleteDaySQL).WithArgs(int64(7), "2025-11-10").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(insertSQL).WithArgs(int64(7), "S1", "2025-11-10", "Present").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertSQL).WithArgs(int64(7), "S2", "2025-11-10", "Absent").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceAttendance(context.Background(), 7, "2025-11-10", []Record{
		{StudentUSN: "S1", Status: "Present"},
		{StudentUSN: "S2", Status: "Absent"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAttendanceRollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMockRepo(t, store.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(deleteDaySQL).WithArgs(int64(7), "2025-11-10").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(insertSQL).WithArgs(int64(7), "S1", "2025-11-10", "Present").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertSQL).WithArgs(int64(7), "GHOST", "2025-11-10", "Present").
		WillReturnError(errors.New("violates foreign key constraint"))
	mock.ExpectRollback()

	err := repo.ReplaceAttendance(context.Background(), 7, "2025-11-10", []Record{
		{StudentUSN: "S1", Status: "Present"},
		{StudentUSN: "GHOST", Status: "Present"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAttendanceWithNoRecordsOnlyDeletes(t *testing.T) {
	repo, mock := newMockRepo(t, store.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(deleteDaySQL).WithArgs(int64(7), "2025-11-10").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAttendance(context.Background(), 7, "2025-11-10", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAttendance(t *testing.T) {
	repo, mock := newMockRepo(t, store.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(deleteDaySQL).WithArgs(int64(7), "2025-11-10").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteAttendance(context.Background(), 7, "2025-11-10"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAttendanceBeginFailure(t *testing.T) {
	repo, mock := newMockRepo(t, store.Postgres)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.DeleteAttendance(context.Background(), 7, "2025-11-10")
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherByUID(t *testing.T) {
	repo, mock := newMockRepo(t, store.Postgres)
	query := regexp.QuoteMeta(`SELECT teacher_id, name, email FROM teachers WHERE firebase_uid = $1`)

	mock.ExpectQuery(query).WithArgs("uid-ana").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "name", "email"}).AddRow(1, "Ana Rao", "ana@school.test"))
	mock.ExpectQuery(query).WithArgs("uid-nobody").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "name", "email"}))

	got, err := repo.TeacherByUID(context.Background(), "uid-ana")
	require.NoError(t, err)
	assert.Equal(t, Teacher{ID: 1, Name: "Ana Rao", Email: "ana@school.test"}, got)

	_, err = repo.TeacherByUID(context.Background(), "uid-nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassesOnMySQL(t *testing.T) {
	repo, mock := newMockRepo(t, store.MySQL)

	mock.ExpectQuery(`TIME_FORMAT\(start_time, '%H:%i'\) AS start_time.+LOWER\(weekday\) = LOWER\(\?\)`).
		WithArgs(int64(1), "Monday").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "section", "subject", "weekday", "start_time", "end_time"}).
			AddRow(11, "CSE-B", "Compilers", "Monday", "09:00", "10:00").
			AddRow(10, "CSE-A", "Networks", "Monday", "11:00", "12:00"))

	got, err := repo.ClassesOn(context.Background(), 1, "Monday")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ClassSlot{ClassID: 11, Section: "CSE-B", Subject: "Compilers", Weekday: "Monday", StartTime: "09:00", EndTime: "10:00"}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassSectionTrimsAndReportsMissing(t *testing.T) {
	repo, mock := newMockRepo(t, store.Postgres)
	query := regexp.QuoteMeta(`SELECT section FROM timetable WHERE class_id = $1`)

	mock.ExpectQuery(query).WithArgs(int64(10)).WillReturnRows(sqlmock.NewRows([]string{"section"}).AddRow("  CSE-A "))
	mock.ExpectQuery(query).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	section, err := repo.ClassSection(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "CSE-A", section)

	_, err = repo.ClassSection(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoster(t *testing.T) {
	repo, mock := newMockRepo(t, store.Postgres)

	mock.ExpectQuery(`COALESCE\(a.status, 'Absent'\).+a.class_id = \$1 AND a.date = \$2.+TRIM\(\$3\)`).
		WithArgs(int64(10), "2025-11-10", "CSE-A").
		WillReturnRows(sqlmock.NewRows([]string{"usn", "student_name", "current_status"}).
			AddRow("S1", "Arun", "Present").
			AddRow("S2", "Bina", "Absent"))

	got, err := repo.Roster(context.Background(), 10, "CSE-A", "2025-11-10")
	require.NoError(t, err)
	assert.Equal(t, []RosterEntry{{USN: "S1", Name: "Arun", Status: "Present"}, {USN: "S2", Name: "Bina", Status: "Absent"}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendCamEvent(t *testing.T) {
	repo, mock := newMockRepo(t, store.MySQL)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO attendance_cam1 (class_id, student_usn) VALUES (?, ?)`)).
		WithArgs(int64(10), "S1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO attendance_cam2 (class_id, student_usn) VALUES (?, ?)`)).
		WithArgs(int64(10), "S1").WillReturnError(errors.New("table missing"))

	require.NoError(t, repo.AppendCamEvent(context.Background(), Cam1, 10, "S1"))
	assert.ErrorIs(t, repo.AppendCamEvent(context.Background(), Cam2, 10, "S1"), ErrStoreFailure)
	assert.Error(t, repo.AppendCamEvent(context.Background(), Camera(9), 10, "S1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

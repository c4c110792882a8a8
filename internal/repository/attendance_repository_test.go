package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AurelMV/cbt-admin-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "cycle_id", "student_id", "date", "present", "created_at", "updated_at"})
}

func TestAttendanceRepositoryMarksByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	now := time.Now().UTC()
	day1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_marks WHERE cycle_id = $1 AND student_id = $2")).
		WithArgs("cycle-1", "student-1").
		WillReturnRows(attendanceRows().
			AddRow("m1", "cycle-1", "student-1", day1, true, now, now).
			AddRow("m2", "cycle-1", "student-1", day2, false, now, now))

	marks, err := repo.MarksByStudent(context.Background(), "cycle-1", "student-1")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.True(t, marks["2026-03-02"])
	assert.False(t, marks["2026-03-03"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryMarksByCycleGroupsByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	now := time.Now().UTC()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_marks WHERE cycle_id = $1")).
		WithArgs("cycle-1").
		WillReturnRows(attendanceRows().
			AddRow("m1", "cycle-1", "student-1", day, true, now, now).
			AddRow("m2", "cycle-1", "student-2", day, false, now, now))

	marks, err := repo.MarksByCycle(context.Background(), "cycle-1")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.True(t, marks["student-1"]["2026-03-02"])
	assert.False(t, marks["student-2"]["2026-03-02"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertAssignsID(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_marks")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mark := &models.AttendanceMark{
		CycleID:   "cycle-1",
		StudentID: "student-1",
		Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Present:   true,
	}
	require.NoError(t, repo.Upsert(context.Background(), mark))
	assert.NotEmpty(t, mark.ID)
	assert.False(t, mark.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkSetDate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_marks")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	err := repo.BulkSetDate(context.Background(), "cycle-1", []string{"student-1", "student-2"}, date, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendance_marks WHERE cycle_id = $1 AND student_id = $2")).
		WithArgs("cycle-1", "student-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteByStudent(context.Background(), "cycle-1", "student-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkSetDateNoStudents(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	// No query expected when the student list is empty.
	repo := NewAttendanceRepository(db)
	err := repo.BulkSetDate(context.Background(), "cycle-1", nil, time.Now(), true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

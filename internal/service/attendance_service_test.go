package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

type mockAttendanceRepo struct {
	byStudent map[string]map[string]bool
	upserted  []models.AttendanceMark
	bulkIDs   []string
	bulkDate  time.Time
}

func (m *mockAttendanceRepo) MarksByStudent(ctx context.Context, cycleID, studentID string) (map[string]bool, error) {
	return m.byStudent[studentID], nil
}

func (m *mockAttendanceRepo) MarksByCycle(ctx context.Context, cycleID string) (map[string]map[string]bool, error) {
	return m.byStudent, nil
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, mark *models.AttendanceMark) error {
	m.upserted = append(m.upserted, *mark)
	return nil
}

func (m *mockAttendanceRepo) BulkSetDate(ctx context.Context, cycleID string, studentIDs []string, date time.Time, present bool) error {
	m.bulkIDs = studentIDs
	m.bulkDate = date
	return nil
}

type mockCycleReader struct {
	cycle    *models.Cycle
	sessions []time.Time
}

func (m *mockCycleReader) FindByID(ctx context.Context, id string) (*models.Cycle, error) {
	if m.cycle == nil || m.cycle.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.cycle, nil
}

func (m *mockCycleReader) SessionDates(ctx context.Context, cycleID string) ([]time.Time, error) {
	return m.sessions, nil
}

type mockStudentRepo struct {
	students map[string]*models.Student
	statuses map[string]models.StudentStatus
	bulkArgs [][]string
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ListByCycle(ctx context.Context, cycleID string) ([]models.Student, error) {
	var list []models.Student
	for _, s := range m.students {
		if s.CycleID == cycleID {
			list = append(list, *s)
		}
	}
	return list, nil
}

func (m *mockStudentRepo) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.StudentStatus)
	}
	m.statuses[id] = status
	if s, ok := m.students[id]; ok {
		s.Status = status
	}
	return nil
}

func (m *mockStudentRepo) UpdateStatusBulk(ctx context.Context, ids []string, status models.StudentStatus) ([]string, error) {
	m.bulkArgs = append(m.bulkArgs, ids)
	var changed []string
	for _, id := range ids {
		if s, ok := m.students[id]; ok && s.Status != status {
			s.Status = status
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func sessionDays(start time.Time, n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func newAttendanceServiceForTest(repo *mockAttendanceRepo, cycles *mockCycleReader, students *mockStudentRepo) *AttendanceService {
	return NewAttendanceService(repo, cycles, students, 0, validator.New(), zap.NewNop())
}

func TestEvaluateEmptyCalendar(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockCycleReader{}, &mockStudentRepo{})

	stats := svc.Evaluate(nil, 80, map[string]bool{"2026-03-01": true})

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.Attended)
	assert.Equal(t, 0, stats.Pct)
	assert.True(t, stats.UnderMin)
	assert.False(t, stats.Recurrent)
}

func TestEvaluateFullAttendance(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockCycleReader{}, &mockStudentRepo{})
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 4)
	marks := map[string]bool{}
	for _, d := range dates {
		marks[models.DateKey(d)] = true
	}

	stats := svc.Evaluate(dates, 80, marks)

	assert.Equal(t, 4, stats.Attended)
	assert.Equal(t, 100, stats.Pct)
	assert.False(t, stats.UnderMin)
	assert.False(t, stats.Recurrent)
}

func TestEvaluatePartialAttendance(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockCycleReader{}, &mockStudentRepo{})
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 5)
	marks := map[string]bool{
		models.DateKey(dates[0]): true,
		models.DateKey(dates[1]): true,
		models.DateKey(dates[2]): false,
		models.DateKey(dates[3]): true,
		models.DateKey(dates[4]): true,
	}

	stats := svc.Evaluate(dates, 80, marks)

	assert.Equal(t, 4, stats.Attended)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 80, stats.Pct)
	assert.False(t, stats.UnderMin)
	assert.False(t, stats.Recurrent)
}

func TestEvaluateRoundsHalfUp(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockCycleReader{}, &mockStudentRepo{})
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 8)
	marks := map[string]bool{}
	for i, d := range dates {
		marks[models.DateKey(d)] = i < 5
	}

	// 5/8 = 62.5 rounds to 63.
	stats := svc.Evaluate(dates, 80, marks)
	assert.Equal(t, 63, stats.Pct)
	assert.True(t, stats.UnderMin)
}

func TestEvaluateRecurrentStreak(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockCycleReader{}, &mockStudentRepo{})
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 6)
	marks := map[string]bool{
		models.DateKey(dates[0]): true,
		models.DateKey(dates[1]): false,
		models.DateKey(dates[2]): false,
		models.DateKey(dates[3]): false,
		models.DateKey(dates[4]): true,
		models.DateKey(dates[5]): true,
	}

	stats := svc.Evaluate(dates, 50, marks)
	assert.True(t, stats.Recurrent)
	assert.Equal(t, 3, stats.Attended)
}

func TestEvaluateUnmarkedBreaksStreak(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockCycleReader{}, &mockStudentRepo{})
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 5)
	// Two absences, an unmarked session, then two more absences. No streak
	// reaches three, so the student is not recurrent.
	marks := map[string]bool{
		models.DateKey(dates[0]): false,
		models.DateKey(dates[1]): false,
		models.DateKey(dates[3]): false,
		models.DateKey(dates[4]): false,
	}

	stats := svc.Evaluate(dates, 0, marks)
	assert.False(t, stats.Recurrent)
	assert.Equal(t, 0, stats.Attended)
}

func TestEvaluateIgnoresDatesOutsideCalendar(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockCycleReader{}, &mockStudentRepo{})
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 2)
	marks := map[string]bool{
		models.DateKey(dates[0]): true,
		"2030-01-01":             true,
	}

	stats := svc.Evaluate(dates, 50, marks)
	assert.Equal(t, 1, stats.Attended)
	assert.Equal(t, 2, stats.Total)
}

func TestMarkCellRejectsNonSessionDate(t *testing.T) {
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 3)
	cycles := &mockCycleReader{cycle: &models.Cycle{ID: "c1", MinPct: 80}, sessions: dates}
	students := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", CycleID: "c1"}}}
	repo := &mockAttendanceRepo{}
	svc := newAttendanceServiceForTest(repo, cycles, students)

	err := svc.MarkCell(context.Background(), MarkCellRequest{
		CycleID:   "c1",
		StudentID: "s1",
		Date:      "2026-04-01",
		Present:   true,
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.upserted)
}

func TestMarkCellPersistsMark(t *testing.T) {
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 3)
	cycles := &mockCycleReader{cycle: &models.Cycle{ID: "c1", MinPct: 80}, sessions: dates}
	students := &mockStudentRepo{students: map[string]*models.Student{"s1": {ID: "s1", CycleID: "c1"}}}
	repo := &mockAttendanceRepo{}
	svc := newAttendanceServiceForTest(repo, cycles, students)

	err := svc.MarkCell(context.Background(), MarkCellRequest{
		CycleID:   "c1",
		StudentID: "s1",
		Date:      models.DateKey(dates[1]),
		Present:   true,
	})

	require.NoError(t, err)
	require.Len(t, repo.upserted, 1)
	assert.True(t, repo.upserted[0].Present)
	assert.Equal(t, "s1", repo.upserted[0].StudentID)
}

func TestBulkMarkDateDefaultsToWholeCycle(t *testing.T) {
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 3)
	cycles := &mockCycleReader{cycle: &models.Cycle{ID: "c1", MinPct: 80}, sessions: dates}
	students := &mockStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", CycleID: "c1"},
		"s2": {ID: "s2", CycleID: "c1"},
	}}
	repo := &mockAttendanceRepo{}
	svc := newAttendanceServiceForTest(repo, cycles, students)

	count, err := svc.BulkMarkDate(context.Background(), BulkMarkRequest{
		CycleID: "c1",
		Date:    models.DateKey(dates[0]),
		Present: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, repo.bulkIDs, 2)
}

func TestStudentStatsUnknownStudent(t *testing.T) {
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 3)
	cycles := &mockCycleReader{cycle: &models.Cycle{ID: "c1", MinPct: 80}, sessions: dates}
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, cycles, &mockStudentRepo{})

	_, err := svc.StudentStats(context.Background(), "c1", "ghost")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplyRestrictionToUnderMinimum(t *testing.T) {
	dates := sessionDays(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 4)
	cycles := &mockCycleReader{cycle: &models.Cycle{ID: "c1", MinPct: 80}, sessions: dates}
	students := &mockStudentRepo{students: map[string]*models.Student{
		"low":        {ID: "low", CycleID: "c1", Status: models.StudentStatusRegular},
		"ok":         {ID: "ok", CycleID: "c1", Status: models.StudentStatusRegular},
		"restricted": {ID: "restricted", CycleID: "c1", Status: models.StudentStatusRestricted},
	}}
	marks := map[string]map[string]bool{
		"low": {models.DateKey(dates[0]): true},
		"ok": {
			models.DateKey(dates[0]): true,
			models.DateKey(dates[1]): true,
			models.DateKey(dates[2]): true,
			models.DateKey(dates[3]): true,
		},
		"restricted": {},
	}
	repo := &mockAttendanceRepo{byStudent: marks}
	svc := newAttendanceServiceForTest(repo, cycles, students)

	changed, err := svc.ApplyRestrictionToUnderMinimum(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"low"}, changed)
	assert.Equal(t, models.StudentStatusRestricted, students.students["low"].Status)
	assert.Equal(t, models.StudentStatusRegular, students.students["ok"].Status)

	// Repeating the pass reports nothing new.
	changed, err = svc.ApplyRestrictionToUnderMinimum(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestRemoveRestriction(t *testing.T) {
	students := &mockStudentRepo{students: map[string]*models.Student{
		"s1": {ID: "s1", CycleID: "c1", Status: models.StudentStatusRestricted},
	}}
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockCycleReader{}, students)

	student, err := svc.RemoveRestriction(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusRegular, student.Status)
	assert.Equal(t, models.StudentStatusRegular, students.statuses["s1"])
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

// RecurrentAbsenceThreshold is the default number of consecutive explicit
// absences that flags a student as a recurrent absentee.
const RecurrentAbsenceThreshold = 3

type attendanceRepository interface {
	MarksByStudent(ctx context.Context, cycleID, studentID string) (map[string]bool, error)
	MarksByCycle(ctx context.Context, cycleID string) (map[string]map[string]bool, error)
	Upsert(ctx context.Context, mark *models.AttendanceMark) error
	BulkSetDate(ctx context.Context, cycleID string, studentIDs []string, date time.Time, present bool) error
}

type attendanceCycleReader interface {
	FindByID(ctx context.Context, id string) (*models.Cycle, error)
	SessionDates(ctx context.Context, cycleID string) ([]time.Time, error)
}

type attendanceStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByCycle(ctx context.Context, cycleID string) ([]models.Student, error)
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
	UpdateStatusBulk(ctx context.Context, ids []string, status models.StudentStatus) ([]string, error)
}

// MarkCellRequest toggles a single attendance cell.
type MarkCellRequest struct {
	CycleID   string `json:"cycle_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Present   bool   `json:"present"`
}

// BulkMarkRequest marks one date for many students at once. An empty
// StudentIDs list targets every student in the cycle.
type BulkMarkRequest struct {
	CycleID    string   `json:"cycle_id" validate:"required"`
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	Present    bool     `json:"present"`
	StudentIDs []string `json:"student_ids"`
}

// AttendanceService computes attendance statistics and performs the
// restriction workflow driven by them.
type AttendanceService struct {
	repo      attendanceRepository
	cycles    attendanceCycleReader
	students  attendanceStudentRepository
	threshold int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService. A non-positive
// recurrentThreshold falls back to RecurrentAbsenceThreshold.
func NewAttendanceService(repo attendanceRepository, cycles attendanceCycleReader, students attendanceStudentRepository, recurrentThreshold int, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if recurrentThreshold <= 0 {
		recurrentThreshold = RecurrentAbsenceThreshold
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, cycles: cycles, students: students, threshold: recurrentThreshold, validator: validate, logger: logger}
}

// Evaluate derives attendance statistics for one student from the cycle's
// full session calendar and the student's sparse attendance map. It is pure:
// no side effects, deterministic for identical inputs, safe to call
// concurrently. Dates in the map outside the session calendar are ignored.
//
// An unmarked session counts neither as attendance nor as an explicit
// absence, and it breaks a consecutive-absence streak.
func (s *AttendanceService) Evaluate(sessionDates []time.Time, minPct int, attendance map[string]bool) models.AttendanceStats {
	stats := models.AttendanceStats{Total: len(sessionDates)}

	streak := 0
	maxStreak := 0
	for _, date := range sessionDates {
		present, marked := attendance[models.DateKey(date)]
		switch {
		case marked && present:
			stats.Attended++
			streak = 0
		case marked:
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		default:
			streak = 0
		}
	}

	if stats.Total > 0 {
		stats.Pct = int(math.Round(float64(stats.Attended) / float64(stats.Total) * 100))
	}
	stats.UnderMin = stats.Pct < minPct
	stats.Recurrent = maxStreak >= s.threshold
	return stats
}

// StudentStats computes the live statistics for one student in a cycle.
func (s *AttendanceService) StudentStats(ctx context.Context, cycleID, studentID string) (*models.AttendanceStats, error) {
	cycle, sessions, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	marks, err := s.repo.MarksByStudent(ctx, cycleID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	stats := s.Evaluate(sessions, cycle.MinPct, marks)
	return &stats, nil
}

// CycleEligibility evaluates every student of a cycle.
func (s *AttendanceService) CycleEligibility(ctx context.Context, cycleID string) ([]models.StudentEligibility, error) {
	cycle, sessions, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	marksByStudent, err := s.repo.MarksByCycle(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	result := make([]models.StudentEligibility, 0, len(students))
	for _, student := range students {
		stats := s.Evaluate(sessions, cycle.MinPct, marksByStudent[student.ID])
		result = append(result, models.StudentEligibility{Student: student, Stats: stats})
	}
	return result, nil
}

// MarkCell toggles a single attendance cell. The date must belong to the
// cycle's configured session calendar.
func (s *AttendanceService) MarkCell(ctx context.Context, req MarkCellRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.Parse(models.DateKeyLayout, req.Date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	_, sessions, err := s.loadCycle(ctx, req.CycleID)
	if err != nil {
		return err
	}
	if !containsDate(sessions, date) {
		return appErrors.Clone(appErrors.ErrValidation, "date is not a configured session")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	mark := &models.AttendanceMark{CycleID: req.CycleID, StudentID: req.StudentID, Date: date, Present: req.Present}
	if err := s.repo.Upsert(ctx, mark); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	return nil
}

// BulkMarkDate marks one session date for many students. With no explicit
// student list it targets every student registered in the cycle.
func (s *AttendanceService) BulkMarkDate(ctx context.Context, req BulkMarkRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk attendance payload")
	}
	date, err := time.Parse(models.DateKeyLayout, req.Date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	_, sessions, err := s.loadCycle(ctx, req.CycleID)
	if err != nil {
		return 0, err
	}
	if !containsDate(sessions, date) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "date is not a configured session")
	}

	ids := req.StudentIDs
	if len(ids) == 0 {
		students, err := s.students.ListByCycle(ctx, req.CycleID)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		ids = make([]string, 0, len(students))
		for _, student := range students {
			ids = append(ids, student.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.repo.BulkSetDate(ctx, req.CycleID, ids, date, req.Present); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	return len(ids), nil
}

// ApplyRestrictionToUnderMinimum restricts every student of the cycle whose
// attendance is under the configured minimum. Students already restricted are
// not reported again and students above the minimum are never touched, so a
// second invocation yields no further changes.
func (s *AttendanceService) ApplyRestrictionToUnderMinimum(ctx context.Context, cycleID string) ([]string, error) {
	eligibility, err := s.CycleEligibility(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, entry := range eligibility {
		if entry.Stats.UnderMin && entry.Student.Status != models.StudentStatusRestricted {
			candidates = append(candidates, entry.Student.ID)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	changed, err := s.students.UpdateStatusBulk(ctx, candidates, models.StudentStatusRestricted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restrict students")
	}
	s.logger.Info("applied attendance restriction",
		zap.String("cycle_id", cycleID),
		zap.Int("restricted", len(changed)),
	)
	return changed, nil
}

// RestrictStudent applies the restricted (DPI) status to a single student.
func (s *AttendanceService) RestrictStudent(ctx context.Context, studentID string) (*models.Student, error) {
	return s.setStudentStatus(ctx, studentID, models.StudentStatusRestricted)
}

// RemoveRestriction is the only path back from restricted to regular.
func (s *AttendanceService) RemoveRestriction(ctx context.Context, studentID string) (*models.Student, error) {
	return s.setStudentStatus(ctx, studentID, models.StudentStatusRegular)
}

func (s *AttendanceService) setStudentStatus(ctx context.Context, studentID string, status models.StudentStatus) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status == status {
		return student, nil
	}
	if err := s.students.UpdateStatus(ctx, studentID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}
	student.Status = status
	return student, nil
}

func (s *AttendanceService) loadCycle(ctx context.Context, cycleID string) (*models.Cycle, []time.Time, error) {
	cycle, err := s.cycles.FindByID(ctx, cycleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	sessions, err := s.cycles.SessionDates(ctx, cycleID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle sessions")
	}
	return cycle, sessions, nil
}

func containsDate(dates []time.Time, date time.Time) bool {
	key := models.DateKey(date)
	for _, d := range dates {
		if models.DateKey(d) == key {
			return true
		}
	}
	return false
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AurelMV/cbt-admin-api/internal/models"
)

// AttendanceRepository handles persistence of attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// MarksByStudent returns the sparse attendance map for one student keyed by
// canonical date key. Unmarked dates are simply absent from the map.
func (r *AttendanceRepository) MarksByStudent(ctx context.Context, cycleID, studentID string) (map[string]bool, error) {
	const query = `SELECT id, cycle_id, student_id, date, present, created_at, updated_at
        FROM attendance_marks WHERE cycle_id = $1 AND student_id = $2`
	var marks []models.AttendanceMark
	if err := r.db.SelectContext(ctx, &marks, query, cycleID, studentID); err != nil {
		return nil, fmt.Errorf("list student marks: %w", err)
	}
	result := make(map[string]bool, len(marks))
	for _, m := range marks {
		result[models.DateKey(m.Date)] = m.Present
	}
	return result, nil
}

// MarksByCycle returns every student's sparse attendance map for a cycle.
func (r *AttendanceRepository) MarksByCycle(ctx context.Context, cycleID string) (map[string]map[string]bool, error) {
	const query = `SELECT id, cycle_id, student_id, date, present, created_at, updated_at
        FROM attendance_marks WHERE cycle_id = $1`
	var marks []models.AttendanceMark
	if err := r.db.SelectContext(ctx, &marks, query, cycleID); err != nil {
		return nil, fmt.Errorf("list cycle marks: %w", err)
	}
	result := make(map[string]map[string]bool)
	for _, m := range marks {
		byDate, ok := result[m.StudentID]
		if !ok {
			byDate = make(map[string]bool)
			result[m.StudentID] = byDate
		}
		byDate[models.DateKey(m.Date)] = m.Present
	}
	return result, nil
}

// Upsert writes a single attendance cell, replacing any previous value for
// the same (cycle, student, date).
func (r *AttendanceRepository) Upsert(ctx context.Context, mark *models.AttendanceMark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO attendance_marks (id, cycle_id, student_id, date, present, created_at, updated_at)
        VALUES (:id, :cycle_id, :student_id, :date, :present, :created_at, :updated_at)
        ON CONFLICT (cycle_id, student_id, date)
        DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert attendance mark: %w", err)
	}
	return nil
}

// BulkSetDate marks one date for every listed student in a cycle.
func (r *AttendanceRepository) BulkSetDate(ctx context.Context, cycleID string, studentIDs []string, date time.Time, present bool) error {
	if len(studentIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	values := make([]string, len(studentIDs))
	args := make([]interface{}, 0, len(studentIDs)+4)
	args = append(args, cycleID, date, present, now)
	for i, studentID := range studentIDs {
		values[i] = fmt.Sprintf("($%d, $1, $%d, $2, $3, $4, $4)", len(args)+1, len(args)+2)
		args = append(args, uuid.NewString(), studentID)
	}
	query := fmt.Sprintf(`INSERT INTO attendance_marks (id, cycle_id, student_id, date, present, created_at, updated_at)
        VALUES %s
        ON CONFLICT (cycle_id, student_id, date)
        DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at`, strings.Join(values, ","))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk set attendance date: %w", err)
	}
	return nil
}

// DeleteByStudent clears a student's marks, used when a student leaves a cycle.
func (r *AttendanceRepository) DeleteByStudent(ctx context.Context, cycleID, studentID string) error {
	const query = `DELETE FROM attendance_marks WHERE cycle_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, cycleID, studentID); err != nil {
		return fmt.Errorf("delete student marks: %w", err)
	}
	return nil
}

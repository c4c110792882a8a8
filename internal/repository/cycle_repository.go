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

// CycleRepository handles persistence of cycles and their session calendars.
type CycleRepository struct {
	db *sqlx.DB
}

// NewCycleRepository constructs the repository.
func NewCycleRepository(db *sqlx.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// List returns cycles filtered by the provided criteria.
func (r *CycleRepository) List(ctx context.Context, filter models.CycleFilter) ([]models.Cycle, int, error) {
	base := "FROM cycles c"
	var conditions []string
	var args []interface{}

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("c.state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "c.name",
		"created_at": "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.name, c.state, c.min_pct, c.created_at, c.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var cycles []models.Cycle
	if err := r.db.SelectContext(ctx, &cycles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cycles: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cycles: %w", err)
	}
	return cycles, total, nil
}

// FindByID returns a cycle by its ID.
func (r *CycleRepository) FindByID(ctx context.Context, id string) (*models.Cycle, error) {
	const query = `SELECT id, name, state, min_pct, created_at, updated_at FROM cycles WHERE id = $1`
	var cycle models.Cycle
	if err := r.db.GetContext(ctx, &cycle, query, id); err != nil {
		return nil, err
	}
	return &cycle, nil
}

// SessionDates returns the cycle's configured session dates in ascending order.
func (r *CycleRepository) SessionDates(ctx context.Context, cycleID string) ([]time.Time, error) {
	const query = `SELECT date FROM cycle_sessions WHERE cycle_id = $1 ORDER BY date ASC`
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, cycleID); err != nil {
		return nil, fmt.Errorf("list cycle sessions: %w", err)
	}
	return dates, nil
}

// Create persists a new cycle.
func (r *CycleRepository) Create(ctx context.Context, cycle *models.Cycle) error {
	if cycle.ID == "" {
		cycle.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cycle.CreatedAt.IsZero() {
		cycle.CreatedAt = now
	}
	cycle.UpdatedAt = now
	if cycle.State == "" {
		cycle.State = models.CycleStateOpen
	}
	const query = `INSERT INTO cycles (id, name, state, min_pct, created_at, updated_at)
        VALUES (:id, :name, :state, :min_pct, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cycle); err != nil {
		return fmt.Errorf("create cycle: %w", err)
	}
	return nil
}

// Update stores the editable cycle fields.
func (r *CycleRepository) Update(ctx context.Context, cycle *models.Cycle) error {
	cycle.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cycles SET name = $2, state = $3, min_pct = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, cycle.ID, cycle.Name, cycle.State, cycle.MinPct, cycle.UpdatedAt); err != nil {
		return fmt.Errorf("update cycle: %w", err)
	}
	return nil
}

// AddSession appends a session date to the cycle calendar. Duplicate dates
// are rejected by the unique constraint on (cycle_id, date).
func (r *CycleRepository) AddSession(ctx context.Context, cycleID string, date time.Time) error {
	const query = `INSERT INTO cycle_sessions (id, cycle_id, date) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), cycleID, date); err != nil {
		return fmt.Errorf("add cycle session: %w", err)
	}
	return nil
}

// SessionExists reports whether the date is already part of the calendar.
func (r *CycleRepository) SessionExists(ctx context.Context, cycleID string, date time.Time) (bool, error) {
	const query = `SELECT COUNT(*) FROM cycle_sessions WHERE cycle_id = $1 AND date = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, cycleID, date); err != nil {
		return false, fmt.Errorf("check cycle session: %w", err)
	}
	return count > 0, nil
}

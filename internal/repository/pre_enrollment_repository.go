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

// PreEnrollmentRepository handles persistence of pending enrollment requests.
type PreEnrollmentRepository struct {
	db *sqlx.DB
}

// NewPreEnrollmentRepository constructs the repository.
func NewPreEnrollmentRepository(db *sqlx.DB) *PreEnrollmentRepository {
	return &PreEnrollmentRepository{db: db}
}

const preEnrollmentColumns = `id, cycle_id, full_name, document, email, program, group_id, class_id,
        status, access_enabled, payment_state, reviewed_at, created_at, updated_at`

// ListPending returns pending enrollment requests, optionally scoped to a cycle.
func (r *PreEnrollmentRepository) ListPending(ctx context.Context, filter models.InboxFilter) ([]models.PendingEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM pre_enrollments WHERE status = $1`, preEnrollmentColumns)
	args := []interface{}{models.ReviewStatusPending}
	if filter.CycleID != "" {
		query += fmt.Sprintf(" AND cycle_id = $%d", len(args)+1)
		args = append(args, filter.CycleID)
	}
	query += " ORDER BY created_at ASC"

	var items []models.PendingEnrollment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list pending enrollments: %w", err)
	}
	return items, nil
}

// CountPending returns the live number of pending enrollment requests.
func (r *PreEnrollmentRepository) CountPending(ctx context.Context, cycleID string) (int, error) {
	query := `SELECT COUNT(*) FROM pre_enrollments WHERE status = $1`
	args := []interface{}{models.ReviewStatusPending}
	if cycleID != "" {
		query += " AND cycle_id = $2"
		args = append(args, cycleID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count pending enrollments: %w", err)
	}
	return count, nil
}

// FindByID returns a pending enrollment by its ID.
func (r *PreEnrollmentRepository) FindByID(ctx context.Context, id string) (*models.PendingEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM pre_enrollments WHERE id = $1`, preEnrollmentColumns)
	var item models.PendingEnrollment
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create persists a new intake-form submission.
func (r *PreEnrollmentRepository) Create(ctx context.Context, item *models.PendingEnrollment) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = models.ReviewStatusPending
	}
	if item.PaymentState == "" {
		item.PaymentState = models.PaymentStateUnpaid
	}
	const query = `INSERT INTO pre_enrollments (id, cycle_id, full_name, document, email, program, group_id, class_id,
        status, access_enabled, payment_state, reviewed_at, created_at, updated_at)
        VALUES (:id, :cycle_id, :full_name, :document, :email, :program, :group_id, :class_id,
        :status, :access_enabled, :payment_state, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create pre-enrollment: %w", err)
	}
	return nil
}

// Decide transitions a pending enrollment to a terminal status. The status
// predicate makes the transition atomic: a concurrent or repeated decision
// observes zero affected rows.
func (r *PreEnrollmentRepository) Decide(ctx context.Context, id string, status models.ReviewStatus, groupID, classID *string, accessEnabled bool) (bool, error) {
	const query = `UPDATE pre_enrollments
        SET status = $2, group_id = $3, class_id = $4, access_enabled = $5, reviewed_at = $6, updated_at = $6
        WHERE id = $1 AND status = $7`
	res, err := r.db.ExecContext(ctx, query, id, status, groupID, classID, accessEnabled, time.Now().UTC(), models.ReviewStatusPending)
	if err != nil {
		return false, fmt.Errorf("decide pre-enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide pre-enrollment result: %w", err)
	}
	return affected == 1, nil
}

// SetPaymentState records the downstream effect of an approved payment.
func (r *PreEnrollmentRepository) SetPaymentState(ctx context.Context, id string, state models.PaymentState) error {
	const query = `UPDATE pre_enrollments SET payment_state = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("set enrollment payment state: %w", err)
	}
	return nil
}

// ListByStatus returns decided items for audit views.
func (r *PreEnrollmentRepository) ListByStatus(ctx context.Context, cycleID string, statuses ...models.ReviewStatus) ([]models.PendingEnrollment, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, 0, len(statuses)+1)
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, s)
	}
	query := fmt.Sprintf(`SELECT %s FROM pre_enrollments WHERE status IN (%s)`, preEnrollmentColumns, strings.Join(placeholders, ","))
	if cycleID != "" {
		query += fmt.Sprintf(" AND cycle_id = $%d", len(args)+1)
		args = append(args, cycleID)
	}
	query += " ORDER BY reviewed_at DESC NULLS LAST"

	var items []models.PendingEnrollment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list decided enrollments: %w", err)
	}
	return items, nil
}

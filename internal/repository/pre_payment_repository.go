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

// PrePaymentRepository handles persistence of reported payments awaiting review.
type PrePaymentRepository struct {
	db *sqlx.DB
}

// NewPrePaymentRepository constructs the repository.
func NewPrePaymentRepository(db *sqlx.DB) *PrePaymentRepository {
	return &PrePaymentRepository{db: db}
}

const prePaymentColumns = `id, cycle_id, enrollment_id, payer_name, payer_doc, amount, paid_at, bank,
        receipt_ref, status, reviewed_at, created_at, updated_at`

// ListPending returns pending payments, most recent first by default.
func (r *PrePaymentRepository) ListPending(ctx context.Context, filter models.InboxFilter) ([]models.PendingPayment, error) {
	query := fmt.Sprintf(`SELECT %s FROM pre_payments WHERE status = $1`, prePaymentColumns)
	args := []interface{}{models.ReviewStatusPending}
	if filter.CycleID != "" {
		query += fmt.Sprintf(" AND cycle_id = $%d", len(args)+1)
		args = append(args, filter.CycleID)
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" {
		order = "DESC"
	}
	query += " ORDER BY paid_at " + order

	var items []models.PendingPayment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return items, nil
}

// CountPending returns the live number of pending payments.
func (r *PrePaymentRepository) CountPending(ctx context.Context, cycleID string) (int, error) {
	query := `SELECT COUNT(*) FROM pre_payments WHERE status = $1`
	args := []interface{}{models.ReviewStatusPending}
	if cycleID != "" {
		query += " AND cycle_id = $2"
		args = append(args, cycleID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count pending payments: %w", err)
	}
	return count, nil
}

// FindByID returns a pending payment by its ID.
func (r *PrePaymentRepository) FindByID(ctx context.Context, id string) (*models.PendingPayment, error) {
	query := fmt.Sprintf(`SELECT %s FROM pre_payments WHERE id = $1`, prePaymentColumns)
	var item models.PendingPayment
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create persists a newly reported payment.
func (r *PrePaymentRepository) Create(ctx context.Context, item *models.PendingPayment) error {
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
	const query = `INSERT INTO pre_payments (id, cycle_id, enrollment_id, payer_name, payer_doc, amount, paid_at, bank,
        receipt_ref, status, reviewed_at, created_at, updated_at)
        VALUES (:id, :cycle_id, :enrollment_id, :payer_name, :payer_doc, :amount, :paid_at, :bank,
        :receipt_ref, :status, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create pre-payment: %w", err)
	}
	return nil
}

// Decide transitions a pending payment to a terminal status. The status
// predicate guarantees at-most-once transition under retries.
func (r *PrePaymentRepository) Decide(ctx context.Context, id string, status models.ReviewStatus) (bool, error) {
	const query = `UPDATE pre_payments SET status = $2, reviewed_at = $3, updated_at = $3
        WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC(), models.ReviewStatusPending)
	if err != nil {
		return false, fmt.Errorf("decide pre-payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide pre-payment result: %w", err)
	}
	return affected == 1, nil
}

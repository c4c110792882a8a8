package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AurelMV/cbt-admin-api/internal/models"
)

// NotificationRepository stores dispatched notification records.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create persists a dispatched notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	const query = `INSERT INTO notifications (id, recipient, subject, body, event, sent_at)
        VALUES (:id, :recipient, :subject, :body, :event, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListRecent returns the most recently dispatched notifications.
func (r *NotificationRepository) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, recipient, subject, body, event, sent_at FROM notifications
        ORDER BY sent_at DESC LIMIT %d`, limit)
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

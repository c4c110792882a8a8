package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AurelMV/cbt-admin-api/internal/models"
)

// GroupRepository handles persistence of groups and their class sections.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListByCycle returns the groups configured for a cycle.
func (r *GroupRepository) ListByCycle(ctx context.Context, cycleID string) ([]models.Group, error) {
	const query = `SELECT id, cycle_id, name, created_at, updated_at FROM groups WHERE cycle_id = $1 ORDER BY name ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, cycleID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID returns a group by its ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, cycle_id, name, created_at, updated_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// Create persists a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	const query = `INSERT INTO groups (id, cycle_id, name, created_at, updated_at)
        VALUES (:id, :cycle_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// ListClasses returns the class sections of a group.
func (r *GroupRepository) ListClasses(ctx context.Context, groupID string) ([]models.ClassSection, error) {
	const query = `SELECT id, group_id, name, capacity, created_at, updated_at FROM class_sections WHERE group_id = $1 ORDER BY name ASC`
	var classes []models.ClassSection
	if err := r.db.SelectContext(ctx, &classes, query, groupID); err != nil {
		return nil, fmt.Errorf("list class sections: %w", err)
	}
	return classes, nil
}

// FindClassByID returns a class section by its ID.
func (r *GroupRepository) FindClassByID(ctx context.Context, id string) (*models.ClassSection, error) {
	const query = `SELECT id, group_id, name, capacity, created_at, updated_at FROM class_sections WHERE id = $1`
	var class models.ClassSection
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// CreateClass persists a new class section.
func (r *GroupRepository) CreateClass(ctx context.Context, class *models.ClassSection) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO class_sections (id, group_id, name, capacity, created_at, updated_at)
        VALUES (:id, :group_id, :name, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class section: %w", err)
	}
	return nil
}

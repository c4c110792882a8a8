package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AurelMV/cbt-admin-api/internal/models"
)

const uploadColumns = `id, kind, original_name, file_path, mime_type, size_bytes, uploaded_by, created_at`

// UploadRepository stores uploaded file metadata.
type UploadRepository struct {
	db *sqlx.DB
}

// NewUploadRepository constructs the repository.
func NewUploadRepository(db *sqlx.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create persists metadata for a stored file.
func (r *UploadRepository) Create(ctx context.Context, file *models.UploadedFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO uploaded_files (id, kind, original_name, file_path, mime_type, size_bytes, uploaded_by, created_at)
        VALUES (:id, :kind, :original_name, :file_path, :mime_type, :size_bytes, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create uploaded file: %w", err)
	}
	return nil
}

// FindByID returns a single uploaded file by id.
func (r *UploadRepository) FindByID(ctx context.Context, id string) (*models.UploadedFile, error) {
	query := fmt.Sprintf(`SELECT %s FROM uploaded_files WHERE id = $1`, uploadColumns)
	var file models.UploadedFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, fmt.Errorf("find uploaded file %s: %w", id, err)
	}
	return &file, nil
}

// List returns uploaded files matching the filter, newest first.
func (r *UploadRepository) List(ctx context.Context, filter models.UploadFilter) ([]models.UploadedFile, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", idx))
		args = append(args, strings.ToUpper(filter.Kind))
		idx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM uploaded_files WHERE %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count uploaded files: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM uploaded_files WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		uploadColumns, where, idx, idx+1)
	args = append(args, size, (page-1)*size)

	var items []models.UploadedFile
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list uploaded files: %w", err)
	}
	return items, total, nil
}

// Delete removes file metadata by id.
func (r *UploadRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploaded_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete uploaded file %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete uploaded file %s: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

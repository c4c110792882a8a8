package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentCycleReader interface {
	FindByID(ctx context.Context, id string) (*models.Cycle, error)
}

type studentMarksCleaner interface {
	DeleteByStudent(ctx context.Context, cycleID, studentID string) error
}

// CreateStudentRequest registers a student in a cycle.
type CreateStudentRequest struct {
	CycleID    string `json:"cycle_id" validate:"required"`
	Document   string `json:"document" validate:"required"`
	FullName   string `json:"full_name" validate:"required"`
	GroupLabel string `json:"group_label"`
}

// UpdateStudentRequest edits student identity fields. Status is never
// changed here; restriction flows own it.
type UpdateStudentRequest struct {
	Document   string `json:"document" validate:"required"`
	FullName   string `json:"full_name" validate:"required"`
	GroupLabel string `json:"group_label"`
}

// StudentService orchestrates student management.
type StudentService struct {
	repo      studentRepository
	cycles    studentCycleReader
	marks     studentMarksCleaner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, cycles studentCycleReader, marks studentMarksCleaner, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cycles: cycles, marks: marks, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student in a cycle with the regular status.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.cycles.FindByID(ctx, req.CycleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	student := &models.Student{
		CycleID:    req.CycleID,
		Document:   req.Document,
		FullName:   req.FullName,
		GroupLabel: req.GroupLabel,
		Status:     models.StudentStatusRegular,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update stores editable identity fields.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student.Document = req.Document
	student.FullName = req.FullName
	student.GroupLabel = req.GroupLabel
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student together with their attendance marks. Marks go
// first so a failure leaves the student visible instead of orphaning rows.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.marks != nil {
		if err := s.marks.DeleteByStudent(ctx, student.CycleID, student.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear attendance marks")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("student deleted",
		zap.String("student_id", student.ID),
		zap.String("cycle_id", student.CycleID),
	)
	return nil
}

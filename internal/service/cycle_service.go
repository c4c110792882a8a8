package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

type cycleRepository interface {
	List(ctx context.Context, filter models.CycleFilter) ([]models.Cycle, int, error)
	FindByID(ctx context.Context, id string) (*models.Cycle, error)
	SessionDates(ctx context.Context, cycleID string) ([]time.Time, error)
	Create(ctx context.Context, cycle *models.Cycle) error
	Update(ctx context.Context, cycle *models.Cycle) error
	AddSession(ctx context.Context, cycleID string, date time.Time) error
	SessionExists(ctx context.Context, cycleID string, date time.Time) (bool, error)
}

type summaryReader interface {
	CountPending(ctx context.Context, cycleID string) (int, error)
}

// CreateCycleRequest describes cycle creation.
type CreateCycleRequest struct {
	Name   string `json:"name" validate:"required"`
	MinPct int    `json:"min_pct" validate:"min=0,max=100"`
}

// UpdateCycleRequest describes editable cycle fields.
type UpdateCycleRequest struct {
	Name   string            `json:"name" validate:"required"`
	State  models.CycleState `json:"state" validate:"required"`
	MinPct int               `json:"min_pct" validate:"min=0,max=100"`
}

// AddSessionRequest appends one date to the cycle calendar.
type AddSessionRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// CycleService orchestrates cycle management.
type CycleService struct {
	repo        cycleRepository
	students    attendanceStudentRepository
	enrollments summaryReader
	payments    summaryReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCycleService constructs CycleService.
func NewCycleService(repo cycleRepository, students attendanceStudentRepository, enrollments, payments summaryReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CycleService{repo: repo, students: students, enrollments: enrollments, payments: payments, cache: cache, validator: validate, logger: logger}
}

// List returns cycles with pagination metadata.
func (s *CycleService) List(ctx context.Context, filter models.CycleFilter) ([]models.Cycle, *models.Pagination, error) {
	cycles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cycles")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return cycles, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a cycle with its ordered session dates.
func (s *CycleService) Get(ctx context.Context, id string) (*models.CycleDetail, error) {
	cycle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	sessions, err := s.repo.SessionDates(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle sessions")
	}
	return &models.CycleDetail{Cycle: *cycle, SessionDates: sessions}, nil
}

// Create registers a new cycle in the OPEN state.
func (s *CycleService) Create(ctx context.Context, req CreateCycleRequest) (*models.Cycle, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cycle payload")
	}
	cycle := &models.Cycle{Name: req.Name, MinPct: req.MinPct, State: models.CycleStateOpen}
	if err := s.repo.Create(ctx, cycle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cycle")
	}
	s.invalidateSummary(ctx, cycle.ID)
	return cycle, nil
}

// Update stores editable cycle fields. Session dates and referenced data
// (students, attendance) are untouched.
func (s *CycleService) Update(ctx context.Context, id string, req UpdateCycleRequest) (*models.Cycle, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cycle payload")
	}
	if !req.State.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid cycle state")
	}
	cycle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	cycle.Name = req.Name
	cycle.State = req.State
	cycle.MinPct = req.MinPct
	if err := s.repo.Update(ctx, cycle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update cycle")
	}
	s.invalidateSummary(ctx, id)
	return cycle, nil
}

// AddSession appends a session date to the calendar. Dates may be added but
// the existing order is never rewritten.
func (s *CycleService) AddSession(ctx context.Context, id string, req AddSessionRequest) (*models.CycleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	date, err := time.Parse(models.DateKeyLayout, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session date")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	exists, err := s.repo.SessionExists(ctx, id, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session date")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session date already configured")
	}
	if err := s.repo.AddSession(ctx, id, date); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add session date")
	}
	s.invalidateSummary(ctx, id)
	return s.Get(ctx, id)
}

// Summary aggregates headline figures for one cycle. Pending counts are
// always read live; only the aggregate payload is cached.
func (s *CycleService) Summary(ctx context.Context, id string) (*models.CycleSummary, bool, error) {
	cacheKey := fmt.Sprintf("cycle:summary:%s", id)
	if s.cache.Enabled() {
		var cached models.CycleSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	students, err := s.students.ListByCycle(ctx, id)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	restricted := 0
	for _, student := range students {
		if student.Status == models.StudentStatusRestricted {
			restricted++
		}
	}
	pendingEnrollments, err := s.enrollments.CountPending(ctx, id)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending enrollments")
	}
	pendingPayments, err := s.payments.CountPending(ctx, id)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending payments")
	}

	summary := &models.CycleSummary{
		CycleID:            id,
		Students:           len(students),
		Restricted:         restricted,
		Sessions:           len(detail.SessionDates),
		PendingEnrollments: pendingEnrollments,
		PendingPayments:    pendingPayments,
		GeneratedAt:        time.Now().UTC(),
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, summary, 0)
	}
	return summary, false, nil
}

func (s *CycleService) invalidateSummary(ctx context.Context, cycleID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("cycle:summary:%s", cycleID)); err != nil {
		s.logger.Warn("failed to invalidate cycle summary cache", zap.String("cycle_id", cycleID), zap.Error(err))
	}
}

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

type groupRepository interface {
	ListByCycle(ctx context.Context, cycleID string) ([]models.Group, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	ListClasses(ctx context.Context, groupID string) ([]models.ClassSection, error)
	FindClassByID(ctx context.Context, id string) (*models.ClassSection, error)
	CreateClass(ctx context.Context, class *models.ClassSection) error
}

// CreateGroupRequest registers a group within a cycle.
type CreateGroupRequest struct {
	CycleID string `json:"cycle_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
}

// CreateClassRequest registers a class section within a group.
type CreateClassRequest struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"min=0"`
}

// GroupService orchestrates group and class-section management.
type GroupService struct {
	repo      groupRepository
	cycles    studentCycleReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs GroupService.
func NewGroupService(repo groupRepository, cycles studentCycleReader, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, cycles: cycles, validator: validate, logger: logger}
}

// ListByCycle returns groups of a cycle with their class sections.
func (s *GroupService) ListByCycle(ctx context.Context, cycleID string) ([]models.GroupDetail, error) {
	groups, err := s.repo.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	details := make([]models.GroupDetail, 0, len(groups))
	for _, group := range groups {
		classes, err := s.repo.ListClasses(ctx, group.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class sections")
		}
		details = append(details, models.GroupDetail{Group: group, Classes: classes})
	}
	return details, nil
}

// Create registers a new group in a cycle.
func (s *GroupService) Create(ctx context.Context, req CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if _, err := s.cycles.FindByID(ctx, req.CycleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cycle")
	}
	group := &models.Group{CycleID: req.CycleID, Name: req.Name}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// CreateClass registers a class section under an existing group.
func (s *GroupService) CreateClass(ctx context.Context, groupID string, req CreateClassRequest) (*models.ClassSection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if _, err := s.repo.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	class := &models.ClassSection{GroupID: groupID, Name: req.Name, Capacity: req.Capacity}
	if err := s.repo.CreateClass(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class section")
	}
	return class, nil
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/repository"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByKey(ctx context.Context, number, block string) (*models.Classroom, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, origNumber, origBlock string, classroom *models.Classroom) error
	Delete(ctx context.Context, number, block string) error
}

// ClassroomRequest represents payload for creating or updating classrooms.
// Number and block together form the room identity; the number must not
// contain the key separator "-" or the composite key becomes ambiguous.
type ClassroomRequest struct {
	Number   string `json:"number" validate:"required,max=20,excludes=-"`
	Block    string `json:"block" validate:"required,oneof=A B"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
	IsLab    bool   `json:"is_lab"`
}

// ClassroomService orchestrates classroom operations.
type ClassroomService struct {
	repo      classroomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs a ClassroomService.
func NewClassroomService(repo classroomRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, validator: validate, logger: logger}
}

// List returns classrooms plus pagination data.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return classrooms, pagination, nil
}

// Get returns a classroom by its composite key.
func (s *ClassroomService) Get(ctx context.Context, key string) (*models.Classroom, error) {
	number, block, err := models.SplitClassroomKey(key)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	classroom, err := s.repo.FindByKey(ctx, number, block)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return classroom, nil
}

// Create registers a new classroom.
func (s *ClassroomService) Create(ctx context.Context, req ClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	classroom := &models.Classroom{
		Number:   strings.TrimSpace(req.Number),
		Block:    req.Block,
		Capacity: req.Capacity,
		IsLab:    req.IsLab,
	}

	if err := s.repo.Create(ctx, classroom); err != nil {
		if err == repository.ErrDuplicate {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("classroom %s already registered", classroom.Key()))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return classroom, nil
}

// Update modifies an existing classroom. Number and block may change as
// long as the new identity is free.
func (s *ClassroomService) Update(ctx context.Context, key string, req ClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	number, block, err := models.SplitClassroomKey(key)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	existing, err := s.repo.FindByKey(ctx, number, block)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	existing.Number = strings.TrimSpace(req.Number)
	existing.Block = req.Block
	existing.Capacity = req.Capacity
	existing.IsLab = req.IsLab

	if err := s.repo.Update(ctx, number, block, existing); err != nil {
		if err == repository.ErrDuplicate {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("classroom %s already registered", existing.Key()))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return existing, nil
}

// Delete removes a classroom. Sessions referencing the room are kept.
func (s *ClassroomService) Delete(ctx context.Context, key string) error {
	number, block, err := models.SplitClassroomKey(key)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.repo.FindByKey(ctx, number, block); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if err := s.repo.Delete(ctx, number, block); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	return nil
}

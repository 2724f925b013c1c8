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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type subjectTeacherChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CreateSubjectRequest represents payload for creating subjects. Duration
// is fixed per subject; session end times derive from it.
type CreateSubjectRequest struct {
	ID            string  `json:"id" validate:"required,max=50"`
	Name          string  `json:"name" validate:"required,max=200"`
	DurationHours int     `json:"duration_hours" validate:"required,oneof=2 3 4"`
	RequiresLab   bool    `json:"requires_lab"`
	TeacherID     *string `json:"teacher_id" validate:"omitempty,max=50"`
	Shift         string  `json:"shift" validate:"required,oneof=day evening"`
}

// UpdateSubjectRequest represents payload for updating subjects.
type UpdateSubjectRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	DurationHours int     `json:"duration_hours" validate:"required,oneof=2 3 4"`
	RequiresLab   bool    `json:"requires_lab"`
	TeacherID     *string `json:"teacher_id" validate:"omitempty,max=50"`
	Shift         string  `json:"shift" validate:"required,oneof=day evening"`
}

// SubjectService orchestrates subject operations.
type SubjectService struct {
	repo      subjectRepository
	teachers  subjectTeacherChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, teachers subjectTeacherChecker, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// List returns subjects plus pagination data.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
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
	return subjects, pagination, nil
}

// Get returns a subject by id.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create registers a new subject record.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	teacherID, err := s.resolveTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}

	subject := &models.Subject{
		ID:            strings.TrimSpace(req.ID),
		Name:          strings.TrimSpace(req.Name),
		DurationHours: req.DurationHours,
		RequiresLab:   req.RequiresLab,
		TeacherID:     teacherID,
		Shift:         req.Shift,
	}

	if err := s.repo.Create(ctx, subject); err != nil {
		if err == repository.ErrDuplicate {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("subject %q already registered", subject.ID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update modifies an existing subject. The id cannot be changed.
func (s *SubjectService) Update(ctx context.Context, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	teacherID, err := s.resolveTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}

	subject.Name = strings.TrimSpace(req.Name)
	subject.DurationHours = req.DurationHours
	subject.RequiresLab = req.RequiresLab
	subject.TeacherID = teacherID
	subject.Shift = req.Shift

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject. Sessions referencing the subject are kept and
// surface in listings with an unresolved subject name.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

func (s *SubjectService) resolveTeacher(ctx context.Context, teacherID *string) (*string, error) {
	if teacherID == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*teacherID)
	if trimmed == "" {
		return nil, nil
	}
	exists, err := s.teachers.Exists(ctx, trimmed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("teacher %q not found", trimmed))
	}
	return &trimmed, nil
}

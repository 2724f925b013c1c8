package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/repository"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, int, error)
	ListByDate(ctx context.Context, date string) ([]models.ClassSession, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassSession, error)
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	Create(ctx context.Context, session *models.ClassSession) error
	Update(ctx context.Context, session *models.ClassSession) error
	Delete(ctx context.Context, id string) error
}

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type subjectCatalog interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type classroomDirectory interface {
	FindByKey(ctx context.Context, number, block string) (*models.Classroom, error)
}

// ScheduleSessionRequest describes a candidate session. The end time is
// never supplied: it derives from the subject's fixed duration.
type ScheduleSessionRequest struct {
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	ClassroomKey string `json:"classroom_key" validate:"required"`
	Date         string `json:"date" validate:"required"`
	StartTime    string `json:"start_time" validate:"required"`
	// DateFromPicker marks dates chosen through a calendar widget, which
	// already constrains them to today or later. Free-typed dates are
	// additionally checked against the past here.
	DateFromPicker bool `json:"date_from_picker"`
}

// SessionService is the scheduling core: it validates candidate sessions
// against format rules, calendar policy, reference resolution, teacher
// and classroom double-booking and room compatibility, and commits only
// when every check passes.
type SessionService struct {
	repo          sessionRepository
	teachers      teacherDirectory
	subjects      subjectCatalog
	classrooms    classroomDirectory
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
	closedWeekday time.Weekday

	now func() time.Time
}

// NewSessionService instantiates SessionService.
func NewSessionService(repo sessionRepository, teachers teacherDirectory, subjects subjectCatalog, classrooms classroomDirectory, cache *CacheService, validate *validator.Validate, logger *zap.Logger, closedWeekday time.Weekday) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:          repo,
		teachers:      teachers,
		subjects:      subjects,
		classrooms:    classrooms,
		cache:         cache,
		validator:     validate,
		logger:        logger,
		closedWeekday: closedWeekday,
		now:           time.Now,
	}
}

// List returns session detail rows with pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, *models.Pagination, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return sessions, pagination, nil
}

// Schedule validates a candidate and inserts it with a fresh id.
func (s *SessionService) Schedule(ctx context.Context, req ScheduleSessionRequest) (*models.ClassSession, error) {
	session, err := s.validateCandidate(ctx, req, "")
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, s.commitError(err)
	}
	s.invalidateDay(ctx, session.Date)
	return session, nil
}

// Reschedule re-validates the candidate against every session except the
// one being edited and overwrites that record, keeping its id.
func (s *SessionService) Reschedule(ctx context.Context, id string, req ScheduleSessionRequest) (*models.ClassSession, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	session, err := s.validateCandidate(ctx, req, existing.ID)
	if err != nil {
		return nil, err
	}
	session.ID = existing.ID
	session.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, s.commitError(err)
	}
	s.invalidateDay(ctx, existing.Date)
	if session.Date != existing.Date {
		s.invalidateDay(ctx, session.Date)
	}
	return session, nil
}

// Delete removes a session. Removal is immediate and unconditional; there
// are no intermediate lifecycle states.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "failed to delete session")
	}
	s.invalidateDay(ctx, existing.Date)
	return nil
}

// HasTeacherConflict reports whether the candidate interval overlaps any
// committed session for the teacher on that date, skipping excludeID.
// It is a pure predicate: no error is raised for a conflict, and stored
// records that cannot be parsed are logged and treated as free.
func (s *SessionService) HasTeacherConflict(ctx context.Context, teacherID, date, startTime, endTime, excludeID string) (bool, error) {
	start, end, err := s.parseInterval(date, startTime, endTime)
	if err != nil {
		return false, err
	}
	sessions, err := s.daySessions(ctx, date)
	if err != nil {
		return false, err
	}
	match := func(existing models.ClassSession) bool { return existing.TeacherID == teacherID }
	return s.findOverlap(sessions, match, start, end, excludeID) != nil, nil
}

// HasClassroomConflict reports whether the candidate interval overlaps
// any committed session in the classroom on that date, skipping excludeID.
func (s *SessionService) HasClassroomConflict(ctx context.Context, classroomKey, date, startTime, endTime, excludeID string) (bool, error) {
	start, end, err := s.parseInterval(date, startTime, endTime)
	if err != nil {
		return false, err
	}
	sessions, err := s.daySessions(ctx, date)
	if err != nil {
		return false, err
	}
	match := func(existing models.ClassSession) bool { return existing.ClassroomKey == classroomKey }
	return s.findOverlap(sessions, match, start, end, excludeID) != nil, nil
}

// validateCandidate runs the full pipeline in order: structure, calendar
// policy, reference resolution, teacher conflict, classroom conflict,
// room compatibility. The first failure wins and nothing is persisted.
func (s *SessionService) validateCandidate(ctx context.Context, req ScheduleSessionRequest, excludeID string) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	day, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, err.Error())
	}
	start, err := parseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, err.Error())
	}

	if day.Weekday() == s.closedWeekday {
		return nil, appErrors.Clone(appErrors.ErrInvalidDate, fmt.Sprintf("classes cannot be scheduled on %s", s.closedWeekday))
	}
	if !req.DateFromPicker {
		today := s.now().Format(models.DateLayout)
		if req.Date < today {
			return nil, appErrors.Clone(appErrors.ErrInvalidDate, "classes cannot be scheduled on past dates")
		}
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		return nil, s.referenceError(err, fmt.Sprintf("subject %q not found", req.SubjectID), "failed to load subject")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		return nil, s.referenceError(err, fmt.Sprintf("teacher %q not found", req.TeacherID), "failed to load teacher")
	}
	number, block, err := models.SplitClassroomKey(req.ClassroomKey)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnknownReference, err.Error())
	}
	classroom, err := s.classrooms.FindByKey(ctx, number, block)
	if err != nil {
		return nil, s.referenceError(err, fmt.Sprintf("classroom %q not found", req.ClassroomKey), "failed to load classroom")
	}

	end, err := deriveEnd(start, subject.DurationHours)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, err.Error())
	}

	date := day.Format(models.DateLayout)
	sessions, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session conflicts")
	}

	if hit := s.findOverlap(sessions, func(existing models.ClassSession) bool { return existing.TeacherID == req.TeacherID }, start, end, excludeID); hit != nil {
		msg := fmt.Sprintf("teacher %s already has a class between %s and %s on %s", teacher.DisplayName(), hit.StartTime, hit.EndTime, date)
		return nil, s.wrapConflict(appErrors.ErrTeacherConflict, "TEACHER", msg, *hit)
	}
	if hit := s.findOverlap(sessions, func(existing models.ClassSession) bool { return existing.ClassroomKey == req.ClassroomKey }, start, end, excludeID); hit != nil {
		msg := fmt.Sprintf("classroom %s is already occupied between %s and %s on %s", req.ClassroomKey, hit.StartTime, hit.EndTime, date)
		return nil, s.wrapConflict(appErrors.ErrClassroomConflict, "CLASSROOM", msg, *hit)
	}

	if !isCompatible(subject, classroom) {
		msg := fmt.Sprintf("subject %q requires a lab but classroom %s is not one", subject.Name, req.ClassroomKey)
		return nil, appErrors.Clone(appErrors.ErrIncompatibleRoom, msg)
	}

	return &models.ClassSession{
		Date:         date,
		StartTime:    start.Format(models.TimeLayout),
		EndTime:      end.Format(models.TimeLayout),
		SubjectID:    req.SubjectID,
		TeacherID:    req.TeacherID,
		ClassroomKey: req.ClassroomKey,
	}, nil
}

// isCompatible applies the single room-compatibility rule: a subject that
// requires a lab must land in a lab room.
func isCompatible(subject *models.Subject, classroom *models.Classroom) bool {
	if subject.RequiresLab && !classroom.IsLab {
		return false
	}
	return true
}

// findOverlap scans the day's sessions for one matching the resource
// predicate whose interval intersects [start,end). Records that fail to
// parse are logged and never counted as conflicts.
func (s *SessionService) findOverlap(sessions []models.ClassSession, match func(models.ClassSession) bool, start, end time.Time, excludeID string) *models.ClassSession {
	for i := range sessions {
		existing := sessions[i]
		if existing.ID == excludeID || !match(existing) {
			continue
		}
		existingStart, err := parseClock(existing.StartTime)
		if err != nil {
			s.logger.Warn("stored session has unparsable start time", zap.String("session_id", existing.ID), zap.Error(err))
			continue
		}
		existingEnd, err := parseClock(existing.EndTime)
		if err != nil {
			s.logger.Warn("stored session has unparsable end time", zap.String("session_id", existing.ID), zap.Error(err))
			continue
		}
		if overlaps(start, end, existingStart, existingEnd) {
			return &existing
		}
	}
	return nil
}

func (s *SessionService) parseInterval(date, startTime, endTime string) (time.Time, time.Time, error) {
	if _, err := parseDate(date); err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, err.Error())
	}
	start, err := parseClock(startTime)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, err.Error())
	}
	end, err := parseClock(endTime)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, err.Error())
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrInvalidFormat, "start time must be before end time")
	}
	return start, end, nil
}

// daySessions serves the standalone conflict predicates. Reads go through
// the cache when enabled; the commit path always reads the store.
func (s *SessionService) daySessions(ctx context.Context, date string) ([]models.ClassSession, error) {
	key := dayCacheKey(date)
	var cached []models.ClassSession
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	sessions, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions for conflict check")
	}
	if err := s.cache.Set(ctx, key, sessions, 0); err != nil {
		s.logger.Warn("failed to cache day sessions", zap.String("date", date), zap.Error(err))
	}
	return sessions, nil
}

func (s *SessionService) invalidateDay(ctx context.Context, date string) {
	if err := s.cache.Invalidate(ctx, dayCacheKey(date)); err != nil {
		s.logger.Warn("failed to invalidate day cache", zap.String("date", date), zap.Error(err))
	}
}

func dayCacheKey(date string) string {
	return "sessions:day:" + date
}

func (s *SessionService) referenceError(err error, notFoundMsg, loadMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrUnknownReference, notFoundMsg)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, loadMsg)
}

func (s *SessionService) wrapConflict(reason *appErrors.Error, dimension, message string, existing models.ClassSession) error {
	conflict := models.SessionConflict{
		SessionID:    existing.ID,
		Date:         existing.Date,
		StartTime:    existing.StartTime,
		EndTime:      existing.EndTime,
		TeacherID:    existing.TeacherID,
		ClassroomKey: existing.ClassroomKey,
		Dimension:    dimension,
	}
	domainErr := &models.SessionConflictError{Type: dimension, Message: message, Conflict: conflict}
	return appErrors.Wrap(domainErr, reason.Code, reason.Status, message)
}

// commitError maps repository write failures. Exclusion violations mean a
// concurrent writer beat the in-service check to the same slot.
func (s *SessionService) commitError(err error) error {
	switch {
	case errors.Is(err, repository.ErrOverlap):
		return appErrors.Clone(appErrors.ErrConflict, "the slot was booked by a concurrent request; retry the operation")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "a session with this identity already exists")
	default:
		return appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "failed to persist session")
	}
}

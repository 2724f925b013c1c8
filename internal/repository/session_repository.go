package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/timetable-api/internal/models"
)

// SessionRepository provides persistence for scheduled class sessions.
//
// The class_sessions table carries exclusion constraints preventing
// overlapping [start,end) ranges per teacher and per classroom on a date.
// Those constraints back the in-service conflict checks against
// concurrent writers; violations surface as ErrOverlap.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionDetailColumns = `s.id, s.session_date, s.start_time, s.end_time, s.subject_id, s.teacher_id, s.classroom_key, s.created_at, s.updated_at,
	sub.name AS subject_name,
	t.first_name || ' ' || t.last_name AS teacher_name`

const sessionDetailJoins = ` LEFT JOIN subjects sub ON sub.id = s.subject_id LEFT JOIN teachers t ON t.id = s.teacher_id`

// List returns session detail rows with optional filtering and pagination.
// Display names come from outer joins so sessions with dangling references
// still list, with nil names.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, int, error) {
	base := "FROM class_sessions s" + sessionDetailJoins + " WHERE 1=1"
	countBase := "FROM class_sessions s WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("s.session_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("s.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.ClassroomKey != "" {
		conditions = append(conditions, fmt.Sprintf("s.classroom_key = $%d", len(args)+1))
		args = append(args, filter.ClassroomKey)
	}

	if len(conditions) > 0 {
		suffix := " AND " + strings.Join(conditions, " AND ")
		base += suffix
		countBase += suffix
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.session_date ASC, s.start_time ASC LIMIT %d OFFSET %d", sessionDetailColumns, base, size, offset)
	var sessions []models.ClassSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + countBase
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// ListByDate returns every session on a calendar day. The conflict
// detector scans this set.
func (r *SessionRepository) ListByDate(ctx context.Context, date string) ([]models.ClassSession, error) {
	const query = `SELECT id, session_date, start_time, end_time, subject_id, teacher_id, classroom_key, created_at, updated_at FROM class_sessions WHERE session_date = $1 ORDER BY start_time ASC`
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, date); err != nil {
		return nil, fmt.Errorf("list sessions by date: %w", err)
	}
	return sessions, nil
}

// ListByTeacher returns every session taught by a teacher ordered by date
// and start time. Used for schedule exports.
func (r *SessionRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassSession, error) {
	const query = `SELECT id, session_date, start_time, end_time, subject_id, teacher_id, classroom_key, created_at, updated_at FROM class_sessions WHERE teacher_id = $1 ORDER BY session_date ASC, start_time ASC`
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, teacherID); err != nil {
		return nil, fmt.Errorf("list sessions by teacher: %w", err)
	}
	return sessions, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	const query = `SELECT id, session_date, start_time, end_time, subject_id, teacher_id, classroom_key, created_at, updated_at FROM class_sessions WHERE id = $1`
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create stores a new session record, assigning a fresh id when absent.
func (r *SessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO class_sessions (id, session_date, start_time, end_time, subject_id, teacher_id, classroom_key, created_at, updated_at) VALUES (:id, :session_date, :start_time, :end_time, :subject_id, :teacher_id, :classroom_key, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		switch translateConstraint(err) {
		case ErrOverlap:
			return ErrOverlap
		case ErrDuplicate:
			return ErrDuplicate
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update overwrites the session identified by session.ID with the new
// field values. The id itself never changes.
func (r *SessionRepository) Update(ctx context.Context, session *models.ClassSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_sessions SET session_date = :session_date, start_time = :start_time, end_time = :end_time, subject_id = :subject_id, teacher_id = :teacher_id, classroom_key = :classroom_key, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		if translateConstraint(err) == ErrOverlap {
			return ErrOverlap
		}
		return fmt.Errorf("update session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a session by id.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

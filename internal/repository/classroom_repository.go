package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/timetable-api/internal/models"
)

// ClassroomRepository handles persistence for classrooms. Identity is the
// (number, block) pair.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new repository instance.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms matching filters with pagination metadata.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	base := "FROM classrooms WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Block != "" {
		conditions = append(conditions, fmt.Sprintf("block = $%d", len(args)+1))
		args = append(args, filter.Block)
	}
	if filter.LabOnly {
		conditions = append(conditions, "is_lab = TRUE")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"number":   true,
		"block":    true,
		"capacity": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "block"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT number, block, capacity, is_lab, created_at, updated_at %s ORDER BY %s %s, number ASC LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}

	return classrooms, total, nil
}

// FindByKey returns the classroom identified by number and block.
func (r *ClassroomRepository) FindByKey(ctx context.Context, number, block string) (*models.Classroom, error) {
	const query = `SELECT number, block, capacity, is_lab, created_at, updated_at FROM classrooms WHERE number = $1 AND block = $2`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, number, block); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// Exists checks whether the (number, block) pair is already taken.
func (r *ClassroomRepository) Exists(ctx context.Context, number, block string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM classrooms WHERE number = $1 AND block = $2 LIMIT 1`, number, block); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check classroom key: %w", err)
	}
	return true, nil
}

// Create stores a new classroom record.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	now := time.Now().UTC()
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = now
	}
	classroom.UpdatedAt = now

	const query = `INSERT INTO classrooms (number, block, capacity, is_lab, created_at, updated_at) VALUES (:number, :block, :capacity, :is_lab, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		if translateConstraint(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Update rewrites the classroom identified by the original (number, block)
// pair. The identity may change when the new pair is free.
func (r *ClassroomRepository) Update(ctx context.Context, origNumber, origBlock string, classroom *models.Classroom) error {
	classroom.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET number = $1, block = $2, capacity = $3, is_lab = $4, updated_at = $5 WHERE number = $6 AND block = $7`
	res, err := r.db.ExecContext(ctx, query, classroom.Number, classroom.Block, classroom.Capacity, classroom.IsLab, classroom.UpdatedAt, origNumber, origBlock)
	if err != nil {
		if translateConstraint(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("update classroom: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a classroom by its composite identity. Scheduled sessions
// referencing the room are left in place.
func (r *ClassroomRepository) Delete(ctx context.Context, number, block string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classrooms WHERE number = $1 AND block = $2`, number, block)
	if err != nil {
		return fmt.Errorf("delete classroom: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

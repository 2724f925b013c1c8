package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by write operations so services can translate
// constraint violations into typed rejections.
var (
	// ErrDuplicate reports a unique-constraint violation (record identity
	// already taken).
	ErrDuplicate = errors.New("duplicate record")
	// ErrOverlap reports an exclusion-constraint violation on the session
	// tables. The database enforces non-overlapping bookings per teacher
	// and per classroom as a backstop for concurrent writers.
	ErrOverlap = errors.New("overlapping session")
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// translateConstraint maps PostgreSQL constraint violations onto the
// package sentinels and leaves every other error untouched.
func translateConstraint(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqExclusionViolation:
		return ErrOverlap
	}
	return err
}

package models

import "time"

// Wire formats for session dates and clock times. Stored values use these
// layouts; all comparisons happen on parsed values.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ClassSession is a committed calendar entry: a subject taught by a
// teacher in a classroom on a given date. It holds references by id and
// never owns the referenced records.
type ClassSession struct {
	ID           string    `db:"id" json:"id"`
	Date         string    `db:"session_date" json:"date"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	ClassroomKey string    `db:"classroom_key" json:"classroom_key"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassSessionDetail extends ClassSession with display names resolved by
// outer joins. Names are nil when the referenced record was deleted, so a
// dangling reference renders as unknown rather than failing the lookup.
type ClassSessionDetail struct {
	ClassSession
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// SessionFilter describes query params for listing sessions.
type SessionFilter struct {
	Date         string
	TeacherID    string
	SubjectID    string
	ClassroomKey string
	Page         int
	PageSize     int
}

// SessionConflict describes the committed session a candidate collides
// with.
type SessionConflict struct {
	SessionID    string `json:"session_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	TeacherID    string `json:"teacher_id"`
	ClassroomKey string `json:"classroom_key"`
	Dimension    string `json:"dimension"`
}

// SessionConflictError is returned when a candidate session collides with
// an existing one.
type SessionConflictError struct {
	Type     string          `json:"type"`
	Message  string          `json:"message"`
	Conflict SessionConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *SessionConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

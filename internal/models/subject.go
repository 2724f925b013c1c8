package models

import "time"

// Subject shifts. A subject belongs to either the day or the evening
// programme.
const (
	ShiftDay     = "day"
	ShiftEvening = "evening"
)

// Subject represents an academic subject. DurationHours fixes the length
// of every session scheduled for the subject, so session end times are
// always derived, never entered.
type Subject struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	DurationHours int       `db:"duration_hours" json:"duration_hours"`
	RequiresLab   bool      `db:"requires_lab" json:"requires_lab"`
	TeacherID     *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Shift         string    `db:"shift" json:"shift"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Shift     string
	TeacherID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Weekday and period labels accepted in teacher availability maps. The
// availability calendar covers Monday through Saturday; Sunday is not a
// teaching day.
var (
	AvailabilityDays    = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	AvailabilityPeriods = []string{"Morning", "Afternoon", "Evening"}
)

// Availability maps weekday names to the period labels a teacher has
// declared free. It is informational: the scheduler does not enforce it,
// only double-booking is enforced.
type Availability map[string][]string

// Value serialises the availability map for storage as jsonb.
func (a Availability) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

// Scan loads the availability map from its jsonb representation.
func (a *Availability) Scan(src interface{}) error {
	if src == nil {
		*a = Availability{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported availability source type %T", src)
	}
	if len(raw) == 0 {
		*a = Availability{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

// Teacher represents an instructor record. The ID is the teacher's
// identity-card number and never changes once registered.
type Teacher struct {
	ID           string       `db:"id" json:"id"`
	FirstName    string       `db:"first_name" json:"first_name"`
	LastName     string       `db:"last_name" json:"last_name"`
	Availability Availability `db:"availability" json:"availability"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// DisplayName renders the teacher name the way rejection messages and
// exports present it.
func (t Teacher) DisplayName() string {
	return t.FirstName + " " + t.LastName
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

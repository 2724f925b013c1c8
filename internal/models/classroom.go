package models

import (
	"fmt"
	"strings"
	"time"
)

// ClassroomBlocks enumerates the campus blocks a room can belong to.
var ClassroomBlocks = []string{"A", "B"}

// classroomKeySeparator joins number and block into the composite key.
// Neither field may contain it.
const classroomKeySeparator = "-"

// Classroom represents a physical room. Identity is the (number, block)
// pair; neither field alone is unique.
type Classroom struct {
	Number    string    `db:"number" json:"number"`
	Block     string    `db:"block" json:"block"`
	Capacity  int       `db:"capacity" json:"capacity"`
	IsLab     bool      `db:"is_lab" json:"is_lab"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the composite identity string, e.g. "101-A".
func (c Classroom) Key() string {
	return ClassroomKey(c.Number, c.Block)
}

// ClassroomKey builds the composite key from its parts.
func ClassroomKey(number, block string) string {
	return number + classroomKeySeparator + block
}

// SplitClassroomKey decomposes a composite key into number and block.
func SplitClassroomKey(key string) (number, block string, err error) {
	parts := strings.SplitN(key, classroomKeySeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("classroom key %q is not in number-block form", key)
	}
	return parts[0], parts[1], nil
}

// ClassroomFilter captures filtering options for listing classrooms.
type ClassroomFilter struct {
	Block     string
	LabOnly   bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

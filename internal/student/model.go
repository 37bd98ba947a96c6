package student

import (
	"time"

	"gradebook/internal/analytics"

	"github.com/uptrace/bun"
)

type Student struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	ID          int       `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Class       string    `bun:"class,notnull" json:"class"`
	Section     string    `bun:"section,notnull" json:"section"`
	DateOfBirth time.Time `bun:"date_of_birth,notnull" json:"date_of_birth"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Info converts the row into the analytics view.
func (s Student) Info() analytics.Student {
	return analytics.Student{
		ID:          s.ID,
		Name:        s.Name,
		Class:       s.Class,
		Section:     s.Section,
		DateOfBirth: s.DateOfBirth,
	}
}

// Request is the create/update payload.
type Request struct {
	Name        string `json:"name" validate:"required,min=2,max=100,personname"`
	Class       string `json:"class" validate:"required,max=10,alphanum"`
	Section     string `json:"section" validate:"required,max=5,alphanum"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02,studentage"`
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Class   string
	Section string
	// Query matches a case-insensitive substring of the name.
	Query string
	IDs   []int
}

// ClassSection is one distinct (class, section) pair.
type ClassSection struct {
	Class   string `bun:"class" json:"class"`
	Section string `bun:"section" json:"section"`
}

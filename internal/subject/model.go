package subject

import (
	"time"

	"gradebook/internal/analytics"

	"github.com/uptrace/bun"
)

type Subject struct {
	bun.BaseModel `bun:"table:subjects,alias:sub"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func (s Subject) Info() analytics.Subject {
	return analytics.Subject{ID: s.ID, Name: s.Name}
}

type Request struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// Defaults are the subjects offered by quick-add.
var Defaults = []string{
	"Mathematics",
	"Physics",
	"Chemistry",
	"Biology",
	"English",
	"History",
	"Geography",
	"Computer Science",
	"Economics",
	"Psychology",
}

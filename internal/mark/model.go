package mark

import (
	"time"

	"gradebook/internal/analytics"
	"gradebook/internal/events"
	"gradebook/internal/grading"
	"gradebook/internal/validation"

	"github.com/uptrace/bun"
)

const DefaultMaxMarks = 100.0

type Mark struct {
	bun.BaseModel `bun:"table:marks,alias:m"`

	ID             int       `bun:"id,pk,autoincrement" json:"id"`
	StudentID      int       `bun:"student_id,notnull" json:"student_id"`
	SubjectID      int       `bun:"subject_id,notnull" json:"subject_id"`
	MarksObtained  float64   `bun:"marks_obtained,notnull" json:"marks_obtained"`
	MaxMarks       float64   `bun:"max_marks,notnull,default:100" json:"max_marks"`
	AssessmentDate time.Time `bun:"assessment_date,notnull" json:"assessment_date"`
	AssessmentType string    `bun:"assessment_type,notnull,default:'Assignment'" json:"assessment_type"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Record converts the row into the analytics view.
func (m Mark) Record() analytics.Record {
	t, err := analytics.ParseAssessmentType(m.AssessmentType)
	if err != nil {
		t = analytics.Assignment
	}
	return analytics.Record{
		ID:        m.ID,
		StudentID: m.StudentID,
		SubjectID: m.SubjectID,
		Obtained:  m.MarksObtained,
		Max:       m.MaxMarks,
		Date:      m.AssessmentDate,
		Type:      t,
	}
}

func (m Mark) Payload() events.MarkPayload {
	pct := grading.Percentage(m.MarksObtained, m.MaxMarks)
	return events.MarkPayload{
		ID:             m.ID,
		StudentID:      m.StudentID,
		SubjectID:      m.SubjectID,
		MarksObtained:  m.MarksObtained,
		MaxMarks:       m.MaxMarks,
		Percentage:     pct,
		Grade:          string(grading.Of(pct)),
		AssessmentDate: m.AssessmentDate.Format(validation.DateLayout),
		AssessmentType: m.AssessmentType,
	}
}

// Request records one mark. MaxMarks defaults to 100 and AssessmentType
// to Assignment.
type Request struct {
	StudentID      int     `json:"student_id" validate:"required,gt=0"`
	SubjectID      int     `json:"subject_id" validate:"required,gt=0"`
	MarksObtained  float64 `json:"marks_obtained" validate:"gte=0"`
	MaxMarks       float64 `json:"max_marks" validate:"omitempty,gt=0,lte=1000"`
	AssessmentDate string  `json:"assessment_date" validate:"required,datetime=2006-01-02,assessmentdate"`
	AssessmentType string  `json:"assessment_type" validate:"omitempty,assessmenttype"`
}

// BulkEntry is one student's mark in a bulk request.
type BulkEntry struct {
	StudentID     int     `json:"student_id" validate:"required,gt=0"`
	MarksObtained float64 `json:"marks_obtained" validate:"gte=0"`
}

// BulkRequest records marks for many students sharing subject, date and
// assessment type.
type BulkRequest struct {
	SubjectID      int         `json:"subject_id" validate:"required,gt=0"`
	MaxMarks       float64     `json:"max_marks" validate:"omitempty,gt=0,lte=1000"`
	AssessmentDate string      `json:"assessment_date" validate:"required,datetime=2006-01-02,assessmentdate"`
	AssessmentType string      `json:"assessment_type" validate:"omitempty,assessmenttype"`
	Entries        []BulkEntry `json:"entries" validate:"required,min=1,dive"`
}

func (b BulkRequest) requests() []Request {
	out := make([]Request, 0, len(b.Entries))
	for _, e := range b.Entries {
		out = append(out, Request{
			StudentID:      e.StudentID,
			SubjectID:      b.SubjectID,
			MarksObtained:  e.MarksObtained,
			MaxMarks:       b.MaxMarks,
			AssessmentDate: b.AssessmentDate,
			AssessmentType: b.AssessmentType,
		})
	}
	return out
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	StudentID  int
	SubjectID  int
	StudentIDs []int
	From       time.Time
	To         time.Time
}

// ImportColumns is the CSV import header.
var ImportColumns = []string{
	"student_id",
	"subject_id",
	"marks_obtained",
	"max_marks",
	"assessment_date",
	"assessment_type",
}

type RowError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

type ImportResult struct {
	BatchID  string     `json:"batch_id"`
	Imported int        `json:"imported"`
	Rejected []RowError `json:"rejected"`
}

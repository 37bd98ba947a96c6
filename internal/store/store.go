// Package store wires the student, subject and mark repositories into the
// snapshot interface the report service reads from, and owns the schema.
package store

import (
	"context"

	"gradebook/internal/analytics"
	"gradebook/internal/db"
	"gradebook/internal/mark"
	"gradebook/internal/report"
	"gradebook/internal/student"
	"gradebook/internal/subject"

	"github.com/uptrace/bun"
)

// Tables lists the schema in dependency order.
func Tables() []db.Table {
	return []db.Table{
		{
			Model: (*student.Student)(nil),
			Indexes: []db.Index{
				{Name: "students_class_section_idx", Columns: []string{"class", "section"}},
				{Name: "students_name_idx", Columns: []string{"name"}},
			},
		},
		{
			Model: (*subject.Subject)(nil),
		},
		{
			Model: (*mark.Mark)(nil),
			ForeignKeys: []string{
				`("student_id") REFERENCES "students" ("id") ON DELETE CASCADE`,
				`("subject_id") REFERENCES "subjects" ("id") ON DELETE CASCADE`,
			},
			Indexes: []db.Index{
				{Name: "marks_student_idx", Columns: []string{"student_id"}},
				{Name: "marks_subject_idx", Columns: []string{"subject_id"}},
				{Name: "marks_date_idx", Columns: []string{"assessment_date"}},
			},
		},
	}
}

// TableNames lists the tables children first, for truncation in tests.
func TableNames() []string {
	return []string{"marks", "subjects", "students"}
}

func Migrate(ctx context.Context, database *bun.DB) error {
	return db.RunMigrations(ctx, database, Tables()...)
}

type Store struct {
	students student.Repository
	subjects subject.Repository
	marks    mark.Repository
}

var _ report.Store = (*Store)(nil)

func New(students student.Repository, subjects subject.Repository, marks mark.Repository) *Store {
	return &Store{
		students: students,
		subjects: subjects,
		marks:    marks,
	}
}

func (s *Store) FetchMarks(ctx context.Context, filter report.MarkFilter) ([]analytics.Record, error) {
	rows, err := s.marks.GetAll(ctx, mark.Filter{
		StudentID:  filter.StudentID,
		SubjectID:  filter.SubjectID,
		StudentIDs: filter.StudentIDs,
	})
	if err != nil {
		return nil, err
	}
	records := make([]analytics.Record, 0, len(rows))
	for _, m := range rows {
		records = append(records, m.Record())
	}
	return records, nil
}

func (s *Store) FetchStudents(ctx context.Context, filter report.StudentFilter) ([]analytics.Student, error) {
	rows, err := s.students.GetAll(ctx, student.Filter{
		Class:   filter.Class,
		Section: filter.Section,
		IDs:     filter.IDs,
	})
	if err != nil {
		return nil, err
	}
	out := make([]analytics.Student, 0, len(rows))
	for _, st := range rows {
		out = append(out, st.Info())
	}
	return out, nil
}

func (s *Store) FetchSubjects(ctx context.Context) ([]analytics.Subject, error) {
	rows, err := s.subjects.GetAll(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]analytics.Subject, 0, len(rows))
	for _, sub := range rows {
		out = append(out, sub.Info())
	}
	return out, nil
}

package report_test

import (
	"context"
	"slices"

	"gradebook/internal/analytics"
	"gradebook/internal/report"
)

// memoryStore serves a fixed snapshot. err, when set, fails every fetch.
type memoryStore struct {
	students []analytics.Student
	records  []analytics.Record
	subjects []analytics.Subject
	err      error
}

var _ report.Store = (*memoryStore)(nil)

func (m *memoryStore) FetchMarks(_ context.Context, f report.MarkFilter) ([]analytics.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []analytics.Record
	for _, r := range m.records {
		if f.StudentID > 0 && r.StudentID != f.StudentID {
			continue
		}
		if f.SubjectID > 0 && r.SubjectID != f.SubjectID {
			continue
		}
		if len(f.StudentIDs) > 0 && !slices.Contains(f.StudentIDs, r.StudentID) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) FetchStudents(_ context.Context, f report.StudentFilter) ([]analytics.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []analytics.Student
	for _, s := range m.students {
		if f.Class != "" && s.Class != f.Class {
			continue
		}
		if f.Section != "" && s.Section != f.Section {
			continue
		}
		if len(f.IDs) > 0 && !slices.Contains(f.IDs, s.ID) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryStore) FetchSubjects(context.Context) ([]analytics.Subject, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subjects, nil
}

// school has three students with marks in class 10 and one without in
// class 11.
func school() *memoryStore {
	return &memoryStore{
		subjects: []analytics.Subject{{ID: 1, Name: "Math"}, {ID: 2, Name: "Physics"}},
		students: []analytics.Student{
			{ID: 1, Name: "Asha", Class: "10", Section: "A"},
			{ID: 2, Name: "Ben", Class: "10", Section: "A"},
			{ID: 3, Name: "Cara", Class: "10", Section: "B"},
			{ID: 4, Name: "Dev", Class: "11", Section: "A"},
		},
		records: []analytics.Record{
			{ID: 1, StudentID: 1, SubjectID: 1, Obtained: 90, Max: 100, Date: on(1), Type: analytics.Final},
			{ID: 2, StudentID: 1, SubjectID: 2, Obtained: 40, Max: 100, Date: on(1), Type: analytics.Final},
			{ID: 3, StudentID: 2, SubjectID: 1, Obtained: 50, Max: 100, Date: on(2), Type: analytics.Quiz},
			{ID: 4, StudentID: 2, SubjectID: 2, Obtained: 30, Max: 100, Date: on(2), Type: analytics.Quiz},
			{ID: 5, StudentID: 3, SubjectID: 1, Obtained: 40, Max: 50, Date: on(3), Type: analytics.Midterm},
		},
	}
}

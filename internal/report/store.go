package report

import (
	"context"

	"gradebook/internal/analytics"
)

// StudentFilter narrows FetchStudents. Zero values match everything.
type StudentFilter struct {
	Class   string
	Section string
	IDs     []int
}

// MarkFilter narrows FetchMarks. Zero values match everything.
type MarkFilter struct {
	StudentID  int
	SubjectID  int
	StudentIDs []int
}

// Store hands the analytics core fully materialised snapshots.
type Store interface {
	FetchMarks(ctx context.Context, filter MarkFilter) ([]analytics.Record, error)
	FetchStudents(ctx context.Context, filter StudentFilter) ([]analytics.Student, error)
	FetchSubjects(ctx context.Context) ([]analytics.Subject, error)
}

package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gradebook/internal/analytics"
	"gradebook/internal/grading"
)

const DefaultTop = 10

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// Service fetches a fresh snapshot per call and runs the analytics core
// over it.
type Service struct {
	store  Store
	policy grading.Policy
	logger *slog.Logger
}

func NewService(store Store, policy grading.Policy, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		policy: policy,
		logger: logger,
	}
}

func (s *Service) Policy() grading.Policy {
	return s.policy
}

func (s *Service) aggregator(ctx context.Context) (*analytics.Aggregator, error) {
	subjects, err := s.store.FetchSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subjects: %w", err)
	}
	return analytics.NewAggregator(subjects, s.policy), nil
}

func (s *Service) ReportCard(ctx context.Context, studentID int) (ReportCard, error) {
	if studentID <= 0 {
		return ReportCard{}, ErrInvalidInput
	}
	students, err := s.store.FetchStudents(ctx, StudentFilter{IDs: []int{studentID}})
	if err != nil {
		return ReportCard{}, fmt.Errorf("failed to fetch student: %w", err)
	}
	if len(students) == 0 {
		return ReportCard{}, ErrStudentNotFound
	}
	records, err := s.store.FetchMarks(ctx, MarkFilter{StudentID: studentID})
	if err != nil {
		return ReportCard{}, fmt.Errorf("failed to fetch marks: %w", err)
	}
	agg, err := s.aggregator(ctx)
	if err != nil {
		return ReportCard{}, err
	}

	summary := agg.Student(students[0], records)
	return BuildReportCardWithPolicy(students[0], summary, s.policy), nil
}

// classSnapshot loads the students matching class/section and their marks.
// Empty class means every student.
func (s *Service) classSnapshot(ctx context.Context, class, section string) ([]analytics.Student, []analytics.Record, error) {
	students, err := s.store.FetchStudents(ctx, StudentFilter{
		Class:   strings.ToUpper(strings.TrimSpace(class)),
		Section: strings.ToUpper(strings.TrimSpace(section)),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch students: %w", err)
	}
	if len(students) == 0 {
		return students, nil, nil
	}

	filter := MarkFilter{}
	if class != "" || section != "" {
		filter.StudentIDs = make([]int, 0, len(students))
		for _, st := range students {
			filter.StudentIDs = append(filter.StudentIDs, st.ID)
		}
	}
	records, err := s.store.FetchMarks(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch marks: %w", err)
	}
	return students, records, nil
}

// ClassReport fails with ErrClassNotFound when no student is enrolled in
// class (and section, if given). top <= 0 uses DefaultTop.
func (s *Service) ClassReport(ctx context.Context, class, section string, top int) (ClassReport, error) {
	if strings.TrimSpace(class) == "" {
		return ClassReport{}, fmt.Errorf("%w: class is required", ErrInvalidInput)
	}
	students, records, err := s.classSnapshot(ctx, class, section)
	if err != nil {
		return ClassReport{}, err
	}
	if len(students) == 0 {
		return ClassReport{}, ErrClassNotFound
	}
	agg, err := s.aggregator(ctx)
	if err != nil {
		return ClassReport{}, err
	}
	if top <= 0 {
		top = DefaultTop
	}

	cs := agg.Class(records, students)
	cs.Class = students[0].Class
	if section != "" {
		cs.Section = students[0].Section
	}
	return BuildClassReport(cs, top), nil
}

// TopPerformers ranks students with marks, optionally within a class or
// section. limit 0 uses DefaultTop; a negative limit fails with
// analytics.ErrNegativeLimit.
func (s *Service) TopPerformers(ctx context.Context, limit int, class, section string) ([]analytics.RankedStudent, error) {
	if limit < 0 {
		return nil, analytics.ErrNegativeLimit
	}
	if limit == 0 {
		limit = DefaultTop
	}
	students, records, err := s.classSnapshot(ctx, class, section)
	if err != nil {
		return nil, err
	}
	agg, err := s.aggregator(ctx)
	if err != nil {
		return nil, err
	}
	cs := agg.Class(records, students)
	return analytics.RankTopPerformers(cs.StudentSummaries, limit)
}

func (s *Service) SubjectComparison(ctx context.Context) ([]analytics.SubjectStats, error) {
	records, err := s.store.FetchMarks(ctx, MarkFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch marks: %w", err)
	}
	agg, err := s.aggregator(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Subjects(records), nil
}

func (s *Service) ClassComparison(ctx context.Context) ([]analytics.ClassStats, error) {
	students, records, err := s.classSnapshot(ctx, "", "")
	if err != nil {
		return nil, err
	}
	agg, err := s.aggregator(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Classes(records, students), nil
}

func (s *Service) Overview(ctx context.Context) (analytics.Overview, error) {
	students, records, err := s.classSnapshot(ctx, "", "")
	if err != nil {
		return analytics.Overview{}, err
	}
	agg, err := s.aggregator(ctx)
	if err != nil {
		return analytics.Overview{}, err
	}
	return agg.Overview(records, students), nil
}

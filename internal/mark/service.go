package mark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"gradebook/internal/analytics"
	"gradebook/internal/events"
	"gradebook/internal/export"
	"gradebook/internal/student"
	"gradebook/internal/subject"
	"gradebook/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrMarkNotFound = errors.New("mark not found")
	ErrInvalidInput = errors.New("invalid input")
)

type StudentLookup interface {
	GetStudentByID(ctx context.Context, id int) (*student.Student, error)
}

type SubjectLookup interface {
	GetSubjectByID(ctx context.Context, id int) (*subject.Subject, error)
}

type Service interface {
	RecordMark(ctx context.Context, req Request, source string) (*Mark, error)
	RecordBulk(ctx context.Context, req BulkRequest) ([]Mark, error)
	ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error)
	GetAllMarks(ctx context.Context, filter Filter) ([]Mark, error)
	GetMarkByID(ctx context.Context, id int) (*Mark, error)
	UpdateMark(ctx context.Context, id int, req Request) (*Mark, error)
	DeleteMark(ctx context.Context, id int) error
	RecordSubmission(ctx context.Context, sub events.MarkSubmission, source string) error
}

type service struct {
	repo      Repository
	students  StudentLookup
	subjects  SubjectLookup
	publisher events.Publisher
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewService(repo Repository, students StudentLookup, subjects SubjectLookup, publisher events.Publisher, logger *slog.Logger) Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &service{
		repo:      repo,
		students:  students,
		subjects:  subjects,
		publisher: publisher,
		validate:  validation.New(),
		logger:    logger,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// build validates req and resolves it into a row. Every write path goes
// through here.
func (s *service) build(ctx context.Context, req Request) (Mark, error) {
	if err := s.validate.Struct(&req); err != nil {
		return Mark{}, invalid("%s", validation.Message(err))
	}

	maxMarks := req.MaxMarks
	if maxMarks == 0 {
		maxMarks = DefaultMaxMarks
	}
	if err := validation.CheckMarks(req.MarksObtained, maxMarks); err != nil {
		return Mark{}, invalid("%v", err)
	}
	date, err := validation.ParseDate(req.AssessmentDate)
	if err != nil {
		return Mark{}, invalid("%v", err)
	}
	kind, err := analytics.ParseAssessmentType(req.AssessmentType)
	if err != nil {
		return Mark{}, invalid("%v", err)
	}

	if _, err := s.students.GetStudentByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, student.ErrStudentNotFound) {
			return Mark{}, invalid("student %d does not exist", req.StudentID)
		}
		return Mark{}, err
	}
	if _, err := s.subjects.GetSubjectByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, subject.ErrSubjectNotFound) {
			return Mark{}, invalid("subject %d does not exist", req.SubjectID)
		}
		return Mark{}, err
	}

	return Mark{
		StudentID:      req.StudentID,
		SubjectID:      req.SubjectID,
		MarksObtained:  req.MarksObtained,
		MaxMarks:       maxMarks,
		AssessmentDate: date,
		AssessmentType: string(kind),
	}, nil
}

// publish never fails the write; the row is already committed.
func (s *service) publish(ctx context.Context, kind events.Kind, source string, m Mark) {
	if err := s.publisher.Publish(ctx, events.NewMarkEvent(kind, source, m.Payload())); err != nil {
		s.logger.WarnContext(ctx, "failed to publish mark event", "kind", kind, "mark_id", m.ID, "error", err)
	}
}

func (s *service) RecordMark(ctx context.Context, req Request, source string) (*Mark, error) {
	m, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, &m)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.MarkRecorded, source, *created)
	return created, nil
}

func (s *service) RecordBulk(ctx context.Context, req BulkRequest) ([]Mark, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, invalid("%s", validation.Message(err))
	}

	seen := make(map[int]bool, len(req.Entries))
	marks := make([]Mark, 0, len(req.Entries))
	for i, r := range req.requests() {
		if seen[r.StudentID] {
			return nil, invalid("entry %d: student %d appears twice", i+1, r.StudentID)
		}
		seen[r.StudentID] = true

		m, err := s.build(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		marks = append(marks, m)
	}

	created, err := s.repo.CreateBatch(ctx, marks)
	if err != nil {
		return nil, err
	}
	for _, m := range created {
		s.publish(ctx, events.MarkRecorded, "bulk", m)
	}
	return created, nil
}

// ImportCSV records every valid row in one transaction and reports the
// rest by line number.
func (s *service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := export.ReadCSV(r, []string{"student_id", "subject_id", "marks_obtained", "assessment_date"})
	if err != nil {
		return nil, invalid("%v", err)
	}

	result := &ImportResult{BatchID: uuid.NewString(), Rejected: []RowError{}}
	var marks []Mark
	for _, row := range rows {
		req, err := requestFromRow(row)
		if err == nil {
			var m Mark
			if m, err = s.build(ctx, req); err == nil {
				marks = append(marks, m)
				continue
			}
		}
		result.Rejected = append(result.Rejected, RowError{Line: row.Line, Error: err.Error()})
	}

	created, err := s.repo.CreateBatch(ctx, marks)
	if err != nil {
		return nil, err
	}
	result.Imported = len(created)
	for _, m := range created {
		s.publish(ctx, events.MarkRecorded, "import:"+result.BatchID, m)
	}

	s.logger.InfoContext(ctx, "marks imported",
		"batch_id", result.BatchID,
		"imported", result.Imported,
		"rejected", len(result.Rejected),
	)
	return result, nil
}

func requestFromRow(row export.Row) (Request, error) {
	studentID, err := strconv.Atoi(row.Get("student_id"))
	if err != nil {
		return Request{}, invalid("student_id %q is not a number", row.Get("student_id"))
	}
	subjectID, err := strconv.Atoi(row.Get("subject_id"))
	if err != nil {
		return Request{}, invalid("subject_id %q is not a number", row.Get("subject_id"))
	}
	obtained, err := strconv.ParseFloat(row.Get("marks_obtained"), 64)
	if err != nil {
		return Request{}, invalid("marks_obtained %q is not a number", row.Get("marks_obtained"))
	}
	var maxMarks float64
	if raw := row.Get("max_marks"); raw != "" {
		if maxMarks, err = strconv.ParseFloat(raw, 64); err != nil {
			return Request{}, invalid("max_marks %q is not a number", raw)
		}
	}
	return Request{
		StudentID:      studentID,
		SubjectID:      subjectID,
		MarksObtained:  obtained,
		MaxMarks:       maxMarks,
		AssessmentDate: row.Get("assessment_date"),
		AssessmentType: row.Get("assessment_type"),
	}, nil
}

func (s *service) GetAllMarks(ctx context.Context, filter Filter) ([]Mark, error) {
	return s.repo.GetAll(ctx, filter)
}

func (s *service) GetMarkByID(ctx context.Context, id int) (*Mark, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateMark(ctx context.Context, id int, req Request) (*Mark, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	m, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	m.ID = id
	if err := s.repo.Update(ctx, &m); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.MarkUpdated, "api", *updated)
	return updated, nil
}

func (s *service) DeleteMark(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.MarkDeleted, "api", *existing)
	return nil
}

// RecordSubmission stores an ingested submission. Invalid submissions are
// wrapped in events.ErrRejected so consumers acknowledge them.
func (s *service) RecordSubmission(ctx context.Context, sub events.MarkSubmission, source string) error {
	_, err := s.RecordMark(ctx, Request{
		StudentID:      sub.StudentID,
		SubjectID:      sub.SubjectID,
		MarksObtained:  sub.MarksObtained,
		MaxMarks:       sub.MaxMarks,
		AssessmentDate: sub.AssessmentDate,
		AssessmentType: sub.AssessmentType,
	}, source)
	if errors.Is(err, ErrInvalidInput) {
		return fmt.Errorf("%w: %w", events.ErrRejected, err)
	}
	return err
}

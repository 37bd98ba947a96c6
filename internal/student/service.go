package student

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gradebook/internal/validation"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrInvalidInput    = errors.New("invalid input")
)

type Service interface {
	CreateStudent(ctx context.Context, req Request) (*Student, error)
	GetAllStudents(ctx context.Context, filter Filter) ([]Student, error)
	GetStudentByID(ctx context.Context, id int) (*Student, error)
	UpdateStudent(ctx context.Context, id int, req Request) (*Student, error)
	DeleteStudent(ctx context.Context, id int) error
	ListClasses(ctx context.Context) ([]ClassSection, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) CreateStudent(ctx context.Context, req Request) (*Student, error) {
	student, err := fromRequest(req)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, student)
}

func (s *service) GetAllStudents(ctx context.Context, filter Filter) ([]Student, error) {
	filter.Class = strings.ToUpper(strings.TrimSpace(filter.Class))
	filter.Section = strings.ToUpper(strings.TrimSpace(filter.Section))
	return s.repo.GetAll(ctx, filter)
}

func (s *service) GetStudentByID(ctx context.Context, id int) (*Student, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateStudent(ctx context.Context, id int, req Request) (*Student, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	student, err := fromRequest(req)
	if err != nil {
		return nil, err
	}
	student.ID = id
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) DeleteStudent(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) ListClasses(ctx context.Context) ([]ClassSection, error) {
	return s.repo.Classes(ctx)
}

// fromRequest normalises a validated request. Class and section are stored
// upper-case so "10a" and "10A" group together.
func fromRequest(req Request) (*Student, error) {
	dob, err := validation.ParseDate(req.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &Student{
		Name:        strings.Join(strings.Fields(req.Name), " "),
		Class:       strings.ToUpper(strings.TrimSpace(req.Class)),
		Section:     strings.ToUpper(strings.TrimSpace(req.Section)),
		DateOfBirth: dob,
	}, nil
}

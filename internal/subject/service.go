package subject

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSubjectExists   = errors.New("subject already exists")
	ErrInvalidInput    = errors.New("invalid input")
)

type Service interface {
	CreateSubject(ctx context.Context, req Request) (*Subject, error)
	GetAllSubjects(ctx context.Context, query string) ([]Subject, error)
	GetSubjectByID(ctx context.Context, id int) (*Subject, error)
	UpdateSubject(ctx context.Context, id int, req Request) (*Subject, error)
	DeleteSubject(ctx context.Context, id int) error
	AddDefaults(ctx context.Context) ([]Subject, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func normalize(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// ensureUnique fails with ErrSubjectExists when another subject already
// carries name, ignoring case.
func (s *service) ensureUnique(ctx context.Context, name string, selfID int) error {
	existing, err := s.repo.GetByName(ctx, name)
	if errors.Is(err, ErrSubjectNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return ErrSubjectExists
	}
	return nil
}

func (s *service) CreateSubject(ctx context.Context, req Request) (*Subject, error) {
	name := normalize(req.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if err := s.ensureUnique(ctx, name, 0); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &Subject{Name: name})
}

func (s *service) GetAllSubjects(ctx context.Context, query string) ([]Subject, error) {
	return s.repo.GetAll(ctx, query)
}

func (s *service) GetSubjectByID(ctx context.Context, id int) (*Subject, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateSubject(ctx context.Context, id int, req Request) (*Subject, error) {
	name := normalize(req.Name)
	if id <= 0 || name == "" {
		return nil, ErrInvalidInput
	}
	if err := s.ensureUnique(ctx, name, id); err != nil {
		return nil, err
	}
	subject := &Subject{ID: id, Name: name}
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) DeleteSubject(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

// AddDefaults creates whichever of Defaults are missing and returns only
// the newly created subjects. Running it twice creates nothing the second
// time.
func (s *service) AddDefaults(ctx context.Context) ([]Subject, error) {
	created := []Subject{}
	for _, name := range Defaults {
		err := s.ensureUnique(ctx, name, 0)
		if errors.Is(err, ErrSubjectExists) {
			continue
		}
		if err != nil {
			return created, err
		}
		subject, err := s.repo.Create(ctx, &Subject{Name: name})
		if err != nil {
			return created, err
		}
		created = append(created, *subject)
	}
	return created, nil
}

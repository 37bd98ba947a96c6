package subject

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"gradebook/common/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, subject *Subject) (*Subject, error)
	GetAll(ctx context.Context, query string) ([]Subject, error)
	GetByID(ctx context.Context, id int) (*Subject, error)
	GetByName(ctx context.Context, name string) (*Subject, error)
	Update(ctx context.Context, subject *Subject) error
	Delete(ctx context.Context, id int) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Create(ctx context.Context, subject *Subject) (*Subject, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(subject).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "subjects", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return subject, nil
}

func (r *repository) GetAll(ctx context.Context, query string) ([]Subject, error) {
	start := time.Now()
	subjects := []Subject{}
	q := r.db.NewSelect().Model(&subjects)
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where("LOWER(sub.name) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	err := q.Order("sub.name ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "subjects", time.Since(start), err)

	return subjects, err
}

func (r *repository) GetByID(ctx context.Context, id int) (*Subject, error) {
	start := time.Now()
	subject := new(Subject)
	err := r.db.NewSelect().Model(subject).Where("sub.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "subjects", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return subject, nil
}

// GetByName matches case-insensitively.
func (r *repository) GetByName(ctx context.Context, name string) (*Subject, error) {
	start := time.Now()
	subject := new(Subject)
	err := r.db.NewSelect().
		Model(subject).
		Where("LOWER(sub.name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Limit(1).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "subjects", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return subject, nil
}

func (r *repository) Update(ctx context.Context, subject *Subject) error {
	start := time.Now()
	result, err := r.db.NewUpdate().Model(subject).Column("name").WherePK().Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "subjects", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	subject := &Subject{ID: id}
	result, err := r.db.NewDelete().Model(subject).WherePK().Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "subjects", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

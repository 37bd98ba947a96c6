package student

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
	Create(ctx context.Context, student *Student) (*Student, error)
	GetAll(ctx context.Context, filter Filter) ([]Student, error)
	GetByID(ctx context.Context, id int) (*Student, error)
	Update(ctx context.Context, student *Student) error
	Delete(ctx context.Context, id int) error
	Classes(ctx context.Context) ([]ClassSection, error)
	Count(ctx context.Context) (int, error)
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

func (r *repository) Create(ctx context.Context, student *Student) (*Student, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(student).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "students", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return student, nil
}

func (r *repository) GetAll(ctx context.Context, filter Filter) ([]Student, error) {
	start := time.Now()
	students := []Student{}
	q := r.db.NewSelect().Model(&students)
	if filter.Class != "" {
		q = q.Where("s.class = ?", filter.Class)
	}
	if filter.Section != "" {
		q = q.Where("s.section = ?", filter.Section)
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		q = q.Where("LOWER(s.name) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	if len(filter.IDs) > 0 {
		q = q.Where("s.id IN (?)", bun.In(filter.IDs))
	}
	err := q.Order("s.name ASC", "s.id ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	return students, err
}

func (r *repository) GetByID(ctx context.Context, id int) (*Student, error) {
	start := time.Now()
	student := new(Student)
	err := r.db.NewSelect().Model(student).Where("s.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

func (r *repository) Update(ctx context.Context, student *Student) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(student).
		Column("name", "class", "section", "date_of_birth").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "students", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// Delete removes the student; their marks go with them through the
// cascading foreign key.
func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	student := &Student{ID: id}
	result, err := r.db.NewDelete().Model(student).WherePK().Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "students", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *repository) Classes(ctx context.Context) ([]ClassSection, error) {
	start := time.Now()
	classes := []ClassSection{}
	err := r.db.NewSelect().
		Model((*Student)(nil)).
		Column("class", "section").
		Distinct().
		Order("class ASC", "section ASC").
		Scan(ctx, &classes)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	return classes, err
}

func (r *repository) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := r.db.NewSelect().Model((*Student)(nil)).Count(ctx)

	r.metrics.Database.RecordQuery(ctx, "count", "students", time.Since(start), err)

	return n, err
}

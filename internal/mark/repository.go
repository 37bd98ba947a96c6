package mark

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gradebook/common/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, mark *Mark) (*Mark, error)
	CreateBatch(ctx context.Context, marks []Mark) ([]Mark, error)
	GetAll(ctx context.Context, filter Filter) ([]Mark, error)
	GetByID(ctx context.Context, id int) (*Mark, error)
	Update(ctx context.Context, mark *Mark) error
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

func (r *repository) Create(ctx context.Context, mark *Mark) (*Mark, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(mark).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "marks", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return mark, nil
}

// CreateBatch inserts all marks in one transaction; either all land or
// none do.
func (r *repository) CreateBatch(ctx context.Context, marks []Mark) ([]Mark, error) {
	if len(marks) == 0 {
		return marks, nil
	}
	start := time.Now()
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := range marks {
			if _, err := tx.NewInsert().Model(&marks[i]).Returning("*").Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	r.metrics.Database.RecordQuery(ctx, "insert_batch", "marks", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return marks, nil
}

func (r *repository) GetAll(ctx context.Context, filter Filter) ([]Mark, error) {
	start := time.Now()
	marks := []Mark{}
	q := r.db.NewSelect().Model(&marks)
	if filter.StudentID > 0 {
		q = q.Where("m.student_id = ?", filter.StudentID)
	}
	if filter.SubjectID > 0 {
		q = q.Where("m.subject_id = ?", filter.SubjectID)
	}
	if len(filter.StudentIDs) > 0 {
		q = q.Where("m.student_id IN (?)", bun.In(filter.StudentIDs))
	}
	if !filter.From.IsZero() {
		q = q.Where("m.assessment_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("m.assessment_date <= ?", filter.To)
	}
	err := q.Order("m.assessment_date DESC", "m.id ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "marks", time.Since(start), err)

	return marks, err
}

func (r *repository) GetByID(ctx context.Context, id int) (*Mark, error) {
	start := time.Now()
	mark := new(Mark)
	err := r.db.NewSelect().Model(mark).Where("m.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "marks", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMarkNotFound
		}
		return nil, err
	}
	return mark, nil
}

func (r *repository) Update(ctx context.Context, mark *Mark) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(mark).
		Column("student_id", "subject_id", "marks_obtained", "max_marks", "assessment_date", "assessment_type").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "marks", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMarkNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	mark := &Mark{ID: id}
	result, err := r.db.NewDelete().Model(mark).WherePK().Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "marks", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMarkNotFound
	}
	return nil
}

package report_test

import (
	"context"
	"errors"
	"testing"

	"gradebook/common/logger"
	"gradebook/internal/analytics"
	"gradebook/internal/grading"
	"gradebook/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(store report.Store) *report.Service {
	return report.NewService(store, grading.DefaultPolicy(), logger.Discard())
}

func TestService_ReportCard(t *testing.T) {
	svc := newService(school())
	ctx := context.Background()

	card, err := svc.ReportCard(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Asha", card.Header.Name)
	assert.Equal(t, 65.0, card.Summary.OverallPercentage)
	assert.Equal(t, grading.B, card.Summary.OverallGrade)
	assert.Equal(t, 40.0, card.PassThreshold)

	_, err = svc.ReportCard(ctx, 0)
	assert.ErrorIs(t, err, report.ErrInvalidInput)

	_, err = svc.ReportCard(ctx, 99)
	assert.ErrorIs(t, err, report.ErrStudentNotFound)
}

func TestService_ClassReport(t *testing.T) {
	svc := newService(school())
	ctx := context.Background()

	t.Run("WholeClass", func(t *testing.T) {
		r, err := svc.ClassReport(ctx, "10", "", 0)
		require.NoError(t, err)
		assert.Equal(t, "10", r.Metrics.Class)
		assert.Empty(t, r.Metrics.Section)
		assert.Equal(t, 3, r.Metrics.TotalStudents)
		require.Len(t, r.TopPerformers, 3)
		assert.Equal(t, []string{"Cara", "Asha", "Ben"},
			[]string{r.TopPerformers[0].Name, r.TopPerformers[1].Name, r.TopPerformers[2].Name})
	})

	t.Run("SectionIsCaseInsensitive", func(t *testing.T) {
		r, err := svc.ClassReport(ctx, "10", "b", 5)
		require.NoError(t, err)
		assert.Equal(t, "B", r.Metrics.Section)
		assert.Equal(t, 1, r.Metrics.TotalStudents)
		assert.Equal(t, 80.0, r.Metrics.ClassAverage)
	})

	t.Run("OnlyStudentsWithoutMarks", func(t *testing.T) {
		r, err := svc.ClassReport(ctx, "11", "", 0)
		require.NoError(t, err)
		assert.Zero(t, r.Metrics.TotalStudents)
		assert.Equal(t, 1, r.Metrics.NoDataStudents)
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := svc.ClassReport(ctx, "12", "", 0)
		assert.ErrorIs(t, err, report.ErrClassNotFound)

		_, err = svc.ClassReport(ctx, "  ", "", 0)
		assert.ErrorIs(t, err, report.ErrInvalidInput)
	})
}

func TestService_TopPerformers(t *testing.T) {
	svc := newService(school())
	ctx := context.Background()

	_, err := svc.TopPerformers(ctx, -1, "", "")
	assert.ErrorIs(t, err, analytics.ErrNegativeLimit)

	all, err := svc.TopPerformers(ctx, 0, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3, "students without marks are not ranked")
	assert.Equal(t, 1, all[0].Rank)

	section, err := svc.TopPerformers(ctx, 1, "10", "A")
	require.NoError(t, err)
	require.Len(t, section, 1)
	assert.Equal(t, "Asha", section[0].Name)
}

func TestService_Comparisons(t *testing.T) {
	svc := newService(school())
	ctx := context.Background()

	subjects, err := svc.SubjectComparison(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Math", subjects[0].Subject)
	assert.Equal(t, 3, subjects[0].TotalAssessments)

	classes, err := svc.ClassComparison(ctx)
	require.NoError(t, err)
	assert.Len(t, classes, 3)

	overview, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, overview.TotalStudents)
	assert.Equal(t, 3, overview.StudentsWithMarks)
	assert.Equal(t, 5, overview.TotalAssessments)
	assert.Equal(t, 2, overview.TotalSubjects)
}

func TestService_StoreFailure(t *testing.T) {
	store := school()
	store.err = errors.New("connection reset")
	svc := newService(store)

	_, err := svc.ReportCard(context.Background(), 1)
	assert.ErrorIs(t, err, store.err)

	_, err = svc.Overview(context.Background())
	assert.ErrorIs(t, err, store.err)
}

package cli_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"gradebook/internal/analytics"
	"gradebook/internal/cli"
	"gradebook/internal/grading"
	"gradebook/internal/report"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReports struct {
	lastLimit   int
	lastClass   string
	lastSection string
}

func (f *fakeReports) ReportCard(_ context.Context, id int) (report.ReportCard, error) {
	if id != 1 {
		return report.ReportCard{}, report.ErrStudentNotFound
	}
	return report.ReportCard{
		Header: report.Header{StudentID: 1, Name: "Asha Rao", Class: "10", Section: "A"},
		Summary: analytics.StudentSummary{
			OverallPercentage: 65,
			OverallGrade:      grading.B,
			Status:            grading.Pass,
			SubjectDetails: []analytics.SubjectDetail{
				{Subject: "Mathematics", MarksObtained: 90, MaxMarks: 100, Percentage: 90, Grade: grading.APlus, Status: grading.Pass,
					AssessmentDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), AssessmentType: analytics.Final},
			},
		},
		Tier:            report.TierGood,
		Trend:           report.TrendInsufficient,
		Recommendations: []string{"Strengthen Physics concepts"},
	}, nil
}

func (f *fakeReports) ClassReport(_ context.Context, class, section string, top int) (report.ClassReport, error) {
	f.lastClass, f.lastSection, f.lastLimit = class, section, top
	return report.ClassReport{
		Metrics:  report.ClassMetrics{Class: "10", Section: "A", TotalStudents: 2, ClassAverage: 58.33},
		Insights: []string{"Average class performance - needs improvement"},
		TopPerformers: []analytics.RankedStudent{
			{Rank: 1, Name: "Asha Rao", Class: "10", Section: "A", Percentage: 65, Grade: grading.B, Status: grading.Pass},
		},
	}, nil
}

func (f *fakeReports) TopPerformers(_ context.Context, limit int, _, _ string) ([]analytics.RankedStudent, error) {
	f.lastLimit = limit
	if limit < 0 {
		return nil, analytics.ErrNegativeLimit
	}
	return []analytics.RankedStudent{
		{Rank: 1, Name: "Asha Rao", Class: "10", Section: "A", Percentage: 65, Grade: grading.B, Status: grading.Pass},
		{Rank: 2, Name: "Ben Okafor", Class: "10", Section: "B", Percentage: 30, Grade: grading.F, Status: grading.Fail},
	}, nil
}

func (f *fakeReports) SubjectComparison(context.Context) ([]analytics.SubjectStats, error) {
	return []analytics.SubjectStats{
		{Subject: "Mathematics", TotalAssessments: 4, AveragePercentage: 72.5, Grade: grading.BPlus, HighestMarks: 95, LowestMarks: 40, PassCount: 4},
	}, nil
}

func TestRunner(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{"Card", []string{"card", "1"}, []string{"Report Card: Asha Rao (Class 10-A)", "SUBJECT", "Mathematics", "90%", "Strengthen Physics concepts"}},
		{"Class", []string{"class", "10", "A"}, []string{"Class Report: 10-A", "58.33%", "Average class performance"}},
		{"Top", []string{"top", "2"}, []string{"Top 2 Performers", "Ben Okafor", "Fail"}},
		{"Subjects", []string{"subjects"}, []string{"Subject Performance", "72.5%", "B+"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			runner := cli.NewRunner(&fakeReports{}, &out, 5)

			require.NoError(t, runner.Run(context.Background(), tt.args))
			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestRunner_Defaults(t *testing.T) {
	color.NoColor = true
	reports := &fakeReports{}
	runner := cli.NewRunner(reports, &bytes.Buffer{}, 0)

	require.NoError(t, runner.Run(context.Background(), []string{"top"}))
	assert.Equal(t, report.DefaultTop, reports.lastLimit)

	require.NoError(t, runner.Run(context.Background(), []string{"class", "9"}))
	assert.Equal(t, "9", reports.lastClass)
	assert.Empty(t, reports.lastSection)
}

func TestRunner_Errors(t *testing.T) {
	runner := cli.NewRunner(&fakeReports{}, &bytes.Buffer{}, 5)
	ctx := context.Background()

	assert.ErrorIs(t, runner.Run(ctx, nil), cli.ErrUsage)
	assert.ErrorIs(t, runner.Run(ctx, []string{"grades"}), cli.ErrUsage)
	assert.ErrorIs(t, runner.Run(ctx, []string{"card"}), cli.ErrUsage)
	assert.ErrorIs(t, runner.Run(ctx, []string{"card", "abc"}), cli.ErrUsage)
	assert.ErrorIs(t, runner.Run(ctx, []string{"top", "x"}), cli.ErrUsage)
	assert.ErrorIs(t, runner.Run(ctx, []string{"card", "2"}), report.ErrStudentNotFound)
	assert.ErrorIs(t, runner.Run(ctx, []string{"top", "-1"}), analytics.ErrNegativeLimit)
}

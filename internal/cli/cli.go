// Package cli renders gradebook reports as terminal tables for reportctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gradebook/internal/analytics"
	"gradebook/internal/export"
	"gradebook/internal/grading"
	"gradebook/internal/report"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var ErrUsage = errors.New("usage")

const Usage = `usage: reportctl <command> [args]

commands:
  card <student-id>          report card for one student
  class <class> [section]    class report
  top [n]                    top performers across all classes
  subjects                   subject performance comparison`

// Reports is the slice of the report service the CLI needs.
type Reports interface {
	ReportCard(ctx context.Context, studentID int) (report.ReportCard, error)
	ClassReport(ctx context.Context, class, section string, top int) (report.ClassReport, error)
	TopPerformers(ctx context.Context, limit int, class, section string) ([]analytics.RankedStudent, error)
	SubjectComparison(ctx context.Context) ([]analytics.SubjectStats, error)
}

type Runner struct {
	reports Reports
	out     io.Writer
	top     int

	title *color.Color
	good  *color.Color
	bad   *color.Color
}

// NewRunner writes to out. top is the default leaderboard size.
func NewRunner(reports Reports, out io.Writer, top int) *Runner {
	if top <= 0 {
		top = report.DefaultTop
	}
	return &Runner{
		reports: reports,
		out:     out,
		top:     top,
		title:   color.New(color.FgYellow, color.Bold),
		good:    color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
	}
}

// Run executes one command. Unknown commands and bad arguments wrap
// ErrUsage.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "card":
		if len(rest) != 1 {
			return fmt.Errorf("%w: card takes a student id", ErrUsage)
		}
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("%w: invalid student id %q", ErrUsage, rest[0])
		}
		card, err := r.reports.ReportCard(ctx, id)
		if err != nil {
			return err
		}
		r.printCard(card)
	case "class":
		if len(rest) < 1 || len(rest) > 2 {
			return fmt.Errorf("%w: class takes a class and an optional section", ErrUsage)
		}
		section := ""
		if len(rest) == 2 {
			section = rest[1]
		}
		cr, err := r.reports.ClassReport(ctx, rest[0], section, r.top)
		if err != nil {
			return err
		}
		r.printClass(cr)
	case "top":
		limit := r.top
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				return fmt.Errorf("%w: invalid limit %q", ErrUsage, rest[0])
			}
			limit = n
		}
		ranked, err := r.reports.TopPerformers(ctx, limit, "", "")
		if err != nil {
			return err
		}
		r.title.Fprintf(r.out, "\nTop %d Performers\n", limit)
		r.printRanking(ranked)
	case "subjects":
		stats, err := r.reports.SubjectComparison(ctx)
		if err != nil {
			return err
		}
		r.printSubjects(stats)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
	return nil
}

func (r *Runner) newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

func (r *Runner) status(s grading.Status) string {
	if s == grading.Pass {
		return r.good.Sprint(s)
	}
	return r.bad.Sprint(s)
}

func (r *Runner) printCard(card report.ReportCard) {
	h, s := card.Header, card.Summary
	r.title.Fprintf(r.out, "\nReport Card: %s (Class %s-%s)\n", h.Name, h.Class, h.Section)
	fmt.Fprintf(r.out, "Overall: %s  Grade: %s  Status: %s  Tier: %s  Trend: %s\n",
		export.Percent(s.OverallPercentage), s.OverallGrade, r.status(s.Status), card.Tier, card.Trend)

	table := r.newTable("Subject", "Marks", "Max", "Percentage", "Grade", "Status", "Date", "Type")
	for _, d := range s.SubjectDetails {
		table.Append([]string{
			d.Subject,
			export.Number(d.MarksObtained, 2),
			export.Number(d.MaxMarks, 2),
			export.Percent(d.Percentage),
			string(d.Grade),
			r.status(d.Status),
			d.AssessmentDate.Format("2006-01-02"),
			string(d.AssessmentType),
		})
	}
	table.Render()

	if len(card.Recommendations) > 0 {
		r.title.Fprintln(r.out, "\nRecommendations")
		for _, rec := range card.Recommendations {
			fmt.Fprintf(r.out, "  - %s\n", rec)
		}
	}
}

func (r *Runner) printClass(cr report.ClassReport) {
	m := cr.Metrics
	label := m.Class
	if m.Section != "" {
		label += "-" + m.Section
	}
	r.title.Fprintf(r.out, "\nClass Report: %s\n", label)

	table := r.newTable("Metric", "Value")
	table.AppendBulk([][]string{
		{"Students with marks", strconv.Itoa(m.TotalStudents)},
		{"Students without marks", strconv.Itoa(m.NoDataStudents)},
		{"Class average", export.Percent(m.ClassAverage)},
		{"Median", export.Percent(m.Median)},
		{"Highest", export.Percent(m.Highest)},
		{"Lowest", export.Percent(m.Lowest)},
		{"Pass / Fail", fmt.Sprintf("%d / %d", m.PassCount, m.FailCount)},
		{"Pass rate", export.Percent(m.PassPercentage)},
	})
	table.Render()

	r.title.Fprintln(r.out, "\nTop Performers")
	r.printRanking(cr.TopPerformers)

	if len(cr.Insights) > 0 {
		r.title.Fprintln(r.out, "\nInsights")
		fmt.Fprintf(r.out, "  - %s\n", strings.Join(cr.Insights, "\n  - "))
	}
}

func (r *Runner) printRanking(ranked []analytics.RankedStudent) {
	table := r.newTable("Rank", "Name", "Class", "Percentage", "Grade", "Status")
	for _, s := range ranked {
		table.Append([]string{
			strconv.Itoa(s.Rank),
			s.Name,
			s.Class + "-" + s.Section,
			export.Percent(s.Percentage),
			string(s.Grade),
			r.status(s.Status),
		})
	}
	table.Render()
}

func (r *Runner) printSubjects(stats []analytics.SubjectStats) {
	r.title.Fprintln(r.out, "\nSubject Performance")
	table := r.newTable("Subject", "Assessments", "Average", "Grade", "Highest", "Lowest", "Passed")
	for _, s := range stats {
		table.Append([]string{
			s.Subject,
			strconv.Itoa(s.TotalAssessments),
			export.Percent(s.AveragePercentage),
			string(s.Grade),
			export.Number(s.HighestMarks, 2),
			export.Number(s.LowestMarks, 2),
			strconv.Itoa(s.PassCount),
		})
	}
	table.Render()
}

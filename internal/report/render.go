package report

import (
	"fmt"
	"strconv"

	"gradebook/internal/analytics"
	"gradebook/internal/export"
	"gradebook/internal/validation"
)

var (
	ReportCardColumns = []string{
		"Subject", "Marks Obtained", "Maximum Marks", "Percentage",
		"Grade", "Status", "Assessment Date", "Assessment Type",
	}
	ClassReportColumns = []string{
		"Rank", "Student ID", "Name", "Class", "Section",
		"Percentage", "Grade", "Status", "Subjects",
	}
)

// ReportCardCSV writes one row per assessment, newest first.
func ReportCardCSV(card ReportCard) ([]byte, error) {
	rows := make([][]string, 0, len(card.Summary.SubjectDetails))
	for _, d := range card.Summary.SubjectDetails {
		rows = append(rows, []string{
			d.Subject,
			export.Plain(d.MarksObtained),
			export.Plain(d.MaxMarks),
			export.Plain(d.Percentage),
			string(d.Grade),
			string(d.Status),
			d.AssessmentDate.Format(validation.DateLayout),
			string(d.AssessmentType),
		})
	}
	return export.WriteCSV(ReportCardColumns, rows)
}

// classRanking ranks every student with data.
func classRanking(r ClassReport) []analytics.RankedStudent {
	ranked, _ := analytics.RankTopPerformers(r.StudentSummaries, len(r.StudentSummaries))
	return ranked
}

// ClassReportCSV writes the full class ranking.
func ClassReportCSV(r ClassReport) ([]byte, error) {
	ranked := classRanking(r)
	rows := make([][]string, 0, len(ranked))
	for _, s := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(s.Rank),
			strconv.Itoa(s.StudentID),
			s.Name,
			s.Class,
			s.Section,
			export.Plain(s.Percentage),
			string(s.Grade),
			string(s.Status),
			strconv.Itoa(s.TotalSubjects),
		})
	}
	return export.WriteCSV(ClassReportColumns, rows)
}

func classLabel(class, section string) string {
	if section == "" {
		return "Class " + class
	}
	return fmt.Sprintf("Class %s %s", class, section)
}

func ReportCardPDF(card ReportCard) ([]byte, error) {
	h := card.Header
	doc := export.NewDocument("Student Report Card", fmt.Sprintf("%s - %s", h.Name, classLabel(h.Class, h.Section)))

	doc.Section("Student")
	dob := "-"
	if !h.DateOfBirth.IsZero() {
		dob = h.DateOfBirth.Format(validation.DateLayout)
	}
	doc.KeyValues([][2]string{
		{"Student ID", strconv.Itoa(h.StudentID)},
		{"Name", h.Name},
		{"Class", h.Class},
		{"Section", h.Section},
		{"Date of Birth", dob},
	})

	s := card.Summary
	doc.Section("Summary")
	doc.KeyValues([][2]string{
		{"Total Marks", fmt.Sprintf("%s / %s", export.Number(s.TotalMarksObtained, 2), export.Number(s.TotalMaxMarks, 2))},
		{"Overall", export.Percent(s.OverallPercentage)},
		{"Grade", string(s.OverallGrade)},
		{"Status", string(s.Status)},
		{"Performance", string(card.Tier)},
		{"Trend", string(card.Trend)},
		{"Subjects", strconv.Itoa(s.TotalSubjects)},
		{"Assessments", strconv.Itoa(s.TotalAssessments)},
	})

	doc.Section("Assessments")
	rows := make([][]string, 0, len(s.SubjectDetails))
	for _, d := range s.SubjectDetails {
		rows = append(rows, []string{
			d.Subject,
			fmt.Sprintf("%s / %s", export.Number(d.MarksObtained, 2), export.Number(d.MaxMarks, 2)),
			export.Percent(d.Percentage),
			string(d.Grade),
			string(d.Status),
			d.AssessmentDate.Format(validation.DateLayout),
			string(d.AssessmentType),
		})
	}
	doc.Table(
		[]string{"Subject", "Marks", "Percentage", "Grade", "Status", "Date", "Type"},
		[]float64{0.24, 0.16, 0.13, 0.08, 0.1, 0.15, 0.14},
		rows,
	)

	if len(card.Strengths) > 0 {
		doc.Section("Strengths")
		doc.Bullets(detailLines(card.Strengths))
	}
	if len(card.Improvements) > 0 {
		doc.Section("Areas for Improvement")
		doc.Bullets(detailLines(card.Improvements))
	}
	if len(card.Recommendations) > 0 {
		doc.Section("Recommendations")
		doc.Bullets(card.Recommendations)
	}
	return doc.Bytes()
}

func detailLines(details []analytics.SubjectDetail) []string {
	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, fmt.Sprintf("%s: %s (%s)", d.Subject, export.Percent(d.Percentage), d.Grade))
	}
	return out
}

func ClassReportPDF(r ClassReport) ([]byte, error) {
	m := r.Metrics
	doc := export.NewDocument("Class Performance Report", classLabel(m.Class, m.Section))

	doc.Section("Metrics")
	doc.KeyValues([][2]string{
		{"Students", strconv.Itoa(m.TotalStudents)},
		{"Without Marks", strconv.Itoa(m.NoDataStudents)},
		{"Class Average", export.Percent(m.ClassAverage)},
		{"Median", export.Percent(m.Median)},
		{"Std Deviation", export.Number(m.StdDev, 2)},
		{"Highest", export.Percent(m.Highest)},
		{"Lowest", export.Percent(m.Lowest)},
		{"Pass Rate", export.Percent(m.PassPercentage)},
		{"Passed", strconv.Itoa(m.PassCount)},
		{"Failed", strconv.Itoa(m.FailCount)},
	})

	doc.Section("Grade Distribution")
	hist := make([][]string, 0, len(r.Histogram))
	for _, b := range r.Histogram {
		hist = append(hist, []string{string(b.Grade), strconv.Itoa(b.Count)})
	}
	doc.Table([]string{"Grade", "Students"}, []float64{0.5, 0.5}, hist)

	doc.Section("Ranking")
	ranked := classRanking(r)
	rows := make([][]string, 0, len(ranked))
	for _, s := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(s.Rank),
			s.Name,
			s.Section,
			export.Percent(s.Percentage),
			string(s.Grade),
			string(s.Status),
		})
	}
	doc.Table(
		[]string{"Rank", "Name", "Section", "Percentage", "Grade", "Status"},
		[]float64{0.08, 0.37, 0.1, 0.17, 0.12, 0.16},
		rows,
	)

	if len(r.Insights) > 0 {
		doc.Section("Insights")
		doc.Bullets(r.Insights)
	}
	return doc.Bytes()
}

// Package report assembles report cards and class reports from analytics
// summaries and serves them over HTTP and gRPC.
package report

import (
	"fmt"
	"sort"
	"time"

	"gradebook/internal/analytics"
	"gradebook/internal/grading"
)

const (
	strengthCount    = 3
	improvementCount = 3
	improvementBelow = 60.0
	recommendCount   = 2
	trendWindow      = 3
)

type Tier string

const (
	TierExcellent    Tier = "Excellent"
	TierGood         Tier = "Good"
	TierAverage      Tier = "Average"
	TierBelowAverage Tier = "Below Average"
)

// TierOf buckets an overall percentage.
func TierOf(pct float64) Tier {
	switch {
	case pct >= 80:
		return TierExcellent
	case pct >= 60:
		return TierGood
	case pct >= 40:
		return TierAverage
	default:
		return TierBelowAverage
	}
}

type Trend string

const (
	TrendImproving    Trend = "Improving"
	TrendDeclining    Trend = "Declining"
	TrendStable       Trend = "Stable"
	TrendInsufficient Trend = "Insufficient Data"
)

type Header struct {
	StudentID   int       `json:"student_id"`
	Name        string    `json:"name"`
	Class       string    `json:"class"`
	Section     string    `json:"section"`
	DateOfBirth time.Time `json:"date_of_birth"`
}

type GroupCount struct {
	Group string `json:"group"`
	Count int    `json:"count"`
}

type TypeCount struct {
	Type  analytics.AssessmentType `json:"type"`
	Count int                      `json:"count"`
}

type ReportCard struct {
	Header          Header                    `json:"header"`
	Summary         analytics.StudentSummary  `json:"summary"`
	Tier            Tier                      `json:"tier"`
	PassingSubjects int                       `json:"passing_subjects"`
	Strengths       []analytics.SubjectDetail `json:"strengths"`
	Improvements    []analytics.SubjectDetail `json:"improvement_areas"`
	Recommendations []string                  `json:"recommendations"`
	GradeGroups     []GroupCount              `json:"grade_groups"`
	AssessmentTypes []TypeCount               `json:"assessment_types"`
	Trend           Trend                     `json:"trend"`
	PassThreshold   float64                   `json:"pass_threshold"`
}

// BuildReportCard composes a report card with the default pass threshold.
func BuildReportCard(student analytics.Student, summary analytics.StudentSummary) ReportCard {
	return BuildReportCardWithPolicy(student, summary, grading.DefaultPolicy())
}

func BuildReportCardWithPolicy(student analytics.Student, summary analytics.StudentSummary, policy grading.Policy) ReportCard {
	details := summary.SubjectDetails

	card := ReportCard{
		Header: Header{
			StudentID:   student.ID,
			Name:        student.Name,
			Class:       student.Class,
			Section:     student.Section,
			DateOfBirth: student.DateOfBirth,
		},
		Summary:         summary,
		Tier:            TierOf(summary.OverallPercentage),
		Strengths:       []analytics.SubjectDetail{},
		Improvements:    []analytics.SubjectDetail{},
		Recommendations: []string{},
		Trend:           trendOf(details),
		PassThreshold:   policy.Threshold(),
	}

	// SubjectDetails is already in a deterministic order, so stable sorts
	// below keep ties reproducible.
	best := make([]analytics.SubjectDetail, len(details))
	copy(best, details)
	sort.SliceStable(best, func(i, j int) bool { return best[i].Percentage > best[j].Percentage })
	card.Strengths = append(card.Strengths, best[:min(strengthCount, len(best))]...)

	var weak []analytics.SubjectDetail
	for _, d := range details {
		if d.Percentage < improvementBelow {
			weak = append(weak, d)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Percentage < weak[j].Percentage })
	card.Improvements = append(card.Improvements, weak[:min(improvementCount, len(weak))]...)

	for _, d := range card.Improvements[:min(recommendCount, len(card.Improvements))] {
		if !policy.Passed(d.Percentage) {
			card.Recommendations = append(card.Recommendations, fmt.Sprintf("Focus on %s - currently failing", d.Subject))
		} else {
			card.Recommendations = append(card.Recommendations, fmt.Sprintf("Strengthen %s concepts", d.Subject))
		}
	}

	groups := make(map[string]int)
	types := make(map[analytics.AssessmentType]int)
	for _, d := range details {
		if policy.Passed(d.Percentage) {
			card.PassingSubjects++
		}
		groups[grading.Group(d.Grade)]++
		types[d.AssessmentType]++
	}
	for _, g := range grading.Groups() {
		card.GradeGroups = append(card.GradeGroups, GroupCount{Group: g, Count: groups[g]})
	}
	for _, t := range analytics.AssessmentTypes() {
		if n := types[t]; n > 0 {
			card.AssessmentTypes = append(card.AssessmentTypes, TypeCount{Type: t, Count: n})
		}
	}
	if card.AssessmentTypes == nil {
		card.AssessmentTypes = []TypeCount{}
	}

	return card
}

// trendOf compares the mean of the most recent assessments against the
// mean of the ones before them. details must be newest first.
func trendOf(details []analytics.SubjectDetail) Trend {
	if len(details) <= trendWindow {
		return TrendInsufficient
	}
	recent := details[:trendWindow]
	older := details[trendWindow:min(2*trendWindow, len(details))]

	recentAvg := meanPercentage(recent)
	olderAvg := meanPercentage(older)
	switch {
	case recentAvg > olderAvg:
		return TrendImproving
	case recentAvg < olderAvg:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func meanPercentage(details []analytics.SubjectDetail) float64 {
	if len(details) == 0 {
		return 0
	}
	var sum float64
	for _, d := range details {
		sum += d.Percentage
	}
	return sum / float64(len(details))
}

type BandCount struct {
	Grade grading.Band `json:"grade"`
	Count int          `json:"count"`
}

type ClassMetrics struct {
	Class          string  `json:"class"`
	Section        string  `json:"section,omitempty"`
	TotalStudents  int     `json:"total_students"`
	NoDataStudents int     `json:"no_data_students"`
	ClassAverage   float64 `json:"class_average"`
	Median         float64 `json:"median"`
	StdDev         float64 `json:"std_dev"`
	Highest        float64 `json:"highest"`
	Lowest         float64 `json:"lowest"`
	PassCount      int     `json:"pass_count"`
	FailCount      int     `json:"fail_count"`
	PassPercentage float64 `json:"pass_percentage"`
	PassThreshold  float64 `json:"pass_threshold"`
}

type ClassReport struct {
	Metrics          ClassMetrics               `json:"metrics"`
	Tier             Tier                       `json:"tier"`
	TopPerformers    []analytics.RankedStudent  `json:"top_performers"`
	Histogram        []BandCount                `json:"grade_histogram"`
	Insights         []string                   `json:"insights"`
	StudentSummaries []analytics.StudentSummary `json:"student_summaries"`
	NoData           []analytics.Student        `json:"no_data"`
}

// BuildClassReport composes class metrics, the top performers and a grade
// histogram over each student's overall grade. A negative topN is treated
// as zero.
func BuildClassReport(cs analytics.ClassSummary, topN int) ClassReport {
	if topN < 0 {
		topN = 0
	}
	// topN is non-negative here, so ranking cannot fail.
	top, _ := analytics.RankTopPerformers(cs.StudentSummaries, topN)

	counts := make(map[grading.Band]int)
	for _, s := range cs.StudentSummaries {
		counts[s.OverallGrade]++
	}
	histogram := make([]BandCount, 0, len(grading.Bands()))
	for _, b := range grading.Bands() {
		histogram = append(histogram, BandCount{Grade: b, Count: counts[b]})
	}

	report := ClassReport{
		Metrics: ClassMetrics{
			Class:          cs.Class,
			Section:        cs.Section,
			TotalStudents:  cs.TotalStudents,
			NoDataStudents: len(cs.NoData),
			ClassAverage:   cs.ClassAverage,
			Median:         cs.Median,
			StdDev:         cs.StdDev,
			Highest:        cs.Highest,
			Lowest:         cs.Lowest,
			PassCount:      cs.PassCount,
			FailCount:      cs.FailCount,
			PassPercentage: cs.PassPercentage,
			PassThreshold:  cs.PassThreshold,
		},
		Tier:             TierOf(cs.ClassAverage),
		TopPerformers:    top,
		Histogram:        histogram,
		Insights:         []string{},
		StudentSummaries: cs.StudentSummaries,
		NoData:           cs.NoData,
	}
	if report.StudentSummaries == nil {
		report.StudentSummaries = []analytics.StudentSummary{}
	}
	if report.NoData == nil {
		report.NoData = []analytics.Student{}
	}
	if cs.TotalStudents > 0 {
		report.Insights = classInsights(cs, counts)
	}
	return report
}

func classInsights(cs analytics.ClassSummary, counts map[grading.Band]int) []string {
	var out []string
	switch TierOf(cs.ClassAverage) {
	case TierExcellent:
		out = append(out, "Excellent class performance - average above 80%")
	case TierGood:
		out = append(out, "Good class performance - average above 60%")
	case TierAverage:
		out = append(out, "Average class performance - needs improvement")
	default:
		out = append(out, "Below average class performance - requires immediate attention")
	}

	switch {
	case cs.PassPercentage >= 90:
		out = append(out, "Excellent pass rate - 90%+ students passing")
	case cs.PassPercentage >= 75:
		out = append(out, "Good pass rate - most students performing well")
	case cs.PassPercentage >= 50:
		out = append(out, "Moderate pass rate - some students need support")
	default:
		out = append(out, "Low pass rate - many students failing, intervention needed")
	}

	total := float64(cs.TotalStudents)
	if float64(counts[grading.APlus]+counts[grading.A]) >= total*0.3 {
		out = append(out, "High achievers present - 30%+ students with A grades")
	}
	if counts[grading.F] == 0 {
		out = append(out, "No failing grades")
	} else if float64(counts[grading.F]) >= total*0.2 {
		out = append(out, "High failure rate - 20%+ students with F grades")
	}
	return out
}

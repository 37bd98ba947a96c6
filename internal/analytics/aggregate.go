package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gradebook/internal/grading"

	"github.com/montanaflynn/stats"
)

// SubjectDetail is one assessment row of a student summary.
type SubjectDetail struct {
	RecordID       int            `json:"record_id"`
	SubjectID      int            `json:"subject_id"`
	Subject        string         `json:"subject"`
	MarksObtained  float64        `json:"marks_obtained"`
	MaxMarks       float64        `json:"max_marks"`
	Percentage     float64        `json:"percentage"`
	Grade          grading.Band   `json:"grade"`
	Status         grading.Status `json:"status"`
	AssessmentDate time.Time      `json:"assessment_date"`
	AssessmentType AssessmentType `json:"assessment_type"`
}

// SubjectBreakdown collapses a student's assessments in one subject. The
// percentage is the mean of the assessment percentages.
type SubjectBreakdown struct {
	SubjectID     int          `json:"subject_id"`
	Subject       string       `json:"subject"`
	Assessments   int          `json:"assessments"`
	MarksObtained float64      `json:"marks_obtained"`
	MaxMarks      float64      `json:"max_marks"`
	Percentage    float64      `json:"percentage"`
	Grade         grading.Band `json:"grade"`
	LatestDate    time.Time    `json:"latest_date"`
}

type StudentSummary struct {
	StudentID          int                `json:"student_id"`
	StudentName        string             `json:"student_name"`
	Class              string             `json:"class"`
	Section            string             `json:"section"`
	TotalMarksObtained float64            `json:"total_marks_obtained"`
	TotalMaxMarks      float64            `json:"total_max_marks"`
	OverallPercentage  float64            `json:"overall_percentage"`
	OverallGrade       grading.Band       `json:"overall_grade"`
	Status             grading.Status     `json:"pass_fail_status"`
	TotalSubjects      int                `json:"total_subjects"`
	TotalAssessments   int                `json:"total_assessments"`
	SubjectDetails     []SubjectDetail    `json:"subject_details"`
	Subjects           []SubjectBreakdown `json:"subjects"`
}

type ClassSummary struct {
	Class            string           `json:"class"`
	Section          string           `json:"section,omitempty"`
	TotalStudents    int              `json:"total_students"`
	ClassAverage     float64          `json:"class_average"`
	Median           float64          `json:"median"`
	StdDev           float64          `json:"std_dev"`
	Highest          float64          `json:"highest"`
	Lowest           float64          `json:"lowest"`
	PassCount        int              `json:"pass_count"`
	FailCount        int              `json:"fail_count"`
	PassPercentage   float64          `json:"pass_percentage"`
	PassThreshold    float64          `json:"pass_threshold"`
	StudentSummaries []StudentSummary `json:"student_summaries"`
	NoData           []Student        `json:"no_data"`
}

// Aggregator resolves subject names and applies the pass policy.
type Aggregator struct {
	policy   grading.Policy
	subjects map[int]string
}

func NewAggregator(subjects []Subject, policy grading.Policy) *Aggregator {
	names := make(map[int]string, len(subjects))
	for _, s := range subjects {
		names[s.ID] = s.Name
	}
	return &Aggregator{policy: policy, subjects: names}
}

func (a *Aggregator) Policy() grading.Policy {
	return a.policy
}

func (a *Aggregator) subjectName(id int) string {
	if name, ok := a.subjects[id]; ok {
		return name
	}
	return fmt.Sprintf("Subject #%d", id)
}

// Student summarises records, which must all belong to student. Every record
// is counted as its own assessment.
func (a *Aggregator) Student(student Student, records []Record) StudentSummary {
	summary := StudentSummary{
		StudentID:      student.ID,
		StudentName:    student.Name,
		Class:          student.Class,
		Section:        student.Section,
		SubjectDetails: []SubjectDetail{},
		Subjects:       []SubjectBreakdown{},
	}

	bySubject := make(map[int]*SubjectBreakdown)
	pctSums := make(map[int]float64)

	for _, r := range records {
		pct := grading.Percentage(r.Obtained, r.Max)
		name := a.subjectName(r.SubjectID)

		summary.TotalMarksObtained += r.Obtained
		summary.TotalMaxMarks += r.Max
		summary.SubjectDetails = append(summary.SubjectDetails, SubjectDetail{
			RecordID:       r.ID,
			SubjectID:      r.SubjectID,
			Subject:        name,
			MarksObtained:  r.Obtained,
			MaxMarks:       r.Max,
			Percentage:     pct,
			Grade:          grading.Of(pct),
			Status:         a.policy.Status(pct),
			AssessmentDate: r.Date,
			AssessmentType: r.Type,
		})

		b, ok := bySubject[r.SubjectID]
		if !ok {
			b = &SubjectBreakdown{SubjectID: r.SubjectID, Subject: name}
			bySubject[r.SubjectID] = b
		}
		b.Assessments++
		b.MarksObtained += r.Obtained
		b.MaxMarks += r.Max
		pctSums[r.SubjectID] += pct
		if r.Date.After(b.LatestDate) {
			b.LatestDate = r.Date
		}
	}

	sort.SliceStable(summary.SubjectDetails, func(i, j int) bool {
		x, y := summary.SubjectDetails[i], summary.SubjectDetails[j]
		if !x.AssessmentDate.Equal(y.AssessmentDate) {
			return x.AssessmentDate.After(y.AssessmentDate)
		}
		if x.Subject != y.Subject {
			return x.Subject < y.Subject
		}
		return x.RecordID < y.RecordID
	})

	for id, b := range bySubject {
		b.Percentage = grading.Round(pctSums[id]/float64(b.Assessments), 1)
		b.Grade = grading.Of(b.Percentage)
		summary.Subjects = append(summary.Subjects, *b)
	}
	sort.Slice(summary.Subjects, func(i, j int) bool {
		if summary.Subjects[i].Subject != summary.Subjects[j].Subject {
			return summary.Subjects[i].Subject < summary.Subjects[j].Subject
		}
		return summary.Subjects[i].SubjectID < summary.Subjects[j].SubjectID
	})

	summary.TotalSubjects = len(bySubject)
	summary.TotalAssessments = len(records)
	if summary.TotalMaxMarks > 0 {
		summary.OverallPercentage = grading.Round(summary.TotalMarksObtained/summary.TotalMaxMarks*100, 2)
	}
	summary.OverallGrade = grading.Of(summary.OverallPercentage)
	summary.Status = a.policy.Status(summary.OverallPercentage)

	return summary
}

// Class summarises every student in students. Students without records are
// listed in NoData and excluded from all metrics. class_average is the mean
// of per-student overall percentages, not a pooled mean of raw marks.
func (a *Aggregator) Class(records []Record, students []Student) ClassSummary {
	summary := ClassSummary{
		PassThreshold:    a.policy.Threshold(),
		StudentSummaries: []StudentSummary{},
		NoData:           []Student{},
	}

	byStudent := make(map[int][]Record)
	for _, r := range records {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}

	ordered := make([]Student, len(students))
	copy(ordered, students)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Name != ordered[j].Name {
			return ordered[i].Name < ordered[j].Name
		}
		return ordered[i].ID < ordered[j].ID
	})

	var pcts stats.Float64Data
	for _, s := range ordered {
		recs := byStudent[s.ID]
		if len(recs) == 0 {
			summary.NoData = append(summary.NoData, s)
			continue
		}
		ss := a.Student(s, recs)
		summary.StudentSummaries = append(summary.StudentSummaries, ss)
		pcts = append(pcts, ss.OverallPercentage)
		if a.policy.Passed(ss.OverallPercentage) {
			summary.PassCount++
		} else {
			summary.FailCount++
		}
	}

	summary.TotalStudents = len(summary.StudentSummaries)
	if summary.TotalStudents == 0 {
		return summary
	}

	// stats only errors on empty input, which is excluded above.
	mean, _ := pcts.Mean()
	median, _ := pcts.Median()
	stddev, _ := pcts.StandardDeviationPopulation()
	maxPct, _ := pcts.Max()
	minPct, _ := pcts.Min()

	summary.ClassAverage = grading.Round(mean, 2)
	summary.Median = grading.Round(median, 2)
	summary.StdDev = grading.Round(stddev, 2)
	summary.Highest = maxPct
	summary.Lowest = minPct
	summary.PassPercentage = grading.Round(float64(summary.PassCount)/float64(summary.TotalStudents)*100, 2)

	return summary
}

// SubjectStats compares performance across all assessments of a subject.
type SubjectStats struct {
	SubjectID         int          `json:"subject_id"`
	Subject           string       `json:"subject"`
	TotalAssessments  int          `json:"total_assessments"`
	AverageMarks      float64      `json:"avg_marks"`
	AveragePercentage float64      `json:"avg_percentage"`
	Grade             grading.Band `json:"grade"`
	HighestMarks      float64      `json:"highest_marks"`
	LowestMarks       float64      `json:"lowest_marks"`
	PassCount         int          `json:"pass_count"`
}

// Subjects returns per-subject statistics over records, best average first.
func (a *Aggregator) Subjects(records []Record) []SubjectStats {
	type acc struct {
		marks stats.Float64Data
		pcts  stats.Float64Data
		pass  int
	}
	groups := make(map[int]*acc)
	for _, r := range records {
		g, ok := groups[r.SubjectID]
		if !ok {
			g = &acc{}
			groups[r.SubjectID] = g
		}
		pct := grading.Percentage(r.Obtained, r.Max)
		g.marks = append(g.marks, r.Obtained)
		g.pcts = append(g.pcts, pct)
		if a.policy.Passed(pct) {
			g.pass++
		}
	}

	out := make([]SubjectStats, 0, len(groups))
	for id, g := range groups {
		avgMarks, _ := g.marks.Mean()
		avgPct, _ := g.pcts.Mean()
		hi, _ := g.marks.Max()
		lo, _ := g.marks.Min()
		avgPct = grading.Round(avgPct, 1)
		out = append(out, SubjectStats{
			SubjectID:         id,
			Subject:           a.subjectName(id),
			TotalAssessments:  len(g.marks),
			AverageMarks:      grading.Round(avgMarks, 1),
			AveragePercentage: avgPct,
			Grade:             grading.Of(avgPct),
			HighestMarks:      hi,
			LowestMarks:       lo,
			PassCount:         g.pass,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AveragePercentage != out[j].AveragePercentage {
			return out[i].AveragePercentage > out[j].AveragePercentage
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

// ClassStats is one row of the class-wise comparison.
type ClassStats struct {
	Class             string  `json:"class"`
	Section           string  `json:"section"`
	TotalStudents     int     `json:"total_students"`
	StudentsWithMarks int     `json:"students_with_marks"`
	TotalAssessments  int     `json:"total_assessments"`
	AveragePercentage float64 `json:"avg_percentage"`
	PassCount         int     `json:"pass_count"`
	PassPercentage    float64 `json:"pass_percentage"`
}

// Classes groups students by class and section and summarises each group.
func (a *Aggregator) Classes(records []Record, students []Student) []ClassStats {
	type key struct{ class, section string }
	groups := make(map[key][]Student)
	for _, s := range students {
		k := key{s.Class, s.Section}
		groups[k] = append(groups[k], s)
	}

	byStudent := make(map[int][]Record)
	for _, r := range records {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}

	out := make([]ClassStats, 0, len(groups))
	for k, members := range groups {
		var recs []Record
		for _, m := range members {
			recs = append(recs, byStudent[m.ID]...)
		}
		cs := a.Class(recs, members)
		out = append(out, ClassStats{
			Class:             k.class,
			Section:           k.section,
			TotalStudents:     len(members),
			StudentsWithMarks: cs.TotalStudents,
			TotalAssessments:  len(recs),
			AveragePercentage: cs.ClassAverage,
			PassCount:         cs.PassCount,
			PassPercentage:    cs.PassPercentage,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return compareClass(out[i].Class, out[j].Class)
		}
		return out[i].Section < out[j].Section
	})
	return out
}

// compareClass orders "9" before "10" while keeping non-numeric names lexical.
func compareClass(x, y string) bool {
	if len(x) != len(y) && isDigits(x) && isDigits(y) {
		return len(x) < len(y)
	}
	return x < y
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// Overview holds system-wide counts.
type Overview struct {
	TotalStudents      int     `json:"total_students"`
	TotalSubjects      int     `json:"total_subjects"`
	TotalAssessments   int     `json:"total_assessments"`
	StudentsWithMarks  int     `json:"students_with_marks"`
	AveragePercentage  float64 `json:"avg_percentage"`
	AssessmentPassRate float64 `json:"assessment_pass_rate"`
}

// Overview reports counts across everything. The pass rate is over
// individual assessments, not students.
func (a *Aggregator) Overview(records []Record, students []Student) Overview {
	o := Overview{
		TotalStudents:    len(students),
		TotalSubjects:    len(a.subjects),
		TotalAssessments: len(records),
	}
	if len(records) == 0 {
		return o
	}

	seen := make(map[int]struct{})
	var pcts stats.Float64Data
	passing := 0
	for _, r := range records {
		seen[r.StudentID] = struct{}{}
		pct := grading.Percentage(r.Obtained, r.Max)
		pcts = append(pcts, pct)
		if a.policy.Passed(pct) {
			passing++
		}
	}
	mean, _ := pcts.Mean()

	o.StudentsWithMarks = len(seen)
	o.AveragePercentage = grading.Round(mean, 1)
	o.AssessmentPassRate = grading.Round(float64(passing)/float64(len(records))*100, 1)
	return o
}

package analytics

import (
	"errors"
	"sort"

	"gradebook/internal/grading"
)

var ErrNegativeLimit = errors.New("limit must not be negative")

// RankedStudent is one leaderboard entry. Rank is 1-based and sequential:
// equal percentages still get distinct ranks.
type RankedStudent struct {
	Rank          int            `json:"rank"`
	Percentile    float64        `json:"percentile"`
	StudentID     int            `json:"student_id"`
	Name          string         `json:"name"`
	Class         string         `json:"class"`
	Section       string         `json:"section"`
	Percentage    float64        `json:"percentage"`
	Grade         grading.Band   `json:"grade"`
	Status        grading.Status `json:"status"`
	TotalSubjects int            `json:"total_subjects"`
}

// RankTopPerformers orders summaries by overall percentage descending, then
// name ascending, then student id ascending, and returns the first limit
// entries. Percentiles are computed over the whole input.
func RankTopPerformers(summaries []StudentSummary, limit int) ([]RankedStudent, error) {
	if limit < 0 {
		return nil, ErrNegativeLimit
	}

	sorted := make([]StudentSummary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		x, y := sorted[i], sorted[j]
		if x.OverallPercentage != y.OverallPercentage {
			return x.OverallPercentage > y.OverallPercentage
		}
		if x.StudentName != y.StudentName {
			return x.StudentName < y.StudentName
		}
		return x.StudentID < y.StudentID
	})

	n := len(sorted)
	if limit > n {
		limit = n
	}

	out := make([]RankedStudent, 0, limit)
	for i := 0; i < limit; i++ {
		s := sorted[i]
		rank := i + 1
		out = append(out, RankedStudent{
			Rank:          rank,
			Percentile:    percentile(rank, n),
			StudentID:     s.StudentID,
			Name:          s.StudentName,
			Class:         s.Class,
			Section:       s.Section,
			Percentage:    s.OverallPercentage,
			Grade:         s.OverallGrade,
			Status:        s.Status,
			TotalSubjects: s.TotalSubjects,
		})
	}
	return out, nil
}

func percentile(rank, n int) float64 {
	if n <= 1 {
		return 100
	}
	return grading.Round(100*(1-float64(rank-1)/float64(n-1)), 2)
}

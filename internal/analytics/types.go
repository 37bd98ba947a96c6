// Package analytics aggregates mark records into student and class summaries
// and ranks students by overall percentage. Everything here is a pure
// function of its inputs.
package analytics

import (
	"fmt"
	"strings"
	"time"
)

type AssessmentType string

const (
	Quiz       AssessmentType = "Quiz"
	Assignment AssessmentType = "Assignment"
	Midterm    AssessmentType = "Midterm"
	Final      AssessmentType = "Final"
)

// AssessmentTypes lists the recognised types in display order.
func AssessmentTypes() []AssessmentType {
	return []AssessmentType{Quiz, Assignment, Midterm, Final}
}

func (t AssessmentType) Valid() bool {
	switch t {
	case Quiz, Assignment, Midterm, Final:
		return true
	}
	return false
}

// ParseAssessmentType matches s case-insensitively. An empty string yields
// Assignment.
func ParseAssessmentType(s string) (AssessmentType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Assignment, nil
	}
	for _, t := range AssessmentTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown assessment type %q", s)
}

// Record is one assessment result.
type Record struct {
	ID        int
	StudentID int
	SubjectID int
	Obtained  float64
	Max       float64
	Date      time.Time
	Type      AssessmentType
}

type Student struct {
	ID          int
	Name        string
	Class       string
	Section     string
	DateOfBirth time.Time
}

type Subject struct {
	ID   int
	Name string
}

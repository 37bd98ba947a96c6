package validation_test

import (
	"testing"
	"time"

	"gradebook/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type studentReq struct {
	Name        string `validate:"required,min=2,max=100,personname"`
	Class       string `validate:"required,max=10,alphanum"`
	Section     string `validate:"required,max=5,alphanum"`
	DateOfBirth string `validate:"required,datetime=2006-01-02,studentage"`
}

func TestNew_StudentRules(t *testing.T) {
	t.Cleanup(validation.SetNow(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)))
	v := validation.New()

	valid := studentReq{Name: "Asha Rao", Class: "10", Section: "A", DateOfBirth: "2010-03-04"}
	require.NoError(t, v.Struct(valid))

	tests := []struct {
		name   string
		mutate func(*studentReq)
		want   string
	}{
		{"DigitsInName", func(r *studentReq) { r.Name = "R2D2" }, "name can only contain letters and spaces"},
		{"ShortName", func(r *studentReq) { r.Name = "A" }, "name must be at least 2"},
		{"LongClass", func(r *studentReq) { r.Class = "ABCDEFGHIJK" }, "class must be at most 10"},
		{"SectionSymbols", func(r *studentReq) { r.Section = "A-1" }, "section must be alphanumeric"},
		{"TooYoung", func(r *studentReq) { r.DateOfBirth = "2022-01-01" }, "age between 3 and 25"},
		{"TooOld", func(r *studentReq) { r.DateOfBirth = "1990-01-01" }, "age between 3 and 25"},
		{"BadFormat", func(r *studentReq) { r.DateOfBirth = "04/03/2010" }, "YYYY-MM-DD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := v.Struct(req)
			require.Error(t, err)
			assert.Contains(t, validation.Message(err), tt.want)
		})
	}
}

func TestCheckAssessmentDate(t *testing.T) {
	t.Cleanup(validation.SetNow(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)))

	assert.NoError(t, validation.CheckAssessmentDate("2024-06-01"))
	assert.NoError(t, validation.CheckAssessmentDate("2020-01-01"))
	assert.ErrorContains(t, validation.CheckAssessmentDate("2024-06-02"), "future")
	assert.ErrorContains(t, validation.CheckAssessmentDate("2019-12-31"), "before 2020")
	assert.Error(t, validation.CheckAssessmentDate("yesterday"))
}

func TestCheckMarks(t *testing.T) {
	assert.NoError(t, validation.CheckMarks(0, 100))
	assert.NoError(t, validation.CheckMarks(1000, 1000))
	assert.ErrorContains(t, validation.CheckMarks(5, 0), "between 1 and 1000")
	assert.ErrorContains(t, validation.CheckMarks(5, 1001), "between 1 and 1000")
	assert.ErrorContains(t, validation.CheckMarks(-1, 10), "negative")
	assert.ErrorContains(t, validation.CheckMarks(11, 10), "cannot exceed")
}

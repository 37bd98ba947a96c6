// Package validation builds the request validator shared by the HTTP
// handlers and the ingest consumers.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"gradebook/internal/analytics"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

const (
	minAge = 3
	maxAge = 25
)

// EarliestAssessment is the first date an assessment may carry.
var EarliestAssessment = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

var personName = regexp.MustCompile(`^[A-Za-z ]+$`)

// now is swapped in tests.
var now = time.Now

// New returns a validator with the gradebook tags registered:
//
//	personname      letters and spaces only
//	studentage      a YYYY-MM-DD birth date giving an age of 3..25
//	assessmentdate  a YYYY-MM-DD date between 2020-01-01 and today
//	assessmenttype  Quiz, Assignment, Midterm, Final or empty
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	mustRegister(v, "personname", func(fl validator.FieldLevel) bool {
		return personName.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "studentage", func(fl validator.FieldLevel) bool {
		return CheckBirthDate(fl.Field().String()) == nil
	})
	mustRegister(v, "assessmentdate", func(fl validator.FieldLevel) bool {
		return CheckAssessmentDate(fl.Field().String()) == nil
	})
	mustRegister(v, "assessmenttype", func(fl validator.FieldLevel) bool {
		_, err := analytics.ParseAssessmentType(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func today() time.Time {
	y, m, d := now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckBirthDate rejects dates before 1900 and ages outside 3..25.
func CheckBirthDate(s string) error {
	dob, err := ParseDate(s)
	if err != nil {
		return err
	}
	if dob.Year() < 1900 {
		return errors.New("date of birth must be after 1900")
	}
	t := today()
	age := t.Year() - dob.Year()
	if t.Month() < dob.Month() || (t.Month() == dob.Month() && t.Day() < dob.Day()) {
		age--
	}
	if age < minAge || age > maxAge {
		return fmt.Errorf("student age must be between %d and %d years", minAge, maxAge)
	}
	return nil
}

// CheckAssessmentDate rejects future dates and dates before 2020.
func CheckAssessmentDate(s string) error {
	d, err := ParseDate(s)
	if err != nil {
		return err
	}
	return CheckAssessmentTime(d)
}

func CheckAssessmentTime(d time.Time) error {
	if d.After(today()) {
		return errors.New("assessment date cannot be in the future")
	}
	if d.Before(EarliestAssessment) {
		return errors.New("assessment date cannot be before 2020-01-01")
	}
	return nil
}

// CheckMarks enforces 1 <= max <= 1000 and 0 <= obtained <= max.
func CheckMarks(obtained, maxMarks float64) error {
	if maxMarks <= 0 || maxMarks > 1000 {
		return errors.New("maximum marks must be between 1 and 1000")
	}
	if obtained < 0 {
		return errors.New("marks obtained cannot be negative")
	}
	if obtained > maxMarks {
		return fmt.Errorf("marks obtained (%g) cannot exceed maximum marks (%g)", obtained, maxMarks)
	}
	return nil
}

// Message renders validator errors as one readable line.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldMessage(fe))
	}
	return strings.Join(parts, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s is out of range", field)
	case "alphanum":
		return field + " must be alphanumeric"
	case "personname":
		return field + " can only contain letters and spaces"
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	case "studentage":
		return fmt.Sprintf("%s must give an age between %d and %d years", field, minAge, maxAge)
	case "assessmentdate":
		return field + " must be between 2020-01-01 and today"
	case "assessmenttype":
		return field + " must be one of Quiz, Assignment, Midterm, Final"
	case "ltefield":
		return fmt.Sprintf("%s cannot exceed %s", field, strings.ToLower(fe.Param()))
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// Package grading maps percentages to letter grade bands and pass/fail status.
package grading

import (
	"errors"
	"fmt"
	"math"
)

type Band string

const (
	APlus Band = "A+"
	A     Band = "A"
	BPlus Band = "B+"
	B     Band = "B"
	CPlus Band = "C+"
	C     Band = "C"
	F     Band = "F"
)

type Status string

const (
	Pass Status = "Pass"
	Fail Status = "Fail"
)

// DefaultPassThreshold is the percentage at or above which a result passes.
const DefaultPassThreshold = 40.0

// Configurable range for the pass threshold.
const (
	MinPassThreshold = 30.0
	MaxPassThreshold = 50.0
)

var ErrThresholdOutOfRange = errors.New("pass threshold out of range")

// Threshold is an inclusive lower bound for a band.
type Threshold struct {
	Min  float64
	Band Band
}

// Table is checked from the top down; the first matching bound wins.
// Anything below the last bound is F.
var Table = []Threshold{
	{Min: 90, Band: APlus},
	{Min: 80, Band: A},
	{Min: 70, Band: BPlus},
	{Min: 60, Band: B},
	{Min: 50, Band: CPlus},
	{Min: 40, Band: C},
}

// Of returns the band for pct. Values outside [0,100] are classified by
// the same table.
func Of(pct float64) Band {
	for _, t := range Table {
		if pct >= t.Min {
			return t.Band
		}
	}
	return F
}

// Bands lists every band from best to worst.
func Bands() []Band {
	return []Band{APlus, A, BPlus, B, CPlus, C, F}
}

// Group collapses plus/minus variants: "A+/A", "B+/B", "C+/C" or "F".
func Group(b Band) string {
	switch b {
	case APlus, A:
		return "A+/A"
	case BPlus, B:
		return "B+/B"
	case CPlus, C:
		return "C+/C"
	default:
		return "F"
	}
}

// Groups lists the band groups in display order.
func Groups() []string {
	return []string{"A+/A", "B+/B", "C+/C", "F"}
}

// Percentage returns obtained/max*100 rounded to one decimal, or 0 when
// max is not positive.
func Percentage(obtained, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return Round(obtained/max*100, 1)
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Policy carries the configurable pass threshold. The band table is fixed.
type Policy struct {
	PassThreshold float64
}

// NewPolicy returns a policy passing at threshold, which must lie within
// MinPassThreshold..MaxPassThreshold.
func NewPolicy(threshold float64) (Policy, error) {
	if threshold < MinPassThreshold || threshold > MaxPassThreshold {
		return Policy{}, fmt.Errorf("%w: %.1f", ErrThresholdOutOfRange, threshold)
	}
	return Policy{PassThreshold: threshold}, nil
}

// DefaultPolicy passes at 40%.
func DefaultPolicy() Policy {
	return Policy{PassThreshold: DefaultPassThreshold}
}

func (p Policy) threshold() float64 {
	if p.PassThreshold <= 0 {
		return DefaultPassThreshold
	}
	return p.PassThreshold
}

// Threshold reports the effective pass threshold.
func (p Policy) Threshold() float64 {
	return p.threshold()
}

func (p Policy) Passed(pct float64) bool {
	return pct >= p.threshold()
}

func (p Policy) Status(pct float64) Status {
	if p.Passed(pct) {
		return Pass
	}
	return Fail
}

// StatusOf classifies pct against the default threshold.
func StatusOf(pct float64) Status {
	return DefaultPolicy().Status(pct)
}

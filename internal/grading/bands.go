// Package grading holds the pure numeric rules of the results engine:
// grade bands, component normalization, totals and mark distribution inference.
package grading

import (
	"math"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// Band is one row of the grading table.
type Band struct {
	Grade         string  `json:"grade"`
	Remark        string  `json:"remark"`
	MinPercentage float64 `json:"min_percentage"`
}

// bands is ordered highest threshold first; the last entry is the catch-all.
var bands = []Band{
	{Grade: "A", Remark: "Excellent", MinPercentage: 75},
	{Grade: "B", Remark: "Very Good", MinPercentage: 65},
	{Grade: "C", Remark: "Good", MinPercentage: 55},
	{Grade: "D", Remark: "Pass", MinPercentage: 45},
	{Grade: "E", Remark: "Weak Pass", MinPercentage: 40},
	{Grade: "F", Remark: "Fail", MinPercentage: 0},
}

// Bands returns a copy of the grading table.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// Resolve maps a percentage to its band. Non-finite input resolves to the lowest band.
func Resolve(percentage float64) Band {
	p := Clamp(percentage, 0, 100)
	for _, band := range bands {
		if band.MinPercentage <= p {
			return band
		}
	}
	return bands[len(bands)-1]
}

// ResolveMidterm grades a midterm score out of 50 on the shared table.
func ResolveMidterm(score float64) Band {
	return Resolve(score / models.ExamTypeMidterm.Scale() * 100)
}

// ResolveScore grades a raw score on the scale of examType.
func ResolveScore(examType models.ExamType, score float64) Band {
	if examType == models.ExamTypeMidterm {
		return ResolveMidterm(score)
	}
	return Resolve(score)
}

// Rank orders bands; a higher value is a better band.
func (b Band) Rank() int {
	for i, band := range bands {
		if band.Grade == b.Grade {
			return len(bands) - i
		}
	}
	return 0
}

// Clamp bounds v to [lo, hi]; NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

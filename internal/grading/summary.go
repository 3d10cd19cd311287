package grading

import "github.com/noah-isme/sma-results-api/internal/models"

// Summary holds the derived totals of a component list.
type Summary struct {
	Total      float64
	MaxScore   *float64
	Percentage *float64
}

// Summarize derives total, max and percentage. Total and MaxScore are the plain sums of the
// components; only Percentage is rounded. MaxScore is nil when no component carries one and
// Percentage is nil unless the max is positive.
func Summarize(components []models.ScoreComponent) Summary {
	var total, max float64
	hasMax := false
	for _, c := range components {
		total += c.Score
		if c.MaxScore != nil {
			max += *c.MaxScore
			hasMax = true
		}
	}

	summary := Summary{Total: total}
	if hasMax {
		m := max
		summary.MaxScore = &m
		if m > 0 {
			p := Round(total/m*100, 1)
			summary.Percentage = &p
		}
	}
	return summary
}

// ApplyTotals recomputes the derived fields of record from its components.
func ApplyTotals(record *models.ScoreRecord) {
	summary := Summarize(record.Components)
	record.TotalScore = summary.Total
	record.MaxScore = summary.MaxScore
	record.Percentage = summary.Percentage
}

// GradeRecord resolves the band of a stored record. Records without a usable max are graded
// on the raw score scale of their exam type.
func GradeRecord(record models.ScoreRecord) Band {
	if record.Percentage != nil {
		return Resolve(*record.Percentage)
	}
	return ResolveScore(record.ExamType, record.TotalScore)
}

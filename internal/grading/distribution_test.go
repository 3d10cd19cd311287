package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func sumTenths(weights []float64) int64 {
	var total int64
	for _, w := range weights {
		total += int64(math.Round(w * 10))
	}
	return total
}

func record(session string, term models.Term, exam models.ExamType, components ...models.ScoreComponent) models.ScoreRecord {
	return models.ScoreRecord{SessionID: session, Term: term, ExamType: exam, Components: components}
}

func TestInferDistributionScenario(t *testing.T) {
	records := []models.ScoreRecord{
		record("2024-2025", models.TermFirst, models.ExamTypeFinal,
			models.ScoreComponent{ComponentID: "ca1", Label: "CA1", Score: 18, MaxScore: ptr(20)},
			models.ScoreComponent{ComponentID: "exam", Label: "Exam", Score: 55, MaxScore: ptr(60)}),
		record("2024-2025", models.TermFirst, models.ExamTypeFinal,
			models.ScoreComponent{ComponentID: "ca1", Label: "CA1", Score: 12, MaxScore: ptr(20)},
			models.ScoreComponent{ComponentID: "exam", Label: "Exam", Score: 40, MaxScore: ptr(60)}),
	}

	groups := InferDistribution(records, "")
	require.Len(t, groups, 1)
	group := groups[0]
	assert.Equal(t, "2024-2025|FIRST|final", group.ID)
	assert.Equal(t, "First Term Final Examination", group.Title)
	assert.Equal(t, 2, group.RecordCount)
	assert.Equal(t, models.DistributionSourceInferred, group.Source)
	require.Len(t, group.Components, 2)
	assert.Equal(t, "ca1", group.Components[0].ComponentID)
	assert.Equal(t, 25.0, group.Components[0].Weight)
	assert.Equal(t, "exam", group.Components[1].ComponentID)
	assert.Equal(t, 75.0, group.Components[1].Weight)
}

func TestWeightsEqualSplitWhenNoMax(t *testing.T) {
	weights := Weights([]float64{0, 0, 0})
	assert.Equal(t, []float64{33.4, 33.3, 33.3}, weights)
	assert.Equal(t, int64(1000), sumTenths(weights))
}

func TestWeightsCorrectionGoesToLargestRawWeight(t *testing.T) {
	// raw: 16.666.., 16.666.., 66.666.. -> rounded 16.7 + 16.7 + 66.7 = 100.1
	weights := Weights([]float64{10, 10, 40})
	assert.Equal(t, []float64{16.7, 16.7, 66.6}, weights)

	// ties go to the first component
	weights = Weights([]float64{1, 1, 1, 1, 1, 1})
	assert.Equal(t, 16.5, weights[0])
	assert.Equal(t, int64(1000), sumTenths(weights))
}

func TestWeightsAlwaysSumToHundred(t *testing.T) {
	inputs := [][]float64{
		{20, 60},
		{7},
		{3, 3, 3},
		{1, 2, 3, 4, 5, 6, 7},
		{0.3, 0.3, 0.4, 99},
		{13, 0, 29, 0.5},
		{0, 0, 0, 0, 0, 0, 0},
	}
	for _, in := range inputs {
		weights := Weights(in)
		require.Len(t, weights, len(in))
		assert.Equal(t, int64(1000), sumTenths(weights), "input %v", in)
	}
	assert.Nil(t, Weights(nil))
}

func TestInferDistributionTermlessAndMissingMax(t *testing.T) {
	records := []models.ScoreRecord{
		record("2024-2025", "", models.ExamTypeMidterm,
			models.ScoreComponent{ComponentID: "test", Label: "Test", Score: 10},
			models.ScoreComponent{ComponentID: "quiz", Label: "Quiz", Score: 5, MaxScore: ptr(10)}),
	}

	groups := InferDistribution(records, "")
	require.Len(t, groups, 1)
	assert.Equal(t, "2024-2025|All Terms|midterm", groups[0].ID)
	assert.Equal(t, "All Terms Midterm Assessment", groups[0].Title)
	assert.Equal(t, 0.0, groups[0].Components[0].Weight)
	assert.Equal(t, 100.0, groups[0].Components[1].Weight)

	groups = InferDistribution(records, "SECOND")
	assert.Equal(t, "2024-2025|SECOND|midterm", groups[0].ID)
	assert.Equal(t, "Second Term Midterm Assessment", groups[0].Title)
}

func TestInferDistributionOrdersGroups(t *testing.T) {
	records := []models.ScoreRecord{
		record("2024-2025", models.TermSecond, models.ExamTypeFinal, models.ScoreComponent{ComponentID: "a"}),
		record("2024-2025", models.TermFirst, models.ExamTypeFinal, models.ScoreComponent{ComponentID: "a"}),
		record("2024-2025", models.TermFirst, models.ExamTypeMidterm, models.ScoreComponent{ComponentID: "a"}),
	}

	groups := InferDistribution(records, "")
	require.Len(t, groups, 3)
	assert.Equal(t, "2024-2025|FIRST|midterm", groups[0].ID)
	assert.Equal(t, "2024-2025|FIRST|final", groups[1].ID)
	assert.Equal(t, "2024-2025|SECOND|final", groups[2].ID)
	assert.Equal(t, 100.0, groups[0].Components[0].Weight)
}

func TestFromTemplateSortsByOrder(t *testing.T) {
	group := FromTemplate(models.MarkDistributionTemplate{
		SessionID: "2024-2025",
		Term:      models.TermThird,
		ExamType:  models.ExamTypeFinal,
		Components: []models.TemplateComponent{
			{ComponentID: "exam", Weight: 60, Order: 2},
			{ComponentID: "ca1", Label: "First CA", Weight: 40, Order: 1},
		},
	})

	assert.Equal(t, models.DistributionSourceTemplate, group.Source)
	assert.Equal(t, "Third Term Final Examination", group.Title)
	assert.Equal(t, "ca1", group.Components[0].ComponentID)
	assert.Equal(t, "exam", group.Components[1].Label)
}

package grading

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeComponentsFallbacks(t *testing.T) {
	raw := []map[string]interface{}{
		{"componentId": "ca1", "label": "CA 1", "score": 18.0, "maxScore": 20.0},
		{"component_id": "exam", "score": "55", "max_score": "60"},
		{"id": 7.0, "label": "Quiz", "score": "abc", "maxScore": "n/a"},
		{"label": "Project Work", "score": math.Inf(1)},
		{},
	}

	got := NormalizeComponents(raw)
	require.Len(t, got, 5)

	assert.Equal(t, "ca1", got[0].ComponentID)
	assert.Equal(t, "CA 1", got[0].Label)
	assert.Equal(t, 18.0, got[0].Score)
	require.NotNil(t, got[0].MaxScore)
	assert.Equal(t, 20.0, *got[0].MaxScore)

	assert.Equal(t, "exam", got[1].ComponentID)
	assert.Equal(t, "exam", got[1].Label)
	assert.Equal(t, 55.0, got[1].Score)
	require.NotNil(t, got[1].MaxScore)
	assert.Equal(t, 60.0, *got[1].MaxScore)

	assert.Equal(t, "component-7", got[2].ComponentID)
	assert.Equal(t, 0.0, got[2].Score)
	assert.Nil(t, got[2].MaxScore)

	assert.Equal(t, "component-project-work", got[3].ComponentID)
	assert.Equal(t, 0.0, got[3].Score)

	assert.Equal(t, "component-5", got[4].ComponentID)
	assert.Equal(t, "component-5", got[4].Label)
}

func TestNormalizeComponentsKeepsIDsUnique(t *testing.T) {
	raw := []map[string]interface{}{
		{"componentId": "ca", "score": 1.0},
		{"componentId": "ca", "score": 2.0},
		{"componentId": "ca-2", "score": 3.0},
		{"componentId": "ca", "score": 4.0},
	}

	got := NormalizeComponents(raw)
	ids := []string{got[0].ComponentID, got[1].ComponentID, got[2].ComponentID, got[3].ComponentID}
	assert.Equal(t, []string{"ca", "ca-2", "ca-2-2", "ca-3"}, ids)
}

func TestDecodeComponentsToleratesBadShapes(t *testing.T) {
	assert.Empty(t, DecodeComponents(nil))
	assert.Empty(t, DecodeComponents([]byte(`{"not":"a list"}`)))

	got := DecodeComponents([]byte(`[{"componentId":"ca1","score":"12.5"}, 42]`))
	require.Len(t, got, 2)
	assert.Equal(t, 12.5, got[0].Score)
	assert.Equal(t, "component-2", got[1].ComponentID)
}

func TestNumber(t *testing.T) {
	v, ok := Number(json.Number("3.5"))
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)

	_, ok = Number(math.NaN())
	assert.False(t, ok)

	_, ok = Number(true)
	assert.False(t, ok)

	v, ok = Number(" 12 ")
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)
}

package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-results-api/internal/models"
)

var idKeys = []string{"componentId", "component_id", "id"}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeComponents turns raw component entries into clean components.
// Entries are never dropped: malformed numbers degrade to 0 (score) or nil (maxScore),
// missing ids are generated and duplicate ids get a numeric suffix.
func NormalizeComponents(raw []map[string]interface{}) []models.ScoreComponent {
	out := make([]models.ScoreComponent, 0, len(raw))
	seen := make(map[string]int, len(raw))

	for i, entry := range raw {
		label := strings.TrimSpace(stringValue(entry["label"]))
		id := explicitID(entry)
		if id == "" {
			id = generatedID(entry, label, i)
		}
		if _, dup := seen[id]; dup {
			base := id
			for n := seen[base] + 1; ; n++ {
				candidate := fmt.Sprintf("%s-%d", base, n)
				if _, taken := seen[candidate]; !taken {
					seen[base] = n
					id = candidate
					break
				}
			}
		}
		if _, ok := seen[id]; !ok {
			seen[id] = 1
		}

		if label == "" {
			label = id
		}

		score, ok := Number(entry["score"])
		if !ok {
			score = 0
		}

		var maxScore *float64
		if v, ok := Number(firstPresent(entry, "maxScore", "max_score", "max")); ok {
			maxScore = &v
		}

		out = append(out, models.ScoreComponent{
			ComponentID: id,
			Label:       label,
			Score:       score,
			MaxScore:    maxScore,
		})
	}
	return out
}

// DecodeComponents parses a stored JSON list. Anything that is not a list of objects yields an empty list.
func DecodeComponents(data []byte) []models.ScoreComponent {
	if len(data) == 0 {
		return []models.ScoreComponent{}
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return []models.ScoreComponent{}
	}
	entries := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			entry = map[string]interface{}{}
		}
		entries = append(entries, entry)
	}
	return NormalizeComponents(entries)
}

// Number coerces numbers and numeric strings to a finite float64.
func Number(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func explicitID(entry map[string]interface{}) string {
	for _, key := range idKeys {
		v, ok := entry[key]
		if !ok || v == nil {
			continue
		}
		if _, numeric := Number(v); numeric && key == "id" {
			// numeric ids are positional handles from the UI, not component ids
			continue
		}
		if s := strings.TrimSpace(stringValue(v)); s != "" {
			return s
		}
	}
	return ""
}

func generatedID(entry map[string]interface{}, label string, index int) string {
	if n, ok := Number(entry["id"]); ok {
		return fmt.Sprintf("component-%d", int64(n))
	}
	if slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(label), "-"), "-"); slug != "" {
		return "component-" + slug
	}
	return fmt.Sprintf("component-%d", index+1)
}

func firstPresent(entry map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := entry[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

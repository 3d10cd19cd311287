package grading

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// AllTerms labels groups whose records carry no term.
const AllTerms = "All Terms"

type componentStat struct {
	id          string
	label       string
	totalMax    float64
	occurrences int
}

type groupKey struct {
	session  string
	term     string
	examType models.ExamType
}

// Weights turns average max scores into percentages rounded to one decimal that sum to exactly 100.
// Zero total max falls back to an equal split. The rounding difference is added to the component
// with the largest raw weight, the first one on ties.
func Weights(avgMax []float64) []float64 {
	n := len(avgMax)
	if n == 0 {
		return nil
	}

	var sum float64
	for _, v := range avgMax {
		if v > 0 {
			sum += v
		}
	}

	raw := make([]float64, n)
	for i, v := range avgMax {
		if sum > 0 {
			raw[i] = math.Max(v, 0) / sum * 100
		} else {
			raw[i] = 100 / float64(n)
		}
	}

	// tenths keeps the correction exact
	tenths := make([]int64, n)
	var total int64
	largest := 0
	for i, w := range raw {
		tenths[i] = int64(math.Round(w * 10))
		total += tenths[i]
		if w > raw[largest] {
			largest = i
		}
	}
	tenths[largest] += 1000 - total

	out := make([]float64, n)
	for i, t := range tenths {
		out[i] = float64(t) / 10
	}
	return out
}

// InferDistribution groups records by (session, term, exam type) and infers the weight of every
// component from the max scores teachers actually used. termFallback labels termless records;
// empty means "All Terms".
func InferDistribution(records []models.ScoreRecord, termFallback string) []models.MarkDistributionGroup {
	if termFallback == "" {
		termFallback = AllTerms
	}

	order := []groupKey{}
	stats := map[groupKey][]*componentStat{}
	index := map[groupKey]map[string]*componentStat{}
	counts := map[groupKey]int{}

	for _, record := range records {
		term := string(record.Term)
		if term == "" {
			term = termFallback
		}
		key := groupKey{session: record.SessionID, term: term, examType: record.ExamType}
		if _, ok := index[key]; !ok {
			order = append(order, key)
			index[key] = map[string]*componentStat{}
		}
		counts[key]++

		for _, c := range record.Components {
			stat, ok := index[key][c.ComponentID]
			if !ok {
				stat = &componentStat{id: c.ComponentID, label: c.Label}
				index[key][c.ComponentID] = stat
				stats[key] = append(stats[key], stat)
			}
			stat.occurrences++
			if c.MaxScore != nil && *c.MaxScore > 0 {
				stat.totalMax += *c.MaxScore
			}
		}
	}

	groups := make([]models.MarkDistributionGroup, 0, len(order))
	for _, key := range order {
		componentStats := stats[key]
		avgMax := make([]float64, len(componentStats))
		for i, stat := range componentStats {
			avgMax[i] = stat.totalMax / float64(stat.occurrences)
		}
		weights := Weights(avgMax)

		components := make([]models.DistributionComponent, len(componentStats))
		for i, stat := range componentStats {
			avg := Round(avgMax[i], 2)
			components[i] = models.DistributionComponent{
				ComponentID:     stat.id,
				Label:           stat.label,
				Weight:          weights[i],
				AverageMaxScore: &avg,
			}
		}

		groups = append(groups, models.MarkDistributionGroup{
			ID:          GroupID(key.session, key.term, key.examType),
			Title:       GroupTitle(key.term, key.examType),
			SessionID:   key.session,
			Term:        key.term,
			ExamType:    key.examType,
			Source:      models.DistributionSourceInferred,
			RecordCount: counts[key],
			Components:  components,
		})
	}

	SortGroups(groups)
	return groups
}

// FromTemplate renders an admin template as a distribution group.
func FromTemplate(t models.MarkDistributionTemplate) models.MarkDistributionGroup {
	components := make([]models.TemplateComponent, len(t.Components))
	copy(components, t.Components)
	sort.SliceStable(components, func(i, j int) bool { return components[i].Order < components[j].Order })

	out := make([]models.DistributionComponent, len(components))
	for i, c := range components {
		label := c.Label
		if label == "" {
			label = c.ComponentID
		}
		out[i] = models.DistributionComponent{ComponentID: c.ComponentID, Label: label, Weight: c.Weight}
	}

	term := string(t.Term)
	return models.MarkDistributionGroup{
		ID:         GroupID(t.SessionID, term, t.ExamType),
		Title:      GroupTitle(term, t.ExamType),
		SessionID:  t.SessionID,
		Term:       term,
		ExamType:   t.ExamType,
		Source:     models.DistributionSourceTemplate,
		Components: out,
	}
}

// GroupID is the stable id session|term|examType.
func GroupID(session, term string, examType models.ExamType) string {
	if term == "" {
		term = AllTerms
	}
	return strings.Join([]string{session, term, string(examType)}, "|")
}

// GroupTitle builds titles such as "First Term Midterm Assessment".
func GroupTitle(term string, examType models.ExamType) string {
	label := AllTerms
	if parsed, ok := models.ParseTerm(term); ok {
		label = parsed.Label()
	} else if term != "" && term != AllTerms {
		label = term
	}
	return label + " " + examType.Title()
}

// SortGroups orders groups by session, term and exam type (midterm first).
func SortGroups(groups []models.MarkDistributionGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		if ta, tb := termOrder(a.Term), termOrder(b.Term); ta != tb {
			return ta < tb
		}
		return examOrder(a.ExamType) < examOrder(b.ExamType)
	})
}

func termOrder(term string) int {
	if parsed, ok := models.ParseTerm(term); ok {
		for i, t := range models.Terms {
			if t == parsed {
				return i
			}
		}
	}
	return len(models.Terms)
}

func examOrder(e models.ExamType) int {
	if e == models.ExamTypeMidterm {
		return 0
	}
	return 1
}

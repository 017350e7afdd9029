package pipeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/abhisek/skillprobe/internal/grader"
)

// Thresholds for the rule-based recommendations.
const (
	practiceBelow      = 0.6
	easierItemsBelow   = -0.3
	readingBelow       = 0.6
	conceptMapBelow    = 0.5
	lowConfidenceBelow = 0.5
)

// Dashboard is the learner-facing summary of one assessment.
// Floats are rounded to three decimals.
type Dashboard struct {
	AbilityEstimate float64            `json:"ability_estimate"`
	AbilitySE       *float64           `json:"ability_se"` // nil until estimable
	Mastery         map[string]float64 `json:"mastery"`
	LLMScores       map[string]float64 `json:"llm_scores"`
	LLMOverall      float64            `json:"llm_overall"`
	SelfAssessment  map[string]float64 `json:"self_assessment"`
	ConceptMapScore float64            `json:"concept_map_score"`
	Recommendations []string           `json:"recommendations"`
}

func buildDashboard(res *Result) Dashboard {
	d := Dashboard{
		AbilityEstimate: round3(res.Session.Theta),
		Mastery:         roundAll(res.Mastery),
		LLMScores:       roundAll(res.Scores),
		LLMOverall:      round3(res.Overall),
		SelfAssessment:  roundAll(res.SelfScores),
		ConceptMapScore: round3(res.ConceptMap),
		Recommendations: Recommendations(res),
	}
	if res.Session.Estimable() {
		se := round3(res.Session.SE)
		d.AbilitySE = &se
	}
	return d
}

// Recommendations applies the threshold rules to an unrounded result.
// Skills are visited in ascending id order. When no rule fires a single
// keep-progressing message is returned.
func Recommendations(res *Result) []string {
	var out []string

	for _, skill := range sortedKeys(res.Mastery) {
		if m := res.Mastery[skill]; m < practiceBelow {
			out = append(out, fmt.Sprintf("Practice more %s items (mastery %.2f).", skill, m))
		}
	}
	if res.Session.Theta < easierItemsBelow {
		out = append(out, "Assign easier items to rebuild the fundamentals before moving on.")
	}
	if fa, ok := res.Scores[grader.FactualAccuracy]; ok && fa < readingBelow {
		out = append(out, "Targeted reading: review the reference material to fix factual gaps.")
	}
	if res.ConceptMap < conceptMapBelow {
		out = append(out, "Concept-map activity: connect the key concepts and how they relate.")
	}
	var shaky []string
	for _, skill := range sortedKeys(res.SelfScores) {
		if res.SelfScores[skill] < lowConfidenceBelow {
			shaky = append(shaky, skill)
		}
	}
	if len(shaky) > 0 {
		out = append(out, fmt.Sprintf("Confidence-building: low self-rating for %v; start with short wins.", shaky))
	}

	if len(out) == 0 {
		out = append(out, "Keep progressing: you are on track.")
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func roundAll(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = round3(v)
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

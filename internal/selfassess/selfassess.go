// Package selfassess scores self-reported confidence and concept maps.
// Both scorers are pure functions of their input.
package selfassess

import "strings"

// SelfAssessment holds a learner's 1–5 Likert confidence per skill.
type SelfAssessment map[string]int

// ToScores rescales each Likert value to [0, 1] as (v-1)/4.
// Values outside 1–5 are a caller error and are not clamped.
func (s SelfAssessment) ToScores() map[string]float64 {
	out := make(map[string]float64, len(s))
	for skill, v := range s {
		out[skill] = float64(v-1) / 4
	}
	return out
}

// Edge is a directed link between two concepts.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

func (e Edge) key() Edge {
	return Edge{From: strings.ToLower(e.From), To: strings.ToLower(e.To)}
}

// noRequirementScore is returned when nothing is required.
const noRequirementScore = 0.5

// ScoreConceptMap returns the share of required edges present in edges.
// Matching ignores case but not direction, and duplicate required edges
// count once. With no required edges the score is 0.5.
func ScoreConceptMap(edges, required []Edge) float64 {
	need := make(map[Edge]bool, len(required))
	for _, e := range required {
		need[e.key()] = true
	}
	if len(need) == 0 {
		return noRequirementScore
	}

	have := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		have[e.key()] = true
	}

	hits := 0
	for e := range need {
		if have[e] {
			hits++
		}
	}
	return float64(hits) / float64(len(need))
}

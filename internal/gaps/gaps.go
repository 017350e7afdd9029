// Package gaps turns assessment results into prioritized learning gaps
// and content discovery queries.
package gaps

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/abhisek/skillprobe/internal/mastery"
)

// Priority ranks how urgently a gap should be addressed.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities: high sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Difficulty is the level of material recommended for a gap.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

const (
	// gapBelow is the mastery under which a skill counts as a gap.
	gapBelow = 0.8

	minMinutes = 15
	maxMinutes = 120
)

// LearningGap is one actionable weakness.
type LearningGap struct {
	Skill      string     `json:"skill"`
	Mastery    float64    `json:"mastery"`
	Theta      float64    `json:"theta"`
	Priority   Priority   `json:"priority"`
	Difficulty Difficulty `json:"recommended_difficulty"`
	Minutes    int        `json:"estimated_minutes"`
	Rationale  string     `json:"rationale"`
}

// PriorityFor classifies mastery: < 0.4 high, < 0.6 medium, else low.
func PriorityFor(m float64) Priority {
	switch {
	case m < 0.4:
		return PriorityHigh
	case m < 0.6:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// DifficultyForMastery maps mastery: < 0.4 beginner, < 0.7 intermediate,
// else advanced.
func DifficultyForMastery(m float64) Difficulty {
	switch {
	case m < 0.4:
		return Beginner
	case m < 0.7:
		return Intermediate
	default:
		return Advanced
	}
}

// DifficultyForTheta maps ability: < -0.5 beginner, < 0.5 intermediate,
// else advanced.
func DifficultyForTheta(theta float64) Difficulty {
	switch {
	case theta < -0.5:
		return Beginner
	case theta < 0.5:
		return Intermediate
	default:
		return Advanced
	}
}

// EstimateMinutes is round(300·(1-m)) clamped to [15, 120].
func EstimateMinutes(m float64) int {
	minutes := int(math.Round(300 * (1 - m)))
	return max(minMinutes, min(maxMinutes, minutes))
}

// Identify returns a gap for every skill with mastery below 0.8, ordered by
// priority and then by ascending mastery. Equal keys keep ascending skill id
// order.
func Identify(state mastery.State, theta float64) []LearningGap {
	var out []LearningGap
	for _, skill := range state.Skills() {
		m := state[skill]
		if m >= gapBelow {
			continue
		}
		p := PriorityFor(m)
		out = append(out, LearningGap{
			Skill:      skill,
			Mastery:    m,
			Theta:      theta,
			Priority:   p,
			Difficulty: DifficultyForMastery(m),
			Minutes:    EstimateMinutes(m),
			Rationale:  rationale(skill, m, p),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Mastery < out[j].Mastery
	})
	return out
}

func rationale(skill string, m float64, p Priority) string {
	switch p {
	case PriorityHigh:
		return fmt.Sprintf("%s mastery is %.2f; foundations need work before moving on.", skill, m)
	case PriorityMedium:
		return fmt.Sprintf("%s mastery is %.2f; partial understanding, more practice needed.", skill, m)
	default:
		return fmt.Sprintf("%s mastery is %.2f; close to mastered, polish with harder practice.", skill, m)
	}
}

// Query is a content discovery request for one gap.
type Query struct {
	Text       string     `json:"query"`
	Difficulty Difficulty `json:"difficulty"`
	TimeBudget int        `json:"time_budget"`
}

var querySuffix = []string{"tutorial", "practice", "exercises"}

// CreateDiscoveryQueries builds one query per gap, in gap order:
// "<skill> [context] tutorial practice exercises".
func CreateDiscoveryQueries(gaps []LearningGap, context string) []Query {
	out := make([]Query, 0, len(gaps))
	for _, g := range gaps {
		terms := []string{g.Skill}
		if c := strings.TrimSpace(context); c != "" {
			terms = append(terms, c)
		}
		terms = append(terms, querySuffix...)
		out = append(out, Query{
			Text:       strings.Join(terms, " "),
			Difficulty: g.Difficulty,
			TimeBudget: g.Minutes,
		})
	}
	return out
}

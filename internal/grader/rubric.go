package grader

import (
	"fmt"
	"sort"
)

// FactualAccuracy is the criterion the dashboard checks for targeted reading.
const FactualAccuracy = "factual_accuracy"

// Rubric is a weighted set of grading criteria. Weights need not sum to 1;
// they are normalized at grading time.
type Rubric struct {
	// Criteria maps criterion name to the keywords that evidence it.
	Criteria map[string][]string `json:"criteria" yaml:"criteria"`

	// Weights maps criterion name to its relative weight. A criterion with a
	// missing or non-positive weight does not contribute to the overall score.
	Weights map[string]float64 `json:"weights" yaml:"weights"`
}

// DefaultRubric is used when an assessment supplies no rubric of its own.
// With no keywords every criterion falls back to the neutral 0.5.
func DefaultRubric() Rubric {
	return Rubric{
		Criteria: map[string][]string{
			FactualAccuracy: nil,
			"completeness":  nil,
			"clarity":       nil,
		},
		Weights: map[string]float64{
			FactualAccuracy: 0.5,
			"completeness":  0.3,
			"clarity":       0.2,
		},
	}
}

// Names returns the criterion names in ascending order.
func (r Rubric) Names() []string {
	names := make([]string, 0, len(r.Criteria))
	for name := range r.Criteria {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether the rubric has no criteria.
func (r Rubric) Empty() bool {
	return len(r.Criteria) == 0
}

// Validate rejects negative weights and weights for unknown criteria.
// Grading itself tolerates both; loaders call this to catch typos.
func (r Rubric) Validate() error {
	for name, w := range r.Weights {
		if _, ok := r.Criteria[name]; !ok {
			return fmt.Errorf("rubric weight for unknown criterion %q", name)
		}
		if w < 0 {
			return fmt.Errorf("rubric criterion %q: negative weight %g", name, w)
		}
	}
	return nil
}

// Overall computes Σ w·s / Σ w over criteria with a positive weight.
// Returns 0 when no criterion carries weight.
func (r Rubric) Overall(scores map[string]float64) float64 {
	var num, den float64
	for _, name := range r.Names() {
		w := r.Weights[name]
		if w <= 0 {
			continue
		}
		num += w * scores[name]
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Package grader scores free-text responses against a weighted rubric.
//
// A Grader delegates to a TextScorer when one is configured and otherwise
// uses a deterministic keyword-overlap fallback that needs no network.
package grader

import (
	"context"
	"fmt"
)

// TextScorer scores a response per criterion, each score in [0, 1].
// Criteria it leaves out score 0.
type TextScorer func(ctx context.Context, response string) (map[string]float64, error)

// Grader grades free text. The zero value uses the keyword fallback.
type Grader struct {
	scorer TextScorer
}

// New creates a grader. A nil scorer selects the keyword fallback.
func New(scorer TextScorer) *Grader {
	return &Grader{scorer: scorer}
}

// UsesFallback reports whether grading is done by keyword overlap.
func (g *Grader) UsesFallback() bool {
	return g == nil || g.scorer == nil
}

// Grade returns the weight-normalized overall score and the per-criterion
// scores. Errors from a configured scorer are returned; the fallback is
// never substituted for a scorer that failed.
func (g *Grader) Grade(ctx context.Context, response string, rubric Rubric, reference string) (float64, map[string]float64, error) {
	if g.UsesFallback() {
		scores := KeywordScores(response, rubric, reference)
		return rubric.Overall(scores), scores, nil
	}

	raw, err := g.scorer(ctx, response)
	if err != nil {
		return 0, nil, fmt.Errorf("score response: %w", err)
	}
	scores := make(map[string]float64, len(rubric.Criteria))
	for name := range rubric.Criteria {
		scores[name] = raw[name]
	}
	return rubric.Overall(scores), scores, nil
}

// Package pipeline runs one full assessment: the adaptive test, mastery
// updates, free-text grading and self-report scoring, and assembles the
// learner dashboard.
package pipeline

import (
	"context"
	"fmt"

	"github.com/abhisek/skillprobe/internal/cat"
	"github.com/abhisek/skillprobe/internal/grader"
	"github.com/abhisek/skillprobe/internal/item"
	"github.com/abhisek/skillprobe/internal/mastery"
	"github.com/abhisek/skillprobe/internal/selfassess"
)

// Input is everything one assessment needs from the caller.
type Input struct {
	FreeText  string
	Reference string

	// Rubric grades FreeText. An empty rubric selects grader.DefaultRubric.
	Rubric grader.Rubric

	// Scorer overrides the keyword fallback when set.
	Scorer grader.TextScorer

	SelfAssessment selfassess.SelfAssessment
	ConceptEdges   []selfassess.Edge
	RequiredEdges  []selfassess.Edge

	// Oracle answers the adaptive test. Required.
	Oracle cat.Oracle

	// Start is the session to resume. Nil starts a fresh one at θ = 0.
	Start *cat.Session

	// Mastery is the learner's mastery before this assessment.
	Mastery mastery.State
}

// Result is the outcome of one assessment. Session and Mastery are handed
// back for the caller to persist.
type Result struct {
	Session      cat.Session
	Mastery      mastery.State
	Administered []item.Item

	Scores     map[string]float64
	Overall    float64
	SelfScores map[string]float64
	ConceptMap float64

	Dashboard Dashboard
}

// Pipeline composes the engine components. It holds no per-learner state
// and can serve concurrent assessments.
type Pipeline struct {
	engine *cat.Engine
	tracer *mastery.Tracer
}

// New creates a pipeline.
func New(engine *cat.Engine, tracer *mastery.Tracer) *Pipeline {
	return &Pipeline{engine: engine, tracer: tracer}
}

// Run executes one assessment. Oracle and scorer errors are returned to
// the caller unchanged apart from wrapping.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if in.Oracle == nil {
		return nil, fmt.Errorf("pipeline run: no oracle")
	}

	start := cat.NewSession(0)
	if in.Start != nil {
		start = in.Start.Clone()
	}

	session, err := p.engine.Run(start, in.Oracle)
	if err != nil {
		return nil, fmt.Errorf("run adaptive test: %w", err)
	}

	state := in.Mastery.Clone()
	var administered []item.Item
	for _, id := range session.Administered[len(start.Administered):] {
		it, ok := p.engine.Bank().Get(id)
		if !ok {
			continue
		}
		administered = append(administered, it)
		state = p.tracer.Update(state, it.Skill, session.Responses[id] == 1)
	}
	if _, ok := state[p.engine.Skill()]; !ok {
		state[p.engine.Skill()] = p.tracer.Mastery(state, p.engine.Skill())
	}

	rubric := in.Rubric
	if rubric.Empty() {
		rubric = grader.DefaultRubric()
	}
	overall, scores, err := grader.New(in.Scorer).Grade(ctx, in.FreeText, rubric, in.Reference)
	if err != nil {
		return nil, fmt.Errorf("grade free text: %w", err)
	}

	res := &Result{
		Session:      session,
		Mastery:      state,
		Administered: administered,
		Scores:       scores,
		Overall:      overall,
		SelfScores:   in.SelfAssessment.ToScores(),
		ConceptMap:   selfassess.ScoreConceptMap(in.ConceptEdges, in.RequiredEdges),
	}
	res.Dashboard = buildDashboard(res)
	return res, nil
}

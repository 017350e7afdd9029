package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/abhisek/skillprobe/internal/llm"
)

// ScorerConfig holds generation settings for the LLM scorer.
type ScorerConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultScorerConfig returns sensible defaults.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		MaxTokens:   256,
		Temperature: 0.0,
	}
}

// NewLLMScorer returns a TextScorer that asks provider to grade a response
// against rubric and reference. The reply is constrained to one number per
// criterion; values outside [0, 1] are clamped.
func NewLLMScorer(provider llm.Provider, rubric Rubric, reference string, cfg ScorerConfig) TextScorer {
	schema := rubricSchema(rubric)
	return func(ctx context.Context, response string) (map[string]float64, error) {
		ctx = llm.WithPurpose(ctx, "grading")

		userMsg, err := buildGradingMessage(rubric, reference, response)
		if err != nil {
			return nil, fmt.Errorf("build grading prompt: %w", err)
		}

		resp, err := provider.Generate(ctx, llm.Request{
			System:      gradingSystemPrompt,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
			Schema:      schema,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM grading failed: %w", err)
		}

		var raw map[string]float64
		if err := json.Unmarshal(resp.Content, &raw); err != nil {
			return nil, fmt.Errorf("parse grading response: %w", err)
		}
		for name, v := range raw {
			raw[name] = clampUnit(v)
		}
		return raw, nil
	}
}

// rubricSchema builds a schema with one required [0, 1] number per criterion.
func rubricSchema(rubric Rubric) *llm.Schema {
	props := make(map[string]any, len(rubric.Criteria))
	required := make([]any, 0, len(rubric.Criteria))
	for _, name := range rubric.Names() {
		props[name] = map[string]any{
			"type":        "number",
			"minimum":     0.0,
			"maximum":     1.0,
			"description": fmt.Sprintf("Score for %s, from 0.0 (absent) to 1.0 (fully met)", name),
		}
		required = append(required, name)
	}
	return &llm.Schema{
		Name:        "rubric-scores",
		Description: "Per-criterion scores for a free-text answer",
		Definition: map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		},
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const gradingSystemPrompt = `You are a careful grader. Compare a learner's free-text answer with a reference answer and score it against each rubric criterion.

Instructions:
- Score every criterion from 0.0 to 1.0.
- Judge only what the learner wrote; do not reward length.
- Keywords are hints of what a good answer mentions, not a checklist.
- Return only the scores.`

var gradingUserTemplate = template.Must(template.New("grading").Parse(`Reference answer:
{{.Reference}}

Rubric:
{{range .Criteria}}- {{.Name}}{{if .Keywords}} (keywords: {{range $i, $k := .Keywords}}{{if $i}}, {{end}}{{$k}}{{end}}){{end}}
{{end}}
Learner's answer:
{{.Response}}`))

type gradingCriterion struct {
	Name     string
	Keywords []string
}

func buildGradingMessage(rubric Rubric, reference, response string) (string, error) {
	data := struct {
		Reference string
		Response  string
		Criteria  []gradingCriterion
	}{Reference: reference, Response: response}
	for _, name := range rubric.Names() {
		data.Criteria = append(data.Criteria, gradingCriterion{Name: name, Keywords: rubric.Criteria[name]})
	}

	var buf bytes.Buffer
	if err := gradingUserTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

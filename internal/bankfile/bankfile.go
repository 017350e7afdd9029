// Package bankfile reads item banks, content catalogs and assessment
// inputs from YAML or JSON files. It is the validation layer between
// hand-edited files and the engine, which trusts its input.
package bankfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/skillprobe/internal/grader"
	"github.com/abhisek/skillprobe/internal/item"
	"github.com/abhisek/skillprobe/internal/pipeline"
	"github.com/abhisek/skillprobe/internal/recommend"
	"github.com/abhisek/skillprobe/internal/selfassess"
	"github.com/abhisek/skillprobe/internal/store"
)

// Format is a file encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatOf picks the format from the file extension. Anything that is
// not .json is read as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// Bank is the content of a bank file. All sections are optional.
type Bank struct {
	Items   []item.Item     `json:"items" yaml:"items"`
	Content []store.Content `json:"content" yaml:"content"`
	Rubric  *grader.Rubric  `json:"rubric,omitempty" yaml:"rubric,omitempty"`
}

// Validate checks every item and content entry, rejects duplicate ids,
// and validates the rubric when present.
func (b *Bank) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(b.Items))
	for _, it := range b.Items {
		if err := it.Validate(); err != nil {
			errs = append(errs, err)
		}
		if it.ID != "" && seen[it.ID] {
			errs = append(errs, fmt.Errorf("duplicate item id %q", it.ID))
		}
		seen[it.ID] = true
	}

	seen = make(map[string]bool, len(b.Content))
	for _, c := range b.Content {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
		if c.ID != "" && seen[c.ID] {
			errs = append(errs, fmt.Errorf("duplicate content id %q", c.ID))
		}
		seen[c.ID] = true
	}

	if b.Rubric != nil {
		if err := b.Rubric.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rubric: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Load reads and validates a bank file.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank file: %w", err)
	}
	b, err := ParseBank(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ParseBank decodes and validates bank file content.
func ParseBank(data []byte, f Format) (*Bank, error) {
	var b Bank
	if err := decode(data, f, &b); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Input is an assessment input file: the non-adaptive parts of one
// assessment plus the learner's profile.
type Input struct {
	FreeText       string                    `json:"free_text" yaml:"free_text"`
	Reference      string                    `json:"reference" yaml:"reference"`
	Rubric         *grader.Rubric            `json:"rubric,omitempty" yaml:"rubric,omitempty"`
	SelfAssessment selfassess.SelfAssessment `json:"self_assessment" yaml:"self_assessment"`
	ConceptEdges   []selfassess.Edge         `json:"concept_edges" yaml:"concept_edges"`
	RequiredEdges  []selfassess.Edge         `json:"required_edges" yaml:"required_edges"`
	Context        string                    `json:"context" yaml:"context"`
	Interests      []string                  `json:"interests" yaml:"interests"`
}

// Validate checks Likert ranges and the rubric.
func (in *Input) Validate() error {
	var errs []error
	for skill, v := range in.SelfAssessment {
		if v < 1 || v > 5 {
			errs = append(errs, fmt.Errorf("self assessment %q: %d is outside 1-5", skill, v))
		}
	}
	if in.Rubric != nil {
		if err := in.Rubric.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rubric: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Apply copies the file's fields into a pipeline input.
func (in *Input) Apply(dst *pipeline.Input) {
	dst.FreeText = in.FreeText
	dst.Reference = in.Reference
	if in.Rubric != nil {
		dst.Rubric = *in.Rubric
	}
	dst.SelfAssessment = in.SelfAssessment
	dst.ConceptEdges = in.ConceptEdges
	dst.RequiredEdges = in.RequiredEdges
}

// Profile builds the learner profile for recommendations.
func (in *Input) Profile(learnerID string) recommend.LearnerProfile {
	return recommend.LearnerProfile{
		LearnerID: learnerID,
		Context:   in.Context,
		Interests: in.Interests,
	}
}

// LoadInput reads and validates an assessment input file.
func LoadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	in, err := ParseInput(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// ParseInput decodes and validates assessment input content.
func ParseInput(data []byte, f Format) (*Input, error) {
	var in Input
	if err := decode(data, f, &in); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

// decode rejects unknown fields so typos in hand-edited files surface.
func decode(data []byte, f Format, v any) error {
	switch f {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode yaml: %w", err)
		}
	}
	return nil
}

package item

import (
	"context"
	"fmt"
)

// Item is a single assessable question calibrated on the 2PL scale.
type Item struct {
	// ID uniquely identifies the item within a bank.
	ID string `json:"id" yaml:"id"`

	// Skill is the skill tag the item measures.
	Skill string `json:"skill" yaml:"skill"`

	// A is the discrimination parameter. Must be > 0.
	A float64 `json:"a" yaml:"a"`

	// B is the difficulty parameter, conventionally in [-5, 5].
	B float64 `json:"b" yaml:"b"`

	// Prompt is the question text shown to the learner.
	Prompt string `json:"prompt" yaml:"prompt"`

	// Choices holds the options for multiple-choice items. Empty for
	// items answered outside the engine (e.g. on paper).
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`

	// CorrectIndex points into Choices. Nil when there are no choices.
	CorrectIndex *int `json:"correct_index,omitempty" yaml:"correct_index,omitempty"`
}

// HasChoices reports whether the item can be answered by picking an option.
func (it Item) HasChoices() bool {
	return len(it.Choices) > 0 && it.CorrectIndex != nil
}

// IsCorrectChoice reports whether idx is the correct option.
func (it Item) IsCorrectChoice(idx int) bool {
	return it.CorrectIndex != nil && *it.CorrectIndex == idx
}

// Validate checks the item's input contract. The engine itself assumes
// valid items; loaders call this before handing items over.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item has empty id")
	}
	if it.Skill == "" {
		return fmt.Errorf("item %q: empty skill", it.ID)
	}
	if it.A <= 0 {
		return fmt.Errorf("item %q: discrimination must be > 0, got %g", it.ID, it.A)
	}
	if it.CorrectIndex != nil {
		if *it.CorrectIndex < 0 || *it.CorrectIndex >= len(it.Choices) {
			return fmt.Errorf("item %q: correct_index %d out of range for %d choices",
				it.ID, *it.CorrectIndex, len(it.Choices))
		}
	}
	return nil
}

// Source loads items for a skill from an external store.
// The engine only reads items; it never writes them back.
type Source interface {
	LoadItems(ctx context.Context, skill string) ([]Item, error)
}

// Index returns a pointer to i, for building CorrectIndex literals.
func Index(i int) *int {
	return &i
}

// Package oracle provides non-interactive learners for the adaptive engine:
// a 2PL simulation for calibration runs and scripted answers for tests.
package oracle

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/abhisek/skillprobe/internal/cat"
	"github.com/abhisek/skillprobe/internal/item"
)

// Simulated answers like a learner of true ability Theta: each item is
// correct with probability P(Theta; a, b). The zero value uses seed 0.
type Simulated struct {
	Theta float64

	mu  sync.Mutex
	rng *rand.Rand
}

var _ cat.Oracle = (*Simulated)(nil)

// NewSimulated returns a simulated learner whose answers are reproducible
// for a given seed.
func NewSimulated(theta float64, seed uint64) *Simulated {
	return &Simulated{
		Theta: theta,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Respond samples a scored response.
func (s *Simulated) Respond(it item.Item) (int, error) {
	p := cat.PCorrect(s.Theta, it.A, it.B)
	s.mu.Lock()
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(0, 0))
	}
	u := s.rng.Float64()
	s.mu.Unlock()
	if u < p {
		return 1, nil
	}
	return 0, nil
}

// Scripted answers from a fixed table. Items missing from Answers get
// Default, unless Strict is set, in which case they are an error.
type Scripted struct {
	Answers map[string]int
	Default int
	Strict  bool

	mu    sync.Mutex
	asked []string
}

var _ cat.Oracle = (*Scripted)(nil)

// Respond looks up the scripted answer for it.
func (s *Scripted) Respond(it item.Item) (int, error) {
	s.mu.Lock()
	s.asked = append(s.asked, it.ID)
	s.mu.Unlock()

	if v, ok := s.Answers[it.ID]; ok {
		return v, nil
	}
	if s.Strict {
		return 0, fmt.Errorf("no scripted answer for item %q", it.ID)
	}
	return s.Default, nil
}

// Asked returns the item ids seen so far, in order.
func (s *Scripted) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}

// Always answers every item with v.
func Always(v int) cat.Oracle {
	return cat.OracleFunc(func(item.Item) (int, error) { return v, nil })
}

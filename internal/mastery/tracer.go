package mastery

import "fmt"

// denomFloor keeps the posterior well defined when p sits at 0 or 1.
const denomFloor = 1e-12

// Params are the four Bayesian Knowledge Tracing parameters.
type Params struct {
	// Init is the prior probability that an unseen skill is mastered.
	Init float64 `json:"init" yaml:"init"`

	// Transit is the chance of learning the skill at each opportunity.
	Transit float64 `json:"transit" yaml:"transit"`

	// Slip is the chance of answering wrong despite mastery.
	Slip float64 `json:"slip" yaml:"slip"`

	// Guess is the chance of answering right without mastery.
	Guess float64 `json:"guess" yaml:"guess"`
}

// DefaultParams returns the standard BKT parameters.
func DefaultParams() Params {
	return Params{Init: 0.2, Transit: 0.2, Slip: 0.1, Guess: 0.2}
}

// Validate checks that every parameter is a probability.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"init": p.Init, "transit": p.Transit, "slip": p.Slip, "guess": p.Guess,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("bkt %s must be in [0, 1], got %g", name, v)
		}
	}
	return nil
}

// Tracer applies BKT updates. It is stateless; mastery lives in State.
type Tracer struct {
	params Params
}

// NewTracer creates a tracer with the given parameters.
func NewTracer(p Params) *Tracer {
	return &Tracer{params: p}
}

// Mastery returns the current mastery for skill, or the prior when the
// skill has not been observed yet.
func (t *Tracer) Mastery(state State, skill string) float64 {
	if p, ok := state[skill]; ok {
		return p
	}
	return t.params.Init
}

// Update folds one observed response for skill into state and returns the
// new state. The input map is not modified.
func (t *Tracer) Update(state State, skill string, correct bool) State {
	out := state.Clone()
	out[skill] = t.Next(t.Mastery(state, skill), correct)
	return out
}

// Next returns the mastery after one observation, starting from p.
//
//	correct:   post = p(1-s) / (p(1-s) + (1-p)g)
//	incorrect: post = ps / (ps + (1-p)(1-g))
//	next = post + (1-post)·transit
func (t *Tracer) Next(p float64, correct bool) float64 {
	slip, guess := t.params.Slip, t.params.Guess

	var post float64
	if correct {
		num := p * (1 - slip)
		post = num / floor(num+(1-p)*guess)
	} else {
		num := p * slip
		post = num / floor(num+(1-p)*(1-guess))
	}
	return post + (1-post)*t.params.Transit
}

func floor(d float64) float64 {
	if d < denomFloor {
		return denomFloor
	}
	return d
}

package cat

import (
	"fmt"
	"math"

	"github.com/abhisek/skillprobe/internal/item"
)

const (
	// DefaultMaxItems is the default test length cap.
	DefaultMaxItems = 20

	// DefaultSEStop ends the test once the ability SE is this small.
	DefaultSEStop = 0.3

	// DefaultMaxIter bounds Newton-Raphson iterations per update.
	DefaultMaxIter = 25

	// DefaultThetaBound clamps estimates to [-6, 6]. All-correct and
	// all-wrong patterns have no finite MLE.
	DefaultThetaBound = 6.0

	// DefaultMaxStep caps the size of a single Newton-Raphson step.
	DefaultMaxStep = 1.0

	// convergenceTol is the step size under which Newton-Raphson stops.
	convergenceTol = 1e-3

	// curvatureEps is how negative L2 must be to trust the curvature.
	curvatureEps = 1e-9
)

// Oracle supplies the scored response (0 or 1) for an administered item.
// It stands in for a learner answering in a UI or for a test harness.
type Oracle interface {
	Respond(it item.Item) (int, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(it item.Item) (int, error)

// Respond calls f(it).
func (f OracleFunc) Respond(it item.Item) (int, error) {
	return f(it)
}

// Config controls test length, stopping and estimation.
type Config struct {
	MaxItems   int
	SEStop     float64
	MaxIter    int
	ThetaBound float64 // 0 disables clamping
	MaxStep    float64 // 0 disables step capping
}

// DefaultConfig returns the standard stopping and estimation settings.
func DefaultConfig() Config {
	return Config{
		MaxItems:   DefaultMaxItems,
		SEStop:     DefaultSEStop,
		MaxIter:    DefaultMaxIter,
		ThetaBound: DefaultThetaBound,
		MaxStep:    DefaultMaxStep,
	}
}

// Engine runs a 2PL adaptive test over the items of one skill.
// It holds no per-session state and may be shared by concurrent sessions.
type Engine struct {
	bank  *item.Bank
	skill string
	cfg   Config
}

// NewEngine creates an engine for skill over bank.
func NewEngine(bank *item.Bank, skill string, cfg Config) *Engine {
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultMaxIter
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	return &Engine{bank: bank, skill: skill, cfg: cfg}
}

// Skill returns the skill the engine tests.
func (e *Engine) Skill() string { return e.skill }

// Bank returns the engine's item bank.
func (e *Engine) Bank() *item.Bank { return e.bank }

// SelectNext returns the unused item of the engine's skill with maximal
// Fisher information at the session's θ. Ties keep the earliest item in
// bank order. ok is false when no candidate remains.
func (e *Engine) SelectNext(s Session) (it item.Item, ok bool) {
	best := -1.0
	for _, cand := range e.bank.BySkill(e.skill) {
		if s.Given(cand.ID) {
			continue
		}
		info := Information(s.Theta, cand.A, cand.B)
		if info > best {
			best = info
			it = cand
			ok = true
		}
	}
	return it, ok
}

// UpdateTheta re-estimates θ by Newton-Raphson maximum likelihood over
// every administered response and returns the updated session.
//
// Non-convergence within MaxIter is tolerated: the last iterate is kept.
// SE is sqrt(1 / -L2) at the final θ, or +Inf when the curvature is too
// flat to invert.
//
// MaxStep and ThetaBound only change the result when the responses have
// no finite MLE (all correct or all wrong); otherwise the plain update
// θ ← θ - L1/L2 reaches the same estimate.
func (e *Engine) UpdateTheta(s Session) Session {
	out := s.Clone()
	if len(out.Administered) == 0 {
		out.SE = math.Inf(1)
		return out
	}

	theta := out.Theta
	for range e.cfg.MaxIter {
		l1, l2 := e.derivatives(out, theta)
		if l2 >= -curvatureEps {
			break
		}
		next := e.bound(theta - e.capStep(l1/l2))
		step := next - theta
		theta = next
		if math.Abs(step) < convergenceTol {
			break
		}
	}

	out.Theta = theta
	_, l2 := e.derivatives(out, theta)
	if l2 < -curvatureEps {
		out.SE = math.Sqrt(1 / -l2)
	} else {
		out.SE = math.Inf(1)
	}
	return out
}

// derivatives returns the first and second derivatives of the
// log-likelihood at theta.
//
//	L1 = Σ a · (u - P)
//	L2 = -Σ a² · P · (1 - P)
func (e *Engine) derivatives(s Session, theta float64) (l1, l2 float64) {
	for _, id := range s.Administered {
		it, ok := e.bank.Get(id)
		if !ok {
			continue
		}
		u := float64(s.Responses[id])
		p := PCorrect(theta, it.A, it.B)
		l1 += it.A * (u - p)
		l2 -= it.A * it.A * p * (1 - p)
	}
	return l1, l2
}

func (e *Engine) capStep(step float64) float64 {
	if e.cfg.MaxStep <= 0 {
		return step
	}
	return clamp(step, -e.cfg.MaxStep, e.cfg.MaxStep)
}

func (e *Engine) bound(theta float64) float64 {
	if e.cfg.ThetaBound <= 0 {
		return theta
	}
	return clamp(theta, -e.cfg.ThetaBound, e.cfg.ThetaBound)
}

// Done reports whether the stopping rule is met.
func (e *Engine) Done(s Session) bool {
	return len(s.Administered) >= e.cfg.MaxItems || s.SE <= e.cfg.SEStop
}

// Run administers items until MaxItems have been given, SE falls to
// SEStop, or the pool is exhausted. The oracle is called once per item and
// its errors are returned as-is, wrapped with the item id.
// The start session is not modified.
func (e *Engine) Run(start Session, oracle Oracle) (Session, error) {
	s := start.Clone()
	for !e.Done(s) {
		next, ok := e.SelectNext(s)
		if !ok {
			break
		}
		resp, err := oracle.Respond(next)
		if err != nil {
			return s, fmt.Errorf("oracle response for item %q: %w", next.ID, err)
		}
		s.Record(next.ID, resp)
		s = e.UpdateTheta(s)
	}
	return s, nil
}

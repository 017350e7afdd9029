package cat

import (
	"errors"
	"math"
	"testing"


	"github.com/abhisek/skillprobe/internal/item"
)

const epsilon = 1e-4

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %.6f, want %.6f (diff %.6f)", name, got, want, math.Abs(got-want))
	}
}

func algebraBank() *item.Bank {
	return item.MustBank(
		item.Item{ID: "alg-1", Skill: "algebra", A: 1.2, B: -1.0},
		item.Item{ID: "alg-2", Skill: "algebra", A: 1.0, B: 0.0},
		item.Item{ID: "alg-3", Skill: "algebra", A: 0.8, B: 1.0},
	)
}

func answerAll(v int) OracleFunc {
	return func(item.Item) (int, error) { return v, nil }
}

func TestPCorrect_AtDifficulty(t *testing.T) {
	assertFloat(t, "P(0; a=1.5, b=0)", PCorrect(0, 1.5, 0), 0.5)
}

func TestPCorrect_StrictlyIncreasing(t *testing.T) {
	items := []struct{ a, b float64 }{
		{0.3, -2}, {1.0, 0}, {2.5, 1.5}, {0.7, 4},
	}
	for _, it := range items {
		prev := PCorrect(-4, it.a, it.b)
		for theta := -3.9; theta <= 4.0; theta += 0.1 {
			p := PCorrect(theta, it.a, it.b)
			if p <= prev {
				t.Fatalf("P not increasing for a=%g b=%g at θ=%.1f: %.8f <= %.8f",
					it.a, it.b, theta, p, prev)
			}
			prev = p
		}
	}
}

func TestPCorrect_PathologicalThetaDoesNotOverflow(t *testing.T) {
	hi := PCorrect(1e6, 2, 0)
	lo := PCorrect(-1e6, 2, 0)
	if math.IsNaN(hi) || math.IsNaN(lo) {
		t.Fatal("logistic produced NaN")
	}
	assertFloat(t, "P(+huge)", hi, 1)
	assertFloat(t, "P(-huge)", lo, 0)
}

func TestInformation(t *testing.T) {
	assertFloat(t, "I(X)", Information(0, 1.5, 0), 0.5625)
	assertFloat(t, "I(Y)", Information(0, 0.5, 0), 0.0625)
}

func TestSelectNext_PicksMaxInformation(t *testing.T) {
	bank := item.MustBank(
		item.Item{ID: "Y", Skill: "algebra", A: 0.5, B: 0},
		item.Item{ID: "X", Skill: "algebra", A: 1.5, B: 0},
	)
	e := NewEngine(bank, "algebra", DefaultConfig())

	got, ok := e.SelectNext(NewSession(0))
	if !ok || got.ID != "X" {
		t.Errorf("SelectNext = %q, %v; want X, true", got.ID, ok)
	}
}

func TestSelectNext_SkipsAdministered(t *testing.T) {
	bank := item.MustBank(
		item.Item{ID: "X", Skill: "algebra", A: 1.5, B: 0},
		item.Item{ID: "Y", Skill: "algebra", A: 0.5, B: 0},
	)
	e := NewEngine(bank, "algebra", DefaultConfig())
	s := NewSession(0)
	s.Record("X", 1)

	got, ok := e.SelectNext(s)
	if !ok || got.ID != "Y" {
		t.Errorf("SelectNext = %q, %v; want Y, true", got.ID, ok)
	}
}

func TestSelectNext_TiesKeepBankOrder(t *testing.T) {
	bank := item.MustBank(
		item.Item{ID: "first", Skill: "algebra", A: 1, B: 0.5},
		item.Item{ID: "second", Skill: "algebra", A: 1, B: -0.5},
	)
	e := NewEngine(bank, "algebra", DefaultConfig())

	got, ok := e.SelectNext(NewSession(0))
	if !ok || got.ID != "first" {
		t.Errorf("SelectNext = %q, %v; want first, true", got.ID, ok)
	}
}

func TestSelectNext_MaximalAcrossBank(t *testing.T) {
	bank := item.MustBank(
		item.Item{ID: "a", Skill: "s", A: 0.9, B: -2},
		item.Item{ID: "b", Skill: "s", A: 1.1, B: 0.4},
		item.Item{ID: "c", Skill: "s", A: 1.6, B: 2.5},
		item.Item{ID: "d", Skill: "s", A: 1.3, B: 0.9},
	)
	e := NewEngine(bank, "s", DefaultConfig())

	for _, theta := range []float64{-2, -0.5, 0, 0.7, 2.5} {
		s := NewSession(theta)
		got, ok := e.SelectNext(s)
		if !ok {
			t.Fatalf("θ=%.1f: no item selected", theta)
		}
		gotInfo := Information(theta, got.A, got.B)
		for _, it := range bank.All() {
			if Information(theta, it.A, it.B) > gotInfo {
				t.Errorf("θ=%.1f: selected %s but %s is more informative", theta, got.ID, it.ID)
			}
		}
	}
}

func TestSelectNext_NoneForOtherSkill(t *testing.T) {
	bank := item.MustBank(item.Item{ID: "g1", Skill: "geometry", A: 1, B: 0})
	e := NewEngine(bank, "algebra", DefaultConfig())

	if got, ok := e.SelectNext(NewSession(0)); ok {
		t.Errorf("SelectNext = %q, want none", got.ID)
	}
}

func TestUpdateTheta_NoResponses(t *testing.T) {
	e := NewEngine(algebraBank(), "algebra", DefaultConfig())
	s := e.UpdateTheta(NewSession(0.4))
	if s.Theta != 0.4 {
		t.Errorf("Theta = %v, want 0.4", s.Theta)
	}
	if !math.IsInf(s.SE, 1) {
		t.Errorf("SE = %v, want +Inf", s.SE)
	}
}

func TestUpdateTheta_MixedResponsesConverge(t *testing.T) {
	bank := item.MustBank(
		item.Item{ID: "i1", Skill: "s", A: 1, B: -1},
		item.Item{ID: "i2", Skill: "s", A: 1, B: 0},
		item.Item{ID: "i3", Skill: "s", A: 1, B: 1},
	)
	e := NewEngine(bank, "s", DefaultConfig())
	s := NewSession(0)
	s.Record("i1", 1)
	s.Record("i2", 1)
	s.Record("i3", 0)

	s = e.UpdateTheta(s)

	// At the MLE the first derivative vanishes.
	l1, l2 := e.derivatives(s, s.Theta)
	if math.Abs(l1) > 1e-3 {
		t.Errorf("L1 at estimate = %.6f, want ~0", l1)
	}
	if s.Theta <= 0 {
		t.Errorf("Theta = %v, want > 0", s.Theta)
	}
	assertFloat(t, "SE", s.SE, math.Sqrt(1/-l2))
}

func TestUpdateTheta_CapsDoNotMoveFiniteMLE(t *testing.T) {
	bank := item.MustBank(
		item.Item{ID: "i1", Skill: "s", A: 1.2, B: -1},
		item.Item{ID: "i2", Skill: "s", A: 0.8, B: 0.5},
		item.Item{ID: "i3", Skill: "s", A: 1.5, B: 1.5},
		item.Item{ID: "i4", Skill: "s", A: 1.0, B: 2.5},
	)
	s := NewSession(0)
	s.Record("i1", 1)
	s.Record("i2", 1)
	s.Record("i3", 1)
	s.Record("i4", 0)

	capped := NewEngine(bank, "s", DefaultConfig()).UpdateTheta(s)

	plainCfg := DefaultConfig()
	plainCfg.MaxStep = 0
	plainCfg.ThetaBound = 0
	plainCfg.MaxIter = 200
	plain := NewEngine(bank, "s", plainCfg).UpdateTheta(s)

	assertFloat(t, "θ", capped.Theta, plain.Theta)
	assertFloat(t, "SE", capped.SE, plain.SE)
}

func TestUpdateTheta_AllCorrectStaysBounded(t *testing.T) {
	e := NewEngine(algebraBank(), "algebra", DefaultConfig())
	s := NewSession(0)
	for _, it := range algebraBank().All() {
		s.Record(it.ID, 1)
	}

	s = e.UpdateTheta(s)
	if s.Theta <= 0 || s.Theta > DefaultThetaBound {
		t.Errorf("Theta = %v, want in (0, %v]", s.Theta, DefaultThetaBound)
	}
}

func TestUpdateTheta_DoesNotMutateInput(t *testing.T) {
	e := NewEngine(algebraBank(), "algebra", DefaultConfig())
	s := NewSession(0)
	s.Record("alg-2", 1)

	_ = e.UpdateTheta(s)
	if s.Theta != 0 || !math.IsInf(s.SE, 1) {
		t.Errorf("input mutated: Theta=%v SE=%v", s.Theta, s.SE)
	}
}

func TestRun_StopsAtMaxItems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxItems = 2
	e := NewEngine(algebraBank(), "algebra", cfg)

	s, err := e.Run(NewSession(0), answerAll(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.Administered) != 2 {
		t.Errorf("administered %d items, want 2", len(s.Administered))
	}
}

func TestRun_ExhaustsPool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxItems = 10
	e := NewEngine(algebraBank(), "algebra", cfg)

	calls := 0
	s, err := e.Run(NewSession(0), OracleFunc(func(item.Item) (int, error) {
		calls++
		return calls % 2, nil
	}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 || len(s.Administered) != 3 {
		t.Errorf("calls = %d, administered = %d; want 3, 3", calls, len(s.Administered))
	}
}

func TestRun_StopsOnSE(t *testing.T) {
	var items []item.Item
	for i := range 40 {
		items = append(items, item.Item{
			ID:    "hi-" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Skill: "s",
			A:     2.5,
			B:     float64(i%5-2) * 0.2,
		})
	}
	cfg := DefaultConfig()
	cfg.MaxItems = 40
	cfg.SEStop = 0.5
	e := NewEngine(item.MustBank(items...), "s", cfg)

	n := 0
	s, err := e.Run(NewSession(0), OracleFunc(func(item.Item) (int, error) {
		n++
		return n % 2, nil
	}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.SE > 0.5 {
		t.Errorf("SE = %v, want <= 0.5", s.SE)
	}
	if len(s.Administered) >= 40 {
		t.Errorf("administered %d items, want early stop", len(s.Administered))
	}
}

func TestRun_EmptyBankReturnsStartUnchanged(t *testing.T) {
	e := NewEngine(item.MustBank(), "algebra", DefaultConfig())
	start := NewSession(0.25)

	s, err := e.Run(start, answerAll(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Theta != 0.25 || len(s.Administered) != 0 || !math.IsInf(s.SE, 1) {
		t.Errorf("Run changed the start state: %+v", s)
	}
}

func TestRun_OracleErrorPropagates(t *testing.T) {
	boom := errors.New("learner disconnected")
	e := NewEngine(algebraBank(), "algebra", DefaultConfig())

	_, err := e.Run(NewSession(0), OracleFunc(func(item.Item) (int, error) {
		return 0, boom
	}))
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want %v", err, boom)
	}
}

func TestRun_AllCorrectRaisesTheta(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxItems = 3
	e := NewEngine(algebraBank(), "algebra", cfg)

	s, err := e.Run(NewSession(0), answerAll(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Theta < 0 {
		t.Errorf("Theta = %v, want >= 0", s.Theta)
	}
}

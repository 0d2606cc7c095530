package behavior_test

import (
	"math"
	"testing"

	"github.com/hfpn-dev/hfpn"
	"github.com/hfpn-dev/hfpn/behavior"
)

func continuousPipe(f *hfpn.RateFunc, tokens float64) (*behavior.ContinuousBehavior, *hfpn.Place, *hfpn.Place) {
	p1 := hfpn.NewPlace("S", tokens)
	p2 := hfpn.NewPlace("P", 0)
	tr := hfpn.NewContinuous("flow", f)
	net := hfpn.NewNet("cont").WithPlaces(p1, p2).WithTransitions(tr).WithArcs(
		hfpn.NewArc(p1, tr, 1),
		hfpn.NewArc(tr, p2, 1),
	)
	return newFactory(net).Get(tr).(*behavior.ContinuousBehavior), p1, p2
}

func TestExponentialDecayAccuracy(t *testing.T) {
	// dS/dt = -0.5 S, S(0) = 10; at t = 1 the exact solution is
	// 10*exp(-0.5). Fixed-step RK4 at dt = 0.01 should be far inside
	// the 5% target.
	b, s, p := continuousPipe(&hfpn.RateFunc{Expr: "0.5 * S"}, 10)
	dt := 0.01
	now := 0.0
	for i := 0; i < 100; i++ {
		now += dt
		if _, err := b.Fire(now, dt); err != nil {
			t.Fatal(err)
		}
	}
	want := 10 * math.Exp(-0.5)
	if rel := math.Abs(s.Tokens-want) / want; rel > 0.001 {
		t.Errorf("S(1) = %g, want %g (rel err %g)", s.Tokens, want, rel)
	}
	if total := s.Tokens + p.Tokens; math.Abs(total-10) > 1e-9 {
		t.Errorf("tokens not conserved: %g", total)
	}
}

func TestOverflowClampedNotNegative(t *testing.T) {
	// A rate of 1000 draining 5 tokens over dt=1 transfers at most 5.
	b, s, p := continuousPipe(&hfpn.RateFunc{Constant: 1000}, 5)
	res, err := b.Fire(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fired {
		t.Fatal("clamped flow still counts as a firing")
	}
	if res.Intended <= res.Actual {
		t.Errorf("intended %g should exceed actual %g", res.Intended, res.Actual)
	}
	if res.Actual != 5 {
		t.Errorf("actual: got %g, want 5", res.Actual)
	}
	if s.Tokens < 0 || s.Tokens > 1e-9 {
		t.Errorf("source place: %g, want 0", s.Tokens)
	}
	if p.Tokens != 5 {
		t.Errorf("dest place: %g, want 5", p.Tokens)
	}
}

func TestClampAcrossArcWeights(t *testing.T) {
	// With an input weight of 2, 5 tokens support at most 2.5 firing
	// units.
	p1 := hfpn.NewPlace("A", 5)
	p2 := hfpn.NewPlace("B", 0)
	tr := hfpn.NewContinuous("flow", &hfpn.RateFunc{Constant: 100})
	net := hfpn.NewNet("n").WithPlaces(p1, p2).WithTransitions(tr).WithArcs(
		hfpn.NewArc(p1, tr, 2),
		hfpn.NewArc(tr, p2, 1),
	)
	b := newFactory(net).Get(tr).(*behavior.ContinuousBehavior)
	res, err := b.Fire(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Actual != 2.5 {
		t.Errorf("actual: got %g, want 2.5", res.Actual)
	}
	if p1.Tokens > 1e-9 || p2.Tokens != 2.5 {
		t.Errorf("marking: %g/%g", p1.Tokens, p2.Tokens)
	}
}

func TestRateBounds(t *testing.T) {
	max := 0.25
	b, _, p := continuousPipe(&hfpn.RateFunc{Expr: "10 * S", Max: &max}, 10)
	if _, err := b.Fire(1, 1); err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.Tokens-0.25) > 1e-9 {
		t.Errorf("bounded flow moved %g, want 0.25", p.Tokens)
	}
}

func TestNegativeRateReadsAsZero(t *testing.T) {
	b, s, _ := continuousPipe(&hfpn.RateFunc{Constant: -3}, 10)
	res, err := b.Fire(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fired || s.Tokens != 10 {
		t.Errorf("negative rate must not move tokens: fired=%v S=%g", res.Fired, s.Tokens)
	}
}

func TestBrokenRateExpressionIsZeroRate(t *testing.T) {
	b, s, _ := continuousPipe(&hfpn.RateFunc{Expr: "nosuch * 2"}, 10)
	res, err := b.Fire(1, 1)
	if err != nil {
		t.Fatalf("a broken rate must not raise: %v", err)
	}
	if res.Fired || s.Tokens != 10 {
		t.Errorf("broken rate moved tokens: fired=%v S=%g", res.Fired, s.Tokens)
	}
}

func TestTimeDependentRate(t *testing.T) {
	// rate = t over [0, 1]: integral is 0.5.
	b, _, p := continuousPipe(&hfpn.RateFunc{Expr: "t"}, 10)
	if _, err := b.Fire(1, 1); err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.Tokens-0.5) > 1e-9 {
		t.Errorf("got %g, want 0.5", p.Tokens)
	}
}

func TestEmptySourceDisablesFlow(t *testing.T) {
	b, s, _ := continuousPipe(&hfpn.RateFunc{Constant: 1}, 0)
	if ok, _ := b.CanFire(0); ok {
		t.Error("empty input place must disable a continuous transition")
	}
	res, err := b.Fire(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fired || s.Tokens != 0 {
		t.Error("flow from an empty place")
	}
}

func TestLastKeepsDiagnostics(t *testing.T) {
	b, _, _ := continuousPipe(&hfpn.RateFunc{Constant: 1000}, 5)
	if _, err := b.Fire(1, 1); err != nil {
		t.Fatal(err)
	}
	last := b.Last()
	if last == nil || last.Intended == last.Actual {
		t.Error("clamped intended vs actual must stay inspectable")
	}
}

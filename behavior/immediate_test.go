package behavior_test

import (
	"testing"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/hfpn-dev/hfpn"
	"github.com/hfpn-dev/hfpn/behavior"
)

func newFactory(net *hfpn.Net) *behavior.Factory {
	return behavior.NewFactory(net, rand.New(rand.NewSource(1)), zap.NewNop())
}

// pipe builds p1 -> t -> p2 with the given weights and initial tokens.
func pipe(tokens, wIn, wOut float64) (*hfpn.Net, *hfpn.Place, *hfpn.Transition, *hfpn.Place) {
	p1 := hfpn.NewPlace("p1", tokens)
	p2 := hfpn.NewPlace("p2", 0)
	tr := hfpn.NewTransition("t")
	net := hfpn.NewNet("pipe").WithPlaces(p1, p2).WithTransitions(tr).WithArcs(
		hfpn.NewArc(p1, tr, wIn),
		hfpn.NewArc(tr, p2, wOut),
	)
	return net, p1, tr, p2
}

func TestImmediateFire(t *testing.T) {
	net, p1, tr, p2 := pipe(3, 1, 2)
	b := newFactory(net).Get(tr)

	if ok, _ := b.CanFire(0); !ok {
		t.Fatal("should be enabled")
	}
	res, err := b.Fire(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fired {
		t.Fatal("should have fired")
	}
	if p1.Tokens != 2 || p2.Tokens != 2 {
		t.Errorf("marking: got %g/%g, want 2/2", p1.Tokens, p2.Tokens)
	}
	if res.Consumed[p1] != 1 || res.Produced[p2] != 2 {
		t.Errorf("effects: consumed %g, produced %g", res.Consumed[p1], res.Produced[p2])
	}
}

func TestImmediateDisabledWhenShort(t *testing.T) {
	net, _, tr, _ := pipe(0.5, 1, 1)
	b := newFactory(net).Get(tr)
	if ok, reason := b.CanFire(0); ok || reason == "" {
		t.Errorf("got enabled=%v reason=%q, want disabled with reason", ok, reason)
	}
}

func TestGuardForms(t *testing.T) {
	for _, tc := range []struct {
		name  string
		guard *hfpn.Guard
		want  bool
	}{
		{"bool true", hfpn.BoolGuard(true), true},
		{"bool false", hfpn.BoolGuard(false), false},
		{"value positive", hfpn.ValueGuard(0.1), true},
		{"value zero", hfpn.ValueGuard(0), false},
		{"expr pass", hfpn.ExprGuard("p1 >= 2"), true},
		{"expr fail", hfpn.ExprGuard("p1 > 100"), false},
		{"expr numeric", hfpn.ExprGuard("p1 - 1"), true},
		{"expr broken", hfpn.ExprGuard("nosuchplace > 0"), false},
		{"expr uncompilable", hfpn.ExprGuard("1 +"), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			net, _, tr, _ := pipe(2, 1, 1)
			tr.WithGuard(tc.guard)
			b := newFactory(net).Get(tr)
			if ok, _ := b.CanFire(0); ok != tc.want {
				t.Errorf("got %v, want %v", ok, tc.want)
			}
		})
	}
}

func TestGuardFailureShortCircuits(t *testing.T) {
	// Guard failure must not raise; the transition simply is not enabled.
	net, p1, tr, _ := pipe(2, 1, 1)
	tr.WithGuard(hfpn.BoolGuard(false))
	b := newFactory(net).Get(tr)
	res, err := b.Fire(0, 0)
	if err != nil {
		t.Fatalf("guard failure became an error: %v", err)
	}
	if res.Fired {
		t.Error("fired through a failed guard")
	}
	if p1.Tokens != 2 {
		t.Errorf("marking mutated: %g", p1.Tokens)
	}
}

func TestTestArcChecksWithoutConsuming(t *testing.T) {
	p := hfpn.NewPlace("p", 3)
	witness := hfpn.NewPlace("w", 1)
	out := hfpn.NewPlace("out", 0)
	tr := hfpn.NewTransition("t")
	net := hfpn.NewNet("n").WithPlaces(p, witness, out).WithTransitions(tr).WithArcs(
		hfpn.NewArc(witness, tr, 1),
		hfpn.NewTest(p, tr, 2),
		hfpn.NewArc(tr, out, 1),
	)
	b := newFactory(net).Get(tr)

	res, err := b.Fire(0, 0)
	if err != nil || !res.Fired {
		t.Fatalf("fire: %v fired=%v", err, res.Fired)
	}
	if p.Tokens != 3 {
		t.Errorf("test arc consumed: %g", p.Tokens)
	}

	p.Tokens = 1
	witness.Tokens = 1
	if ok, _ := b.CanFire(0); ok {
		t.Error("test arc below threshold should disable")
	}
}

func TestInhibitorThresholdSupersedesWeight(t *testing.T) {
	p := hfpn.NewPlace("p", 0)
	fuel := hfpn.NewPlace("fuel", 10)
	out := hfpn.NewPlace("out", 0)
	tr := hfpn.NewTransition("t")
	net := hfpn.NewNet("n").WithPlaces(p, fuel, out).WithTransitions(tr).WithArcs(
		hfpn.NewArc(fuel, tr, 1),
		hfpn.NewInhibitor(p, tr, 1, 3),
		hfpn.NewArc(tr, out, 1),
	)
	b := newFactory(net).Get(tr)

	p.Tokens = 2.5
	if ok, _ := b.CanFire(0); !ok {
		t.Error("below threshold should be enabled")
	}
	p.Tokens = 3
	if ok, _ := b.CanFire(0); ok {
		t.Error("at threshold should be inhibited")
	}

	// The weight still governs consumption.
	p.Tokens = 2.5
	res, err := b.Fire(0, 0)
	if err != nil || !res.Fired {
		t.Fatalf("fire: %v", err)
	}
	if p.Tokens != 1.5 {
		t.Errorf("inhibitor consumption: got %g, want 1.5", p.Tokens)
	}
}

func TestResetArcDrainsPlace(t *testing.T) {
	p := hfpn.NewPlace("p", 7.5)
	trigger := hfpn.NewPlace("trigger", 1)
	out := hfpn.NewPlace("out", 0)
	tr := hfpn.NewTransition("t")
	net := hfpn.NewNet("n").WithPlaces(p, trigger, out).WithTransitions(tr).WithArcs(
		hfpn.NewArc(trigger, tr, 1),
		hfpn.NewReset(p, tr),
		hfpn.NewArc(tr, out, 1),
	)
	b := newFactory(net).Get(tr)

	res, err := b.Fire(0, 0)
	if err != nil || !res.Fired {
		t.Fatalf("fire: %v", err)
	}
	if p.Tokens != 0 {
		t.Errorf("reset arc left %g tokens", p.Tokens)
	}
	if res.Consumed[p] != 7.5 {
		t.Errorf("drain not reported: %g", res.Consumed[p])
	}
}

func TestExpressionWeight(t *testing.T) {
	net, _, tr, p2 := pipe(5, 1, 1)
	net.Outputs(tr)[0].WithExpr("min(p1, 2)")
	b := newFactory(net).Get(tr)

	res, err := b.Fire(0, 0)
	if err != nil || !res.Fired {
		t.Fatalf("fire: %v", err)
	}
	if p2.Tokens != 2 {
		t.Errorf("output: got %g, want 2", p2.Tokens)
	}
}

func TestSourceSkipsConsumption(t *testing.T) {
	out := hfpn.NewPlace("out", 0)
	src := hfpn.NewTransition("src").AsSource()
	net := hfpn.NewNet("n").WithPlaces(out).WithTransitions(src).WithArcs(
		hfpn.NewArc(src, out, 2),
	)
	b := newFactory(net).Get(src)
	if ok, _ := b.CanFire(0); !ok {
		t.Fatal("source must always be structurally enabled")
	}
	res, err := b.Fire(0, 0)
	if err != nil || !res.Fired {
		t.Fatalf("fire: %v", err)
	}
	if out.Tokens != 2 {
		t.Errorf("got %g, want 2", out.Tokens)
	}
}

func TestSinkSkipsProduction(t *testing.T) {
	in := hfpn.NewPlace("in", 3)
	sink := hfpn.NewTransition("sink").AsSink()
	net := hfpn.NewNet("n").WithPlaces(in).WithTransitions(sink).WithArcs(
		hfpn.NewArc(in, sink, 1),
	)
	b := newFactory(net).Get(sink)
	res, err := b.Fire(0, 0)
	if err != nil || !res.Fired {
		t.Fatalf("fire: %v", err)
	}
	if in.Tokens != 2 {
		t.Errorf("got %g, want 2", in.Tokens)
	}
	if len(res.Produced) != 0 {
		t.Error("sink produced tokens")
	}
}

func TestFactoryCachesPerTransition(t *testing.T) {
	net, _, tr, _ := pipe(1, 1, 1)
	f := newFactory(net)
	b1 := f.Get(tr)
	if f.Get(tr) != b1 {
		t.Error("second Get should return the cached behavior")
	}
	f.Invalidate(tr)
	if f.Get(tr) == b1 {
		t.Error("Invalidate should drop the cached behavior")
	}
	f.Reset()
	if f.Size() != 0 {
		t.Errorf("Reset left %d entries", f.Size())
	}
}

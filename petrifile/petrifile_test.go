package petrifile_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/hfpn-dev/hfpn"
	"github.com/hfpn-dev/hfpn/petrifile"
	"github.com/hfpn-dev/hfpn/sim"
)

const lineDoc = `
name: line
places:
  stock: 20
  buffer:
    initial: 0
  done: 0
transitions:
  produce:
    type: timed
    earliest: 0.5
    latest: 1
  consume:
    priority: 1
    guard: "buffer > 0"
arcs:
  - {from: stock, to: produce}
  - {from: produce, to: buffer}
  - {from: buffer, to: produce, kind: inhibitor, weight: 0, threshold: 5}
  - {from: buffer, to: consume}
  - {from: consume, to: done}
`

func TestLoadBuildsNet(t *testing.T) {
	net, err := petrifile.Load(strings.NewReader(lineDoc))
	if err != nil {
		t.Fatal(err)
	}
	if net.Name != "line" {
		t.Errorf("name: %q", net.Name)
	}
	if len(net.Places) != 3 || len(net.Transitions) != 2 || len(net.Arcs) != 5 {
		t.Fatalf("shape: %d places, %d transitions, %d arcs",
			len(net.Places), len(net.Transitions), len(net.Arcs))
	}
	if got := net.Place("stock").Tokens; got != 20 {
		t.Errorf("stock: %g, want 20 from the scalar form", got)
	}
	if got := net.Place("buffer").Tokens; got != 0 {
		t.Errorf("buffer: %g, want 0 from the mapping form", got)
	}

	produce := net.Transition("produce")
	if produce.Type != hfpn.Timed || produce.Earliest != 0.5 || produce.Latest != 1 {
		t.Errorf("produce: %v [%g, %g]", produce.Type, produce.Earliest, produce.Latest)
	}
	consume := net.Transition("consume")
	if consume.Type != hfpn.Immediate || consume.Priority != 1 {
		t.Errorf("consume: %v priority %d", consume.Type, consume.Priority)
	}
	if consume.Guard == nil || consume.Guard.Expr != "buffer > 0" {
		t.Error("guard expression not carried over")
	}

	var inhibitor *hfpn.Arc
	for _, a := range net.Arcs {
		if a.Kind == hfpn.InhibitorArc {
			inhibitor = a
		}
	}
	if inhibitor == nil {
		t.Fatal("inhibitor arc missing")
	}
	if inhibitor.Threshold == nil || *inhibitor.Threshold != 5 {
		t.Error("inhibitor threshold not carried over")
	}

	// A loaded net simulates like a hand-built one.
	c, err := sim.New(net, sim.WithSeed(3))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 30; i++ {
		if _, err := c.Step(0.1); err != nil {
			t.Fatal(err)
		}
	}
	if net.Place("done").Tokens == 0 {
		t.Error("nothing flowed through the loaded net")
	}
}

func TestLoadDefaults(t *testing.T) {
	doc := `
name: defaults
places:
  a: 2
  b: 0
transitions:
  move:
    type: timed
    earliest: 1
arcs:
  - {from: a, to: move}
  - {from: move, to: b}
`
	net, err := petrifile.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	move := net.Transition("move")
	if !math.IsInf(move.Latest, 1) {
		t.Errorf("latest: %g, want an unbounded window when omitted", move.Latest)
	}
	for _, a := range net.Arcs {
		if a.Weight != 1 {
			t.Errorf("weight: %g, want the default 1", a.Weight)
		}
	}
}

func TestLoadContinuousAndStochastic(t *testing.T) {
	doc := `
name: mixed
places:
  s: 10
  p: 0
  q: 0
transitions:
  flow:
    type: continuous
    flow: {expr: "0.5 * s", max: 2}
  jump:
    type: stochastic
    rate: 3
    burst: 2
arcs:
  - {from: s, to: flow}
  - {from: flow, to: p}
  - {from: s, to: jump}
  - {from: jump, to: q}
`
	net, err := petrifile.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	flow := net.Transition("flow")
	if flow.Type != hfpn.Continuous || flow.RateFunc == nil || flow.RateFunc.Expr != "0.5 * s" {
		t.Error("continuous flow not carried over")
	}
	if flow.RateFunc.Max == nil || *flow.RateFunc.Max != 2 {
		t.Error("flow max not carried over")
	}
	jump := net.Transition("jump")
	if jump.Type != hfpn.Stochastic || jump.Rate != 3 || jump.MaxBurst != 2 {
		t.Errorf("jump: %v rate %g burst %d", jump.Type, jump.Rate, jump.MaxBurst)
	}
}

func TestLoadRejections(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{"unknown node", `
name: bad
places: {a: 1}
transitions: {t: {}}
arcs:
  - {from: a, to: t}
  - {from: t, to: nowhere}
`},
		{"unknown transition type", `
name: bad
places: {a: 1}
transitions: {t: {type: quantum}}
arcs:
  - {from: a, to: t}
`},
		{"unknown arc kind", `
name: bad
places: {a: 1, b: 0}
transitions: {t: {}}
arcs:
  - {from: a, to: t, kind: sideways}
  - {from: t, to: b}
`},
		{"continuous without flow", `
name: bad
places: {a: 1, b: 0}
transitions: {t: {type: continuous}}
arcs:
  - {from: a, to: t}
  - {from: t, to: b}
`},
		{"structurally invalid", `
name: bad
places: {a: 1}
transitions: {t: {}}
arcs: []
`},
		{"inhibitor from transition", `
name: bad
places: {a: 1, b: 0}
transitions: {t: {}}
arcs:
  - {from: a, to: t}
  - {from: t, to: b, kind: inhibitor}
`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := petrifile.Load(strings.NewReader(tc.doc)); err == nil {
				t.Error("want an error")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	in := hfpn.NewPlace("in", 4)
	out := hfpn.NewPlace("out", 0)
	work := hfpn.NewTimed("work", 1, 3).WithPriority(2).WithGuard(hfpn.ExprGuard("in > 0"))
	orig := hfpn.NewNet("trip").WithPlaces(in, out).WithTransitions(work).WithArcs(
		hfpn.NewArc(in, work, 2).WithExpr("min(in, 2)"),
		hfpn.NewArc(work, out, 1),
		hfpn.NewInhibitor(out, work, 0, 10),
	)

	var buf bytes.Buffer
	if err := petrifile.Save(&buf, orig); err != nil {
		t.Fatal(err)
	}
	back, err := petrifile.Load(&buf)
	if err != nil {
		t.Fatalf("%v\n%s", err, buf.String())
	}

	if back.Name != orig.Name || len(back.Arcs) != len(orig.Arcs) {
		t.Fatalf("shape changed: %s with %d arcs", back.Name, len(back.Arcs))
	}
	if back.Place("in").Tokens != 4 {
		t.Error("initial marking lost")
	}
	w := back.Transition("work")
	if w.Type != hfpn.Timed || w.Earliest != 1 || w.Latest != 3 || w.Priority != 2 {
		t.Errorf("work: %v [%g, %g] priority %d", w.Type, w.Earliest, w.Latest, w.Priority)
	}
	if w.Guard == nil || w.Guard.Expr != "in > 0" {
		t.Error("guard lost")
	}
	var expr, inhibitor bool
	for _, a := range back.Arcs {
		if a.WeightExpr == "min(in, 2)" {
			expr = true
		}
		if a.Kind == hfpn.InhibitorArc && a.Threshold != nil && *a.Threshold == 10 {
			inhibitor = true
		}
	}
	if !expr || !inhibitor {
		t.Error("arc details lost in the round trip")
	}
}

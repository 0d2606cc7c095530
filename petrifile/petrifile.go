// Package petrifile reads and writes net definitions as YAML
// documents, so models can live in files next to the run
// configuration instead of being built in code.
//
// A minimal document looks like:
//
//	name: decay
//	places:
//	  S: 10
//	  P: 0
//	transitions:
//	  decay:
//	    type: continuous
//	    rate: {expr: "0.5 * S"}
//	arcs:
//	  - {from: S, to: decay}
//	  - {from: decay, to: P}
//
// Arc weights default to 1; a timed transition without a latest bound
// gets an unbounded window.
package petrifile

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hfpn-dev/hfpn"
)

// File is the YAML shape of a net definition.
type File struct {
	Name        string                    `yaml:"name"`
	Places      map[string]PlaceDef       `yaml:"places"`
	Transitions map[string]*TransitionDef `yaml:"transitions"`
	Arcs        []ArcDef                  `yaml:"arcs"`
}

// PlaceDef holds the initial marking of one place. It accepts either a
// bare number or an {initial: n} mapping.
type PlaceDef struct {
	Initial float64 `yaml:"initial"`
}

func (p *PlaceDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&p.Initial)
	}
	type raw PlaceDef
	return node.Decode((*raw)(p))
}

// TransitionDef is one transition entry. Type defaults to immediate.
type TransitionDef struct {
	Type     string   `yaml:"type,omitempty"`
	Priority int      `yaml:"priority,omitempty"`
	Guard    string   `yaml:"guard,omitempty"`
	Earliest float64  `yaml:"earliest,omitempty"`
	Latest   *float64 `yaml:"latest,omitempty"`
	Rate     float64  `yaml:"rate,omitempty"`
	Flow     *RateDef `yaml:"flow,omitempty"`
	Source   bool     `yaml:"source,omitempty"`
	Sink     bool     `yaml:"sink,omitempty"`
	Burst    int      `yaml:"burst,omitempty"`
}

// RateDef is the flow rate of a continuous transition.
type RateDef struct {
	Constant float64  `yaml:"constant,omitempty"`
	Expr     string   `yaml:"expr,omitempty"`
	Min      *float64 `yaml:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty"`
}

// ArcDef is one arc entry. Kind defaults to normal and weight to 1.
type ArcDef struct {
	From      string   `yaml:"from"`
	To        string   `yaml:"to"`
	Kind      string   `yaml:"kind,omitempty"`
	Weight    *float64 `yaml:"weight,omitempty"`
	Expr      string   `yaml:"expr,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// Load decodes one document from r and builds the net it defines.
func Load(r io.Reader) (*hfpn.Net, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode net definition: %w", err)
	}
	return f.Net()
}

// LoadFile is Load over the named file.
func LoadFile(path string) (*hfpn.Net, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	n, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Net builds and validates the defined net. Places and transitions are
// created in sorted name order so a definition always produces the
// same discovery order.
func (f *File) Net() (*hfpn.Net, error) {
	net := hfpn.NewNet(f.Name)

	places := make(map[string]*hfpn.Place, len(f.Places))
	for _, name := range sorted(f.Places) {
		p := hfpn.NewPlace(name, f.Places[name].Initial)
		places[name] = p
		net.WithPlaces(p)
	}

	transitions := make(map[string]*hfpn.Transition, len(f.Transitions))
	for _, name := range sorted(f.Transitions) {
		t, err := f.Transitions[name].build(name)
		if err != nil {
			return nil, err
		}
		transitions[name] = t
		net.WithTransitions(t)
	}

	for i, d := range f.Arcs {
		a, err := d.build(places, transitions)
		if err != nil {
			return nil, fmt.Errorf("arc %d: %w", i, err)
		}
		if err := net.Add(a); err != nil {
			return nil, fmt.Errorf("arc %d: %w", i, err)
		}
	}

	if err := net.Validate(); err != nil {
		return nil, err
	}
	return net, nil
}

func (d *TransitionDef) build(name string) (*hfpn.Transition, error) {
	var t *hfpn.Transition
	switch d.Type {
	case "", "immediate":
		t = hfpn.NewTransition(name)
	case "timed":
		latest := math.Inf(1)
		if d.Latest != nil {
			latest = *d.Latest
		}
		t = hfpn.NewTimed(name, d.Earliest, latest)
	case "stochastic":
		t = hfpn.NewStochastic(name, d.Rate)
	case "continuous":
		if d.Flow == nil {
			return nil, fmt.Errorf("transition %s: continuous needs a flow", name)
		}
		t = hfpn.NewContinuous(name, &hfpn.RateFunc{
			Constant: d.Flow.Constant,
			Expr:     d.Flow.Expr,
			Min:      d.Flow.Min,
			Max:      d.Flow.Max,
		})
	default:
		return nil, fmt.Errorf("transition %s: unknown type %q", name, d.Type)
	}
	if d.Priority != 0 {
		t.WithPriority(d.Priority)
	}
	if d.Guard != "" {
		t.WithGuard(hfpn.ExprGuard(d.Guard))
	}
	if d.Source {
		t.AsSource()
	}
	if d.Sink {
		t.AsSink()
	}
	if d.Burst != 0 {
		t.WithBurst(d.Burst)
	}
	return t, nil
}

func (d *ArcDef) build(places map[string]*hfpn.Place, transitions map[string]*hfpn.Transition) (*hfpn.Arc, error) {
	resolve := func(name string) (hfpn.Node, error) {
		if p, ok := places[name]; ok {
			return p, nil
		}
		if t, ok := transitions[name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("unknown node %q", name)
	}
	from, err := resolve(d.From)
	if err != nil {
		return nil, err
	}
	to, err := resolve(d.To)
	if err != nil {
		return nil, err
	}

	weight := 1.0
	if d.Weight != nil {
		weight = *d.Weight
	}

	var a *hfpn.Arc
	switch d.Kind {
	case "", "normal":
		a = hfpn.NewArc(from, to, weight)
	case "inhibitor", "test", "reset":
		p, ok := from.(*hfpn.Place)
		if !ok {
			return nil, fmt.Errorf("%s arc must start at a place, not %q", d.Kind, d.From)
		}
		t, ok := to.(*hfpn.Transition)
		if !ok {
			return nil, fmt.Errorf("%s arc must end at a transition, not %q", d.Kind, d.To)
		}
		switch d.Kind {
		case "inhibitor":
			threshold := weight
			if d.Threshold != nil {
				threshold = *d.Threshold
			}
			a = hfpn.NewInhibitor(p, t, weight, threshold)
		case "test":
			a = hfpn.NewTest(p, t, weight)
		case "reset":
			a = hfpn.NewReset(p, t)
		}
	default:
		return nil, fmt.Errorf("unknown arc kind %q", d.Kind)
	}
	if d.Expr != "" {
		a.WithExpr(d.Expr)
	}
	return a, nil
}

// Save writes n as a YAML document. Loading the output reproduces the
// net's structure and initial marking; runtime token counts are not
// part of a definition.
func Save(w io.Writer, n *hfpn.Net) error {
	f := File{
		Name:        n.Name,
		Places:      make(map[string]PlaceDef, len(n.Places)),
		Transitions: make(map[string]*TransitionDef, len(n.Transitions)),
	}
	for _, p := range n.Places {
		f.Places[p.Name] = PlaceDef{Initial: p.Initial}
	}
	for _, t := range n.Transitions {
		f.Transitions[t.Name] = defOf(t)
	}
	for _, t := range n.Transitions {
		for _, a := range n.Inputs(t) {
			f.Arcs = append(f.Arcs, arcDefOf(a, a.Place.Name, t.Name))
		}
		for _, a := range n.Outputs(t) {
			f.Arcs = append(f.Arcs, arcDefOf(a, t.Name, a.Place.Name))
		}
	}

	enc := yaml.NewEncoder(w)
	defer func() {
		_ = enc.Close()
	}()
	return enc.Encode(&f)
}

func defOf(t *hfpn.Transition) *TransitionDef {
	d := &TransitionDef{
		Priority: t.Priority,
		Source:   t.IsSource,
		Sink:     t.IsSink,
		Burst:    t.MaxBurst,
	}
	switch t.Type {
	case hfpn.Immediate:
		d.Type = "immediate"
	case hfpn.Timed:
		d.Type = "timed"
		d.Earliest = t.Earliest
		if !math.IsInf(t.Latest, 1) {
			latest := t.Latest
			d.Latest = &latest
		}
	case hfpn.Stochastic:
		d.Type = "stochastic"
		d.Rate = t.Rate
	case hfpn.Continuous:
		d.Type = "continuous"
		if t.RateFunc != nil {
			d.Flow = &RateDef{
				Constant: t.RateFunc.Constant,
				Expr:     t.RateFunc.Expr,
				Min:      t.RateFunc.Min,
				Max:      t.RateFunc.Max,
			}
		}
	}
	if g := t.Guard; g != nil {
		switch {
		case g.Expr != "":
			d.Guard = g.Expr
		case g.Bool != nil:
			d.Guard = fmt.Sprintf("%t", *g.Bool)
		case g.Value != nil:
			d.Guard = fmt.Sprintf("%g", *g.Value)
		}
	}
	return d
}

func arcDefOf(a *hfpn.Arc, from, to string) ArcDef {
	d := ArcDef{From: from, To: to, Expr: a.WeightExpr}
	if a.Weight != 1 {
		w := a.Weight
		d.Weight = &w
	}
	switch a.Kind {
	case hfpn.InhibitorArc:
		d.Kind = "inhibitor"
		d.Threshold = a.Threshold
	case hfpn.TestArc:
		d.Kind = "test"
	case hfpn.ResetArc:
		d.Kind = "reset"
	}
	return d
}

func sorted[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

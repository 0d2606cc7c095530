// Package analysis derives the structural views the simulator needs
// from a net: preset/postset place sets, each transition's locality,
// and the independence relation that makes batched firing safe.
package analysis

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hfpn-dev/hfpn"
)

// Analyzer precomputes per-transition place sets for one net. All
// lookups are keyed by node identity; the analyzer never resolves a
// name.
type Analyzer struct {
	net    *hfpn.Net
	pIndex map[*hfpn.Place]int
	tIndex map[*hfpn.Transition]int

	preset   map[*hfpn.Transition][]*hfpn.Place
	postset  map[*hfpn.Transition][]*hfpn.Place
	locality map[*hfpn.Transition]map[*hfpn.Place]struct{}
}

// New builds an analyzer over net.
func New(net *hfpn.Net) *Analyzer {
	a := &Analyzer{
		net:      net,
		pIndex:   make(map[*hfpn.Place]int, len(net.Places)),
		tIndex:   make(map[*hfpn.Transition]int, len(net.Transitions)),
		preset:   make(map[*hfpn.Transition][]*hfpn.Place),
		postset:  make(map[*hfpn.Transition][]*hfpn.Place),
		locality: make(map[*hfpn.Transition]map[*hfpn.Place]struct{}),
	}
	for i, p := range net.Places {
		a.pIndex[p] = i
	}
	for i, t := range net.Transitions {
		a.tIndex[t] = i
		set := make(map[*hfpn.Place]struct{})
		for _, arc := range net.Inputs(t) {
			a.preset[t] = append(a.preset[t], arc.Place)
			set[arc.Place] = struct{}{}
		}
		for _, arc := range net.Outputs(t) {
			a.postset[t] = append(a.postset[t], arc.Place)
			set[arc.Place] = struct{}{}
		}
		a.locality[t] = set
	}
	return a
}

// Preset returns the input places of t. Empty for a source transition.
func (a *Analyzer) Preset(t *hfpn.Transition) []*hfpn.Place {
	return a.preset[t]
}

// Postset returns the output places of t. Empty for a sink transition.
func (a *Analyzer) Postset(t *hfpn.Transition) []*hfpn.Place {
	return a.postset[t]
}

// Locality returns preset union postset: every place whose marking t
// reads or writes when it fires.
func (a *Analyzer) Locality(t *hfpn.Transition) []*hfpn.Place {
	set := a.locality[t]
	pp := make([]*hfpn.Place, 0, len(set))
	for _, p := range a.net.Places {
		if _, ok := set[p]; ok {
			pp = append(pp, p)
		}
	}
	return pp
}

// Independent reports whether the localities of t1 and t2 are disjoint.
// Independent transitions may fire within one phase in either order, or
// batched, with identical results.
func (a *Analyzer) Independent(t1, t2 *hfpn.Transition) bool {
	s1, s2 := a.locality[t1], a.locality[t2]
	if len(s2) < len(s1) {
		s1, s2 = s2, s1
	}
	for p := range s1 {
		if _, ok := s2[p]; ok {
			return false
		}
	}
	return true
}

// Overlaps reports whether t's locality intersects any place in set.
func (a *Analyzer) Overlaps(t *hfpn.Transition, set map[*hfpn.Place]struct{}) bool {
	for p := range a.locality[t] {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}

// AddLocality adds t's locality into set.
func (a *Analyzer) AddLocality(t *hfpn.Transition, set map[*hfpn.Place]struct{}) {
	for p := range a.locality[t] {
		set[p] = struct{}{}
	}
}

// Incidence returns the weighted incidence matrix: one row per
// transition, one column per place, production minus consumption of a
// single firing. Inhibitor and test arcs contribute nothing; a reset
// arc's drain depends on the marking and is likewise omitted.
func (a *Analyzer) Incidence() *mat.Dense {
	m := len(a.net.Places)
	n := len(a.net.Transitions)
	if m == 0 || n == 0 {
		return nil
	}
	d := mat.NewDense(n, m, nil)
	for _, arc := range a.net.Arcs {
		if arc.Kind != hfpn.NormalArc || arc.WeightExpr != "" {
			continue
		}
		ti := a.tIndex[arc.Transition]
		pi := a.pIndex[arc.Place]
		if arc.IsInput() {
			d.Set(ti, pi, d.At(ti, pi)-arc.Weight)
		} else {
			d.Set(ti, pi, d.At(ti, pi)+arc.Weight)
		}
	}
	return d
}

// FiringVector returns the unit row vector selecting t.
func (a *Analyzer) FiringVector(t *hfpn.Transition) *mat.Dense {
	v := make([]float64, len(a.net.Transitions))
	if i, ok := a.tIndex[t]; ok {
		v[i] = 1
	}
	return mat.NewDense(1, len(a.net.Transitions), v)
}

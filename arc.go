package hfpn

import "fmt"

// ArcKind selects the semantics of an arc.
type ArcKind int

const (
	// NormalArc consumes (place to transition) or produces (transition to
	// place) Weight tokens on firing.
	NormalArc ArcKind = iota
	// InhibitorArc blocks its transition while the place holds at least
	// the effective threshold of tokens. The weight still governs the
	// amount consumed on firing.
	InhibitorArc
	// TestArc requires the effective threshold of tokens but consumes
	// nothing.
	TestArc
	// ResetArc drains its place to zero on firing and imposes no
	// enablement constraint.
	ResetArc
)

func (k ArcKind) String() string {
	switch k {
	case NormalArc:
		return "normal"
	case InhibitorArc:
		return "inhibitor"
	case TestArc:
		return "test"
	case ResetArc:
		return "reset"
	}
	return "unknown"
}

// Arc connects one place and one transition. Src and Dest give the
// direction; Place and Transition are the same two nodes regardless of
// direction, for callers that do not care which end is which.
type Arc struct {
	ID   string `json:"_id"`
	Src  Node   `json:"-"`
	Dest Node   `json:"-"`
	Kind ArcKind
	// Weight is the consumption or production amount. Ignored when
	// WeightExpr is set.
	Weight float64
	// WeightExpr, when non-empty, is evaluated against the marking and
	// current time to obtain the weight.
	WeightExpr string
	// Threshold, when set, supersedes the weight for the enablement
	// check only.
	Threshold *float64

	Place      *Place
	Transition *Transition
}

// NewArc creates a normal arc with the given weight.
func NewArc(from, to Node, weight float64) *Arc {
	a := &Arc{
		ID:     ID(),
		Src:    from,
		Dest:   to,
		Kind:   NormalArc,
		Weight: weight,
	}
	switch f := from.(type) {
	case *Place:
		a.Place = f
	case *Transition:
		a.Transition = f
	}
	switch t := to.(type) {
	case *Place:
		a.Place = t
	case *Transition:
		a.Transition = t
	}
	return a
}

// NewInhibitor creates an inhibitor arc from a place to a transition.
// The transition is blocked while the place holds at least threshold
// tokens.
func NewInhibitor(from *Place, to *Transition, weight, threshold float64) *Arc {
	a := NewArc(from, to, weight)
	a.Kind = InhibitorArc
	a.Threshold = &threshold
	return a
}

// NewTest creates a test arc from a place to a transition.
func NewTest(from *Place, to *Transition, weight float64) *Arc {
	a := NewArc(from, to, weight)
	a.Kind = TestArc
	return a
}

// NewReset creates a reset arc from a place to a transition.
func NewReset(from *Place, to *Transition) *Arc {
	a := NewArc(from, to, 0)
	a.Kind = ResetArc
	return a
}

// WithExpr replaces the fixed weight with an expression.
func (a *Arc) WithExpr(src string) *Arc {
	a.WeightExpr = src
	return a
}

// WithThreshold sets the enablement threshold.
func (a *Arc) WithThreshold(v float64) *Arc {
	a.Threshold = &v
	return a
}

// EffectiveThreshold is the amount checked for enablement: the threshold
// if present, else the given weight.
func (a *Arc) EffectiveThreshold(weight float64) float64 {
	if a.Threshold != nil {
		return *a.Threshold
	}
	return weight
}

// IsInput reports whether the arc feeds its transition from its place.
func (a *Arc) IsInput() bool {
	return a.Src != nil && a.Src.Kind() == PlaceObject
}

func (a *Arc) Identifier() string { return a.ID }

func (a *Arc) String() string {
	return fmt.Sprintf("%s -> %s", a.Src, a.Dest)
}

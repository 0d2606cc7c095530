package hfpn

import "math"

var _ Node = (*Transition)(nil)

// TransitionType selects the firing discipline of a transition.
type TransitionType int

const (
	// Immediate transitions fire in zero simulated time, exhaustively,
	// until none remains enabled.
	Immediate TransitionType = iota
	// Timed transitions fire within an [Earliest, Latest] window measured
	// from the moment they became enabled.
	Timed
	// Stochastic transitions fire after an exponentially distributed
	// delay sampled when they become enabled.
	Stochastic
	// Continuous transitions transfer tokens at a rate integrated over
	// each step.
	Continuous
)

func (t TransitionType) String() string {
	switch t {
	case Immediate:
		return "immediate"
	case Timed:
		return "timed"
	case Stochastic:
		return "stochastic"
	case Continuous:
		return "continuous"
	}
	return "unknown"
}

// Guard gates a transition's enablement. Exactly one field is set: a
// boolean literal, a numeric value (passes while > 0), or an expression
// evaluated against the marking and current time. An expression that
// fails to evaluate counts as a failed guard, never as an engine error.
type Guard struct {
	Bool  *bool
	Value *float64
	Expr  string
}

// BoolGuard returns a literal guard.
func BoolGuard(b bool) *Guard { return &Guard{Bool: &b} }

// ValueGuard returns a numeric guard that passes while v > 0.
func ValueGuard(v float64) *Guard { return &Guard{Value: &v} }

// ExprGuard returns an expression guard.
func ExprGuard(src string) *Guard { return &Guard{Expr: src} }

// RateFunc describes how a continuous transition's rate is obtained each
// step. If Expr is empty the rate is Constant; otherwise the expression
// is evaluated against the marking and current time. Min and Max, when
// set, clamp the evaluated rate.
type RateFunc struct {
	Constant float64
	Expr     string
	Min      *float64
	Max      *float64
}

// Clamp applies the configured bounds to r. Negative rates are always
// clamped to zero; tokens only flow forward through a transition.
func (f *RateFunc) Clamp(r float64) float64 {
	if f.Min != nil && r < *f.Min {
		r = *f.Min
	}
	if f.Max != nil && r > *f.Max {
		r = *f.Max
	}
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	return r
}

// Transition consumes and produces tokens under one of the four firing
// disciplines. The type-specific fields are read only by the matching
// behavior.
type Transition struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
	Type TransitionType
	// Priority orders simultaneously enabled transitions; higher fires
	// first.
	Priority int
	// Guard gates enablement; nil means always pass.
	Guard *Guard
	// IsSource marks a transition with no preset that generates tokens.
	IsSource bool
	// IsSink marks a transition with no postset that absorbs tokens.
	IsSink bool

	// Earliest and Latest bound the firing window of a timed transition,
	// measured from enablement. Latest may be math.Inf(1) for an
	// unbounded window.
	Earliest float64
	Latest   float64

	// Rate parameterizes the exponential delay of a stochastic
	// transition; higher rate means shorter expected delay.
	Rate float64
	// MaxBurst caps consecutive firings within one enablement episode of
	// a stochastic transition; zero means unbounded.
	MaxBurst int

	// RateFunc drives a continuous transition.
	RateFunc *RateFunc
}

// NewTransition creates an immediate transition with priority 0.
func NewTransition(name string) *Transition {
	return &Transition{
		ID:     ID(),
		Name:   name,
		Type:   Immediate,
		Latest: math.Inf(1),
	}
}

// NewTimed creates a timed transition firing within [earliest, latest]
// of enablement. Pass math.Inf(1) for an unbounded latest.
func NewTimed(name string, earliest, latest float64) *Transition {
	t := NewTransition(name)
	t.Type = Timed
	t.Earliest = earliest
	t.Latest = latest
	return t
}

// NewStochastic creates a stochastic transition with the given rate.
func NewStochastic(name string, rate float64) *Transition {
	t := NewTransition(name)
	t.Type = Stochastic
	t.Rate = rate
	return t
}

// NewContinuous creates a continuous transition driven by f.
func NewContinuous(name string, f *RateFunc) *Transition {
	t := NewTransition(name)
	t.Type = Continuous
	t.RateFunc = f
	return t
}

// WithPriority sets the conflict priority.
func (t *Transition) WithPriority(p int) *Transition {
	t.Priority = p
	return t
}

// WithGuard sets the guard.
func (t *Transition) WithGuard(g *Guard) *Transition {
	t.Guard = g
	return t
}

// AsSource marks the transition as a token source.
func (t *Transition) AsSource() *Transition {
	t.IsSource = true
	return t
}

// AsSink marks the transition as a token sink.
func (t *Transition) AsSink() *Transition {
	t.IsSink = true
	return t
}

// WithBurst caps consecutive stochastic firings per enablement episode.
func (t *Transition) WithBurst(n int) *Transition {
	t.MaxBurst = n
	return t
}

func (t *Transition) Kind() Kind { return TransitionObject }

func (t *Transition) Identifier() string { return t.ID }

func (t *Transition) String() string { return t.Name }

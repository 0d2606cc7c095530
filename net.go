package hfpn

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNotBipartite  = errors.New("arc must connect a place and a transition")
	ErrDuplicateArc  = errors.New("arc already exists")
	ErrMalformedNode = errors.New("malformed node")
)

// Net is the model graph the engine executes. Places, transitions, and
// arcs are created and edited outside the engine; the engine only reads
// the structure and mutates token quantities.
//
// Adjacency is keyed by node identity, never by name. Two places that
// happen to share a name stay distinct throughout execution.
type Net struct {
	ID          string
	Name        string
	Places      []*Place
	Transitions []*Transition
	Arcs        []*Arc

	inputs  map[Node][]*Arc
	outputs map[Node][]*Arc
}

// NewNet creates an empty net.
func NewNet(name string) *Net {
	return &Net{
		ID:      ID(),
		Name:    name,
		inputs:  make(map[Node][]*Arc),
		outputs: make(map[Node][]*Arc),
	}
}

// WithPlaces adds places to the net.
func (n *Net) WithPlaces(pp ...*Place) *Net {
	n.Places = append(n.Places, pp...)
	return n
}

// WithTransitions adds transitions to the net.
func (n *Net) WithTransitions(tt ...*Transition) *Net {
	n.Transitions = append(n.Transitions, tt...)
	return n
}

// WithArcs adds arcs to the net, panicking on a malformed arc. Use
// AddArc for error handling; WithArcs is for building nets in code
// where a bad arc is a programming error.
func (n *Net) WithArcs(aa ...*Arc) *Net {
	for _, a := range aa {
		if err := n.addArc(a); err != nil {
			panic(fmt.Errorf("arc %s: %w", a, err))
		}
	}
	return n
}

// AddArc connects from and to with a normal arc of the given weight.
func (n *Net) AddArc(from, to Node, weight float64) (*Arc, error) {
	a := NewArc(from, to, weight)
	if err := n.addArc(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Add attaches a prepared arc, rejecting malformed, non-bipartite, and
// duplicate connections.
func (n *Net) Add(a *Arc) error {
	return n.addArc(a)
}

func (n *Net) addArc(a *Arc) error {
	if a.Src == nil || a.Dest == nil {
		return ErrMalformedNode
	}
	if a.Src.Kind() == a.Dest.Kind() {
		return ErrNotBipartite
	}
	for _, existing := range n.outputs[a.Src] {
		if existing.Dest == a.Dest && existing.Kind == a.Kind {
			return ErrDuplicateArc
		}
	}
	if n.inputs == nil {
		n.inputs = make(map[Node][]*Arc)
		n.outputs = make(map[Node][]*Arc)
	}
	n.Arcs = append(n.Arcs, a)
	n.outputs[a.Src] = append(n.outputs[a.Src], a)
	n.inputs[a.Dest] = append(n.inputs[a.Dest], a)
	return nil
}

// Inputs returns the arcs ending at node.
func (n *Net) Inputs(node Node) []*Arc {
	return n.inputs[node]
}

// Outputs returns the arcs starting at node.
func (n *Net) Outputs(node Node) []*Arc {
	return n.outputs[node]
}

// Place looks a place up by name. Intended for building nets and for
// tests; the engine itself never resolves nodes by name.
func (n *Net) Place(name string) *Place {
	for _, p := range n.Places {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Transition looks a transition up by name.
func (n *Net) Transition(name string) *Transition {
	for _, t := range n.Transitions {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TransitionByID looks a transition up by its identifier.
func (n *Net) TransitionByID(id string) *Transition {
	for _, t := range n.Transitions {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Marking returns the current token quantities keyed by place name, the
// shape guard and rate expressions see.
func (n *Net) Marking() map[string]float64 {
	m := make(map[string]float64, len(n.Places))
	for _, p := range n.Places {
		m[p.Name] = p.Tokens
	}
	return m
}

// TotalTokens sums the tokens across all places.
func (n *Net) TotalTokens() float64 {
	var sum float64
	for _, p := range n.Places {
		sum += p.Tokens
	}
	return sum
}

// ResetMarking restores every place to its initial marking.
func (n *Net) ResetMarking() {
	for _, p := range n.Places {
		p.Reset()
	}
}

// Validate checks the structural invariants the engine assumes hold
// before simulation starts: bipartite arcs, source transitions with an
// empty preset and non-empty postset, sinks the other way around, and
// ordinary transitions with both. Inhibitor, test, and reset arcs must
// feed a transition; they have no meaning as outputs.
func (n *Net) Validate() error {
	for _, a := range n.Arcs {
		if a.Src == nil || a.Dest == nil || a.Src.Kind() == a.Dest.Kind() {
			return fmt.Errorf("arc %s: %w", a, ErrNotBipartite)
		}
		if a.Kind != NormalArc && !a.IsInput() {
			return fmt.Errorf("arc %s: %s arc must end at a transition", a, a.Kind)
		}
		if a.Transition != nil && a.Transition.Type == Continuous {
			if a.Kind == ResetArc {
				return fmt.Errorf("arc %s: reset arc on continuous transition", a)
			}
			if a.WeightExpr != "" {
				return fmt.Errorf("arc %s: continuous transitions require fixed arc weights", a)
			}
		}
	}
	for _, t := range n.Transitions {
		pre := len(n.inputs[t])
		post := len(n.outputs[t])
		switch {
		case t.IsSource && t.IsSink:
			return fmt.Errorf("transition %s: cannot be both source and sink", t)
		case t.IsSource && (pre != 0 || post == 0):
			return fmt.Errorf("transition %s: source must have an empty preset and a non-empty postset", t)
		case t.IsSink && (post != 0 || pre == 0):
			return fmt.Errorf("transition %s: sink must have an empty postset and a non-empty preset", t)
		case !t.IsSource && !t.IsSink && (pre == 0 || post == 0):
			return fmt.Errorf("transition %s: must have both inputs and outputs unless marked source or sink", t)
		}
	}
	return nil
}

func (n *Net) Kind() Kind { return NetObject }

func (n *Net) Identifier() string { return n.ID }

func (n *Net) String() string { return n.Name }

// New assembles a net from prebuilt parts, indexing the arcs.
func New(places []*Place, transitions []*Transition, arcs []*Arc, name ...string) *Net {
	nn := ""
	if len(name) > 0 {
		nn = name[0]
	}
	net := NewNet(nn)
	net.WithPlaces(places...)
	net.WithTransitions(transitions...)
	return net.WithArcs(arcs...)
}

package hfpn

// Kind discriminates the objects that make up a net.
type Kind int

const (
	PlaceObject Kind = iota
	TransitionObject
	ArcObject
	NetObject
)

// Node is either a Place or a Transition. Arcs connect exactly one of
// each; the Kind check in AddArc keeps the graph bipartite.
type Node interface {
	Kind() Kind
	Identifier() string
	String() string
}

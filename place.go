package hfpn

import "fmt"

var _ Node = (*Place)(nil)

// Place holds a non-negative token quantity. Tokens are mutated only by
// transition firing or by ResetMarking.
type Place struct {
	ID string `json:"_id"`
	// Name is the name of the place. Guard and rate expressions refer to
	// places by name.
	Name string `json:"name,omitempty"`
	// Tokens is the current token quantity.
	Tokens float64 `json:"tokens"`
	// Initial is the marking restored on reset.
	Initial float64 `json:"initial"`
}

// NewPlace creates a new place holding the given initial marking.
func NewPlace(name string, initial float64) *Place {
	return &Place{
		ID:      ID(),
		Name:    name,
		Tokens:  initial,
		Initial: initial,
	}
}

// Reset restores the place to its initial marking.
func (p *Place) Reset() {
	p.Tokens = p.Initial
}

func (p *Place) Kind() Kind { return PlaceObject }

func (p *Place) Identifier() string { return p.ID }

func (p *Place) String() string { return p.Name }

func (p *Place) GoString() string {
	return fmt.Sprintf("%s(%g)", p.Name, p.Tokens)
}

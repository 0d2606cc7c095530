package hfpn

import "github.com/google/uuid"

// ID returns a fresh unique identifier for a node or arc.
func ID() string {
	return uuid.New().String()
}

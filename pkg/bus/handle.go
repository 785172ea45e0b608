package bus

import (
	"github.com/google/uuid"
)

// Handle identifies one registered subscription against one target.
//
// Handles are compared by id only; two handles created for the same target are
// never equal. A nil *Handle is treated as an absent argument.
type Handle[K comparable] struct {
	id     uuid.UUID
	target K
}

// NewHandle creates a handle with a fresh random id
func NewHandle[K comparable](target K) *Handle[K] {
	return &Handle[K]{
		id:     uuid.New(),
		target: target,
	}
}

// ID returns the unique id
func (h *Handle[K]) ID() uuid.UUID {
	return h.id
}

// Target returns the target key the subscription was registered under
func (h *Handle[K]) Target() K {
	return h.target
}

// Equal reports whether h and other identify the same subscription
func (h *Handle[K]) Equal(other *Handle[K]) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.id == other.id
}

func (h *Handle[K]) String() string {
	if h == nil {
		return "<nil>"
	}
	return h.id.String()
}

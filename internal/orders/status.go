// Package orders defines the order lifecycle shared by purchasing and sales.
package orders

// Status enumerates order lifecycle states.
type Status string

const (
	// StatusPending is the initial state of every order.
	StatusPending Status = "PENDING"
	// StatusCompleted marks an order whose inventory effects were applied.
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled marks an order abandoned before completion.
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are accepted out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an order may move from one status to another.
// Same-state transitions are allowed so that repeated saves stay idempotent;
// COMPLETED and CANCELLED accept nothing else.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	return from == StatusPending
}

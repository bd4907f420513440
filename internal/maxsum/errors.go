package maxsum

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasibleAssignment is returned when no assignment satisfies the
	// capacity and pairing constraints.
	ErrInfeasibleAssignment = errors.New("no feasible assignment of units to resources")
	// ErrInsufficientValue is returned when the best assignment is worth less
	// than the house cost.
	ErrInsufficientValue = errors.New("bids are too low to cover the house cost")
)

// InsufficientValueError reports by how much the maxsum falls short.
type InsufficientValueError struct {
	Maxsum    float64
	HouseCost float64
}

func (e *InsufficientValueError) Error() string {
	return fmt.Sprintf("%s: maxsum %.2f is below house cost %.2f", ErrInsufficientValue, e.Maxsum, e.HouseCost)
}

func (e *InsufficientValueError) Unwrap() error {
	return ErrInsufficientValue
}

// Shortfall is the amount the bids would need to rise in total.
func (e *InsufficientValueError) Shortfall() float64 {
	return e.HouseCost - e.Maxsum
}

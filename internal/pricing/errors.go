package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrPricingNontermination is returned when the descent cannot lower any
	// price while surplus remains.
	ErrPricingNontermination = errors.New("second-price descent cannot reach the house cost")
	// ErrEnvyInfeasible is returned when no non-negative envy-free price
	// vector sums to the house cost.
	ErrEnvyInfeasible = errors.New("no non-negative envy-free prices sum to the house cost")
	// ErrUnknownMethod is returned for unrecognised pricing method names.
	ErrUnknownMethod = errors.New("unknown pricing method")
)

// NonterminationError carries the state the descent was stuck in.
type NonterminationError struct {
	Rounds  int
	Surplus float64
	Reason  string
}

func (e *NonterminationError) Error() string {
	return fmt.Sprintf("%s: %s after %d rounds with surplus %.2f", ErrPricingNontermination, e.Reason, e.Rounds, e.Surplus)
}

func (e *NonterminationError) Unwrap() error {
	return ErrPricingNontermination
}

package solver

import "errors"

var (
	// ErrInfeasible is returned when no point satisfies every constraint.
	ErrInfeasible = errors.New("program is infeasible")
	// ErrUnbounded is returned when the objective can improve without limit.
	ErrUnbounded = errors.New("program is unbounded")
	// ErrNodeLimit is returned when branch-and-bound exhausts its node budget.
	ErrNodeLimit = errors.New("branch-and-bound node limit reached")
	// ErrMalformed is returned for programs with invalid indices or coefficients.
	ErrMalformed = errors.New("malformed program")
	// ErrNumerical wraps failures of the underlying simplex routine.
	ErrNumerical = errors.New("simplex failed")
)

package problem

import (
	"errors"
	"strings"
)

// ErrValidation is the sentinel every ValidationError unwraps to.
var ErrValidation = errors.New("invalid division problem")

// ValidationError lists every inconsistency found in an Input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

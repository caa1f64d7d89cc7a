// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

// ValidationError marks a rejected request: user input was bad or the selected
// rows were no longer in a settleable state. Nothing was mutated.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrNoValidCommissions is returned when none of the selected commissions are
// in a settleable state. This is also the benign outcome of losing a
// concurrent settlement race: the second request re-reads after the first
// commits and finds nothing left to settle.
var ErrNoValidCommissions = NewValidationError("no valid commissions found")

// ErrBatchNotFound is returned by reversal when the payment batch id is
// unknown.
var ErrBatchNotFound = NewValidationError("payment batch not found")

package payments

import (
	"errors"
	"fmt"
)

var (
	ErrIntentNotFound = errors.New("pending payment not found")
	ErrIntentExpired  = errors.New("pending payment expired")
	ErrIntentConsumed = errors.New("pending payment already processed")

	// ErrStatusAmbiguous marks a NETS poll that timed out without a
	// definitive answer: the charge may still have gone through on the
	// provider side. Callers must surface this instead of discarding it.
	ErrStatusAmbiguous = errors.New("payment status ambiguous after polling window")
)

// CardValidationError carries field-level messages for the simulated card
// rail so the checkout form can highlight the offending inputs.
type CardValidationError struct {
	Fields map[string]string
}

func (e *CardValidationError) Error() string {
	return fmt.Sprintf("card validation failed (%d fields)", len(e.Fields))
}

package checkout

import (
	"errors"
	"fmt"
)

const (
	GenericErrorMessage = "An unexpected error occurred."
	CartChangedMessage  = "Your cart changed. Please review your order and pay again."
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition = errors.New("illegal transition of checkout state")
)

// ValidationError is raised before any network call and is always fixable
// by the shopper.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Provider error types whose message is safe to show verbatim.
const (
	ErrorTypeCard       = "card_error"
	ErrorTypeValidation = "validation_error"
)

// ProviderError is a failure reported by the payment provider while
// submitting or confirming the embedded payment element.
type ProviderError struct {
	Type    string
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// UserMessage is what the shopper sees for a confirmation failure. Only
// card and validation errors keep the provider's own wording.
func UserMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && (pe.Type == ErrorTypeCard || pe.Type == ErrorTypeValidation) {
		return pe.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return GenericErrorMessage
}

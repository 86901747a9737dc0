package checkout

import "context"

type ConfirmParams struct {
	ClientSecret string
	IntentID     string
	// ReturnURL is where redirect-based payment methods come back to.
	ReturnURL string
	// Email is used as the receipt address and billing contact.
	Email string
}

// PaymentElement is the provider-hosted payment input mounted once a client
// secret exists.
type PaymentElement interface {
	// Submit validates what the shopper entered.
	Submit(ctx context.Context) error
	Confirm(ctx context.Context, params ConfirmParams) error
}

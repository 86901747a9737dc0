// Package stripeconfirm confirms payment intents server side with a payment
// method the shopper's browser tokenised.
package stripeconfirm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/fitcoach/storefront/internal/checkout"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// Confirmer is the part of the Stripe payment intent API the element uses.
type Confirmer interface {
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

// NewConfirmer returns a payment intent client bound to key.
func NewConfirmer(key string) Confirmer {
	return paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key}
}

// Element is a checkout.PaymentElement backed by one payment method.
type Element struct {
	api             Confirmer
	paymentMethodID string
	log             zerolog.Logger
}

// Factory builds one element per confirmation attempt.
type Factory struct {
	api Confirmer
	log zerolog.Logger
}

func NewFactory(api Confirmer, log zerolog.Logger) *Factory {
	return &Factory{api: api, log: log}
}

func (f *Factory) Element(paymentMethodID string) checkout.PaymentElement {
	return &Element{
		api:             f.api,
		paymentMethodID: strings.TrimSpace(paymentMethodID),
		log:             f.log,
	}
}

func (e *Element) Submit(ctx context.Context) error {
	if e.paymentMethodID == "" {
		return &checkout.ProviderError{
			Type:    checkout.ErrorTypeValidation,
			Code:    "incomplete_payment_method",
			Message: "Your payment details are incomplete.",
		}
	}
	return ctx.Err()
}

func (e *Element) Confirm(ctx context.Context, p checkout.ConfirmParams) error {
	if p.IntentID == "" {
		return errors.New("payment intent id is required")
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(e.paymentMethodID),
	}
	params.Context = ctx
	if p.ReturnURL != "" {
		params.ReturnURL = stripe.String(p.ReturnURL)
	}
	if p.Email != "" {
		params.ReceiptEmail = stripe.String(p.Email)
	}

	pi, err := e.api.Confirm(p.IntentID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			e.log.Info().Str("intent_id", p.IntentID).Str("type", string(se.Type)).Str("code", string(se.Code)).Msg("stripe rejected confirmation")
			return &checkout.ProviderError{Type: string(se.Type), Code: string(se.Code), Message: se.Msg}
		}
		return fmt.Errorf("failed to confirm payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return &checkout.ProviderError{
			Type:    checkout.ErrorTypeCard,
			Code:    "payment_failed",
			Message: "Your payment was not successful, please try again.",
		}
	default:
		return &checkout.ProviderError{
			Type:    "invalid_request_error",
			Code:    string(pi.Status),
			Message: fmt.Sprintf("payment intent left in status %s", pi.Status),
		}
	}
}

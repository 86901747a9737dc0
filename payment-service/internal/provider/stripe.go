package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// Stripe creates payment intents and hosted checkout sessions.
type Stripe struct {
	intents  paymentintent.Client
	sessions session.Client
	log      zerolog.Logger
}

func NewStripe(key string, log zerolog.Logger) *Stripe {
	return NewStripeWithBackend(key, stripe.GetBackend(stripe.APIBackend), log)
}

// NewStripeWithBackend is used by tests to point the client at a fake API.
func NewStripeWithBackend(key string, b stripe.Backend, log zerolog.Logger) *Stripe {
	return &Stripe{
		intents:  paymentintent.Client{B: b, Key: key},
		sessions: session.Client{B: b, Key: key},
		log:      log,
	}
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("items", req.Manifest)
	if req.CartID != "" {
		params.AddMetadata("cart_id", req.CartID)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := s.intents.New(params)
	if err != nil {
		return nil, translate(err)
	}
	if pi.ClientSecret == "" {
		return nil, ErrNoClientSecret
	}

	s.log.Info().Str("intent_id", pi.ID).Int64("amount", req.Amount).Str("cart_id", req.CartID).Msg("payment intent created")
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Title),
		}
		if len(item.Images) > 0 {
			productData.Images = stripe.StringSlice(item.Images)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: productData,
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:                lineItems,
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		},
	}
	params.Context = ctx
	if req.CartID != "" {
		params.ClientReferenceID = stripe.String(req.CartID)
		params.AddMetadata("cart_id", req.CartID)
	}

	cs, err := s.sessions.New(params)
	if err != nil {
		return nil, translate(err)
	}

	s.log.Info().Str("session_id", cs.ID).Str("cart_id", req.CartID).Msg("checkout session created")
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

func translate(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &Error{Type: string(se.Type), Code: string(se.Code), Message: se.Msg}
	}
	return fmt.Errorf("payment provider request failed: %w", err)
}

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
)

func newTestStripe(t *testing.T, handler http.HandlerFunc) *Stripe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeWithBackend("sk_test_123", backend, zerolog.Nop())
}

func TestCreatePaymentIntent(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2555", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "cart-1", r.PostForm.Get("metadata[cart_id]"))
		assert.Equal(t, `[{"id":"p1","quantity":2}]`, r.PostForm.Get("metadata[items]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","object":"payment_intent","client_secret":"pi_1_secret_x","status":"requires_payment_method"}`))
	})

	intent, err := s.CreatePaymentIntent(context.Background(), IntentRequest{
		Amount:         2555,
		Currency:       "usd",
		CartID:         "cart-1",
		Manifest:       `[{"id":"p1","quantity":2}]`,
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret_x", intent.ClientSecret)
	assert.Equal(t, "requires_payment_method", intent.Status)
}

func TestCreatePaymentIntent_StripeError(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"amount_too_small","message":"Amount must be at least $0.50 usd"}}`))
	})

	_, err := s.CreatePaymentIntent(context.Background(), IntentRequest{Amount: 1, Currency: "usd"})
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "invalid_request_error", pe.Type)
	assert.Equal(t, "Amount must be at least $0.50 usd", pe.Error())
}

func TestCreatePaymentIntent_NoClientSecret(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","object":"payment_intent"}`))
	})

	_, err := s.CreatePaymentIntent(context.Background(), IntentRequest{Amount: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrNoClientSecret)
}

func TestCreateCheckoutSession(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "Tee", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "2999", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "true", r.PostForm.Get("allow_promotion_codes"))
		assert.Equal(t, "auto", r.PostForm.Get("billing_address_collection"))
		assert.Equal(t, "US", r.PostForm.Get("shipping_address_collection[allowed_countries][0]"))
		assert.Equal(t, "http://localhost:5173/cart", r.PostForm.Get("cancel_url"))
		assert.Equal(t, "cart-1", r.PostForm.Get("client_reference_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_1"}`))
	})

	cs, err := s.CreateCheckoutSession(context.Background(), SessionRequest{
		Items:            []LineItem{{Title: "Tee", UnitAmount: 2999, Quantity: 1}},
		Currency:         "usd",
		CartID:           "cart-1",
		SuccessURL:       "http://localhost:5173/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        "http://localhost:5173/cart",
		AllowedCountries: []string{"US"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", cs.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", cs.URL)
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fjod/fitcoach/payment-service/internal/publisher"
	r "github.com/fjod/fitcoach/payment-service/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

const maxWebhookBody = 65536

type WebhookStore interface {
	UpdateStatus(ctx context.Context, id, status string) error
	CompletePayment(ctx context.Context, pi *r.PaymentIntent, eventType string, payload []byte) error
}

type WebhookHandler struct {
	secret string
	store  WebhookStore
}

func NewWebhookHandler(secret string, store WebhookStore) *WebhookHandler {
	return &WebhookHandler{secret: secret, store: store}
}

// POST /functions/v1/stripe-webhook
func (h *WebhookHandler) Handle(w http.ResponseWriter, req *http.Request) {
	log := zerolog.Ctx(req.Context())

	payload, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxWebhookBody))
	if err != nil {
		respondError(w, req, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, req.Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Warn().Err(err).Msg("webhook signature verification failed")
		respondError(w, req, http.StatusBadRequest, "Invalid signature")
		return
	}

	if err := h.dispatch(req.Context(), event); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("failed to handle webhook event")
		respondError(w, req, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, req, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) dispatch(ctx context.Context, event stripe.Event) error {
	log := zerolog.Ctx(ctx).With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return fmt.Errorf("failed to parse payment intent: %w", err)
		}
		cartID := pi.Metadata["cart_id"]
		if cartID == "" {
			// Intents behind hosted sessions carry no cart; the session
			// completion event covers them.
			return h.updateStatus(ctx, log, pi.ID, r.StatusSucceeded)
		}
		return h.complete(ctx, &r.PaymentIntent{
			ID:       pi.ID,
			CartID:   cartID,
			Amount:   pi.Amount,
			Currency: string(pi.Currency),
			Manifest: []byte(pi.Metadata["items"]),
		})

	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return fmt.Errorf("failed to parse payment intent: %w", err)
		}
		return h.updateStatus(ctx, log, pi.ID, r.StatusFailed)

	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("failed to parse checkout session: %w", err)
		}
		cartID := cs.ClientReferenceID
		if cartID == "" {
			cartID = cs.Metadata["cart_id"]
		}
		if cartID == "" {
			log.Info().Str("session_id", cs.ID).Msg("checkout session without cart, skipping")
			return nil
		}
		id := cs.ID
		if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
			id = cs.PaymentIntent.ID
		}
		return h.complete(ctx, &r.PaymentIntent{
			ID:       id,
			CartID:   cartID,
			Amount:   cs.AmountTotal,
			Currency: string(cs.Currency),
		})

	default:
		log.Debug().Msg("ignoring webhook event")
		return nil
	}
}

func (h *WebhookHandler) complete(ctx context.Context, pi *r.PaymentIntent) error {
	payload, err := publisher.CheckoutCompletedPayload(pi)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout payload: %w", err)
	}
	return h.store.CompletePayment(ctx, pi, publisher.EventCheckoutCompleted, payload)
}

func (h *WebhookHandler) updateStatus(ctx context.Context, log zerolog.Logger, id, status string) error {
	err := h.store.UpdateStatus(ctx, id, status)
	if errors.Is(err, r.ErrIntentNotFound) {
		log.Warn().Str("intent_id", id).Msg("webhook for unknown payment intent")
		return nil
	}
	return err
}

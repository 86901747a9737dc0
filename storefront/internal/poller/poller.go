package poller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fjod/fitcoach/storefront/internal/cache"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	Topic   = "checkout-outbox"
	GroupID = "storefront"

	EventCheckoutCompleted = "checkout.completed"
)

// Reader is the subset of *kafka.Reader the poller needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CheckoutCompleted is published by the payment service once a payment
// intent for a cart succeeded.
type CheckoutCompleted struct {
	CartID   string `json:"cart_id"`
	IntentID string `json:"intent_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Poller drops mirrored carts whose checkout completed, which covers
// shoppers who paid through the hosted page and never came back.
type Poller struct {
	reader Reader
	mirror cache.CartMirror
	// onCompleted lets the HTTP layer drop its in-memory session too.
	onCompleted func(cartID string)
	log         zerolog.Logger
}

func NewPoller(mirror cache.CartMirror, onCompleted func(string), log zerolog.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6,
	})
	return NewPollerWithReader(reader, mirror, onCompleted, log)
}

func NewPollerWithReader(reader Reader, mirror cache.CartMirror, onCompleted func(string), log zerolog.Logger) *Poller {
	return &Poller{
		reader:      reader,
		mirror:      mirror,
		onCompleted: onCompleted,
		log:         log.With().Str("component", "checkout-poller").Logger(),
	}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.poll(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error().Err(err).Msg("error closing reader")
	}
}

func (p *Poller) poll(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.Error().Err(err).Msg("error reading message")
		}
		return
	}

	if t := eventType(m); t != "" && t != EventCheckoutCompleted {
		p.log.Debug().Str("event_type", t).Msg("skipping event")
		return
	}

	var evt CheckoutCompleted
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		p.log.Error().Err(err).Msg("error parsing message")
		return
	}
	if evt.CartID == "" {
		p.log.Warn().Str("intent_id", evt.IntentID).Msg("missing cart_id")
		return
	}

	if err := p.mirror.Delete(ctx, evt.CartID); err != nil {
		p.log.Error().Err(err).Str("cart_id", evt.CartID).Msg("failed to delete cart mirror")
	}
	if p.onCompleted != nil {
		p.onCompleted(evt.CartID)
	}
	p.log.Info().Str("cart_id", evt.CartID).Str("intent_id", evt.IntentID).Msg("checkout completed, cart cleared")
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

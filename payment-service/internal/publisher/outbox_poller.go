package publisher

import (
	"context"
	"time"

	r "github.com/fjod/fitcoach/payment-service/internal/repository"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	GetStuckIntents(ctx context.Context) ([]*r.PaymentIntent, error)
	CompletePayment(ctx context.Context, pi *r.PaymentIntent, eventType string, payload []byte) error
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	batchSize    int
	repo         OutboxRepository
	writer       Writer
	log          zerolog.Logger
}

func NewOutboxPoller(repo OutboxRepository, log zerolog.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewOutboxPollerWithWriter(repo, w, log)
}

func NewOutboxPollerWithWriter(repo OutboxRepository, w Writer, log zerolog.Logger) *OutboxPoller {
	return &OutboxPoller{
		eventTick:    time.Second,
		recoveryTick: 30 * time.Second,
		batchSize:    100,
		repo:         repo,
		writer:       w,
		log:          log.With().Str("component", "outbox-poller").Logger(),
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckIntents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch events")
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error().Err(err).Int("event_id", event.ID).Msg("failed to publish event")
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error().Err(err).Int("event_id", event.ID).Msg("failed to mark event as processed")
		}
	}
}

// recoverStuckIntents writes the missing outbox event for succeeded intents
// that do not have one.
func (p *OutboxPoller) recoverStuckIntents(ctx context.Context) {
	stuck, err := p.repo.GetStuckIntents(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to get stuck intents")
		return
	}

	for _, pi := range stuck {
		payload, err := CheckoutCompletedPayload(pi)
		if err != nil {
			p.log.Error().Err(err).Str("intent_id", pi.ID).Msg("failed to marshal checkout payload")
			continue
		}

		if err := p.repo.CompletePayment(ctx, pi, EventCheckoutCompleted, payload); err != nil {
			p.log.Error().Err(err).Str("intent_id", pi.ID).Msg("failed to recover stuck intent")
			continue
		}
		p.log.Info().Str("intent_id", pi.ID).Str("cart_id", pi.CartID).Msg("stuck intent recovered")
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.PartitionKey),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	r "github.com/fjod/fitcoach/payment-service/internal/repository"
	"github.com/rs/zerolog"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

type MockRepository struct {
	OutboxEvents       []*r.OutboxEvent
	GetEventsErr       error
	ProcessedIDs       []int
	StuckIntents       []*r.PaymentIntent
	GetStuckErr        error
	CompleteErr        error
	CompletedIntentIDs []string
	CompletedPayloads  [][]byte
	CompleteCallCount  int
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*r.OutboxEvent, error) {
	if m.GetEventsErr != nil {
		return nil, m.GetEventsErr
	}
	ev := m.OutboxEvents
	m.OutboxEvents = nil
	return ev, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int) error {
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockRepository) GetStuckIntents(context.Context) ([]*r.PaymentIntent, error) {
	return m.StuckIntents, m.GetStuckErr
}

func (m *MockRepository) CompletePayment(_ context.Context, pi *r.PaymentIntent, _ string, payload []byte) error {
	m.CompleteCallCount++
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	m.CompletedIntentIDs = append(m.CompletedIntentIDs, pi.ID)
	m.CompletedPayloads = append(m.CompletedPayloads, payload)
	return nil
}

type MockWriter struct {
	Messages []kafkaGo.Message
	Err      error
}

func (w *MockWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if w.Err != nil {
		return w.Err
	}
	w.Messages = append(w.Messages, msgs...)
	return nil
}

func (w *MockWriter) Close() error { return nil }

func completedEvent(id int, cartID string) *r.OutboxEvent {
	return &r.OutboxEvent{
		ID:           id,
		AggregateID:  fmt.Sprintf("pi_%d", id),
		PartitionKey: cartID,
		EventType:    EventCheckoutCompleted,
		Payload:      []byte(fmt.Sprintf(`{"cart_id":%q,"intent_id":"pi_%d","amount":2999,"currency":"usd"}`, cartID, id)),
		CreatedAt:    time.Now(),
	}
}

func TestProcessUnpublishedEvents(t *testing.T) {
	repo := &MockRepository{OutboxEvents: []*r.OutboxEvent{completedEvent(1, "cart-1"), completedEvent(2, "cart-2")}}
	w := &MockWriter{}
	p := NewOutboxPollerWithWriter(repo, w, zerolog.Nop())

	p.processUnpublishedEvents(context.Background())

	require.Len(t, w.Messages, 2)
	assert.Equal(t, "cart-1", string(w.Messages[0].Key))
	assert.Equal(t, "event_type", w.Messages[0].Headers[0].Key)
	assert.Equal(t, EventCheckoutCompleted, string(w.Messages[0].Headers[0].Value))
	assert.Equal(t, []int{1, 2}, repo.ProcessedIDs)
}

func TestProcessUnpublishedEvents_PublishFailureLeavesUnprocessed(t *testing.T) {
	repo := &MockRepository{OutboxEvents: []*r.OutboxEvent{completedEvent(1, "cart-1")}}
	p := NewOutboxPollerWithWriter(repo, &MockWriter{Err: errors.New("broker down")}, zerolog.Nop())

	p.processUnpublishedEvents(context.Background())

	assert.Empty(t, repo.ProcessedIDs)
}

func TestProcessUnpublishedEvents_FetchError(t *testing.T) {
	repo := &MockRepository{GetEventsErr: errors.New("db down")}
	w := &MockWriter{}
	p := NewOutboxPollerWithWriter(repo, w, zerolog.Nop())

	p.processUnpublishedEvents(context.Background())

	assert.Empty(t, w.Messages)
}

func TestRecoverStuckIntents(t *testing.T) {
	repo := &MockRepository{StuckIntents: []*r.PaymentIntent{
		{ID: "pi_1", CartID: "cart-1", Amount: 2555, Currency: "usd", Status: r.StatusSucceeded},
		{ID: "pi_2", CartID: "cart-2", Amount: 100, Currency: "usd", Status: r.StatusSucceeded},
	}}
	p := NewOutboxPollerWithWriter(repo, &MockWriter{}, zerolog.Nop())

	p.recoverStuckIntents(context.Background())

	assert.Equal(t, []string{"pi_1", "pi_2"}, repo.CompletedIntentIDs)
	var evt CheckoutCompleted
	require.NoError(t, json.Unmarshal(repo.CompletedPayloads[0], &evt))
	assert.Equal(t, CheckoutCompleted{CartID: "cart-1", IntentID: "pi_1", Amount: 2555, Currency: "usd"}, evt)
}

func TestRecoverStuckIntents_Errors(t *testing.T) {
	repo := &MockRepository{GetStuckErr: errors.New("database connection error")}
	p := NewOutboxPollerWithWriter(repo, &MockWriter{}, zerolog.Nop())
	p.recoverStuckIntents(context.Background())
	assert.Equal(t, 0, repo.CompleteCallCount)

	repo = &MockRepository{
		StuckIntents: []*r.PaymentIntent{{ID: "pi_1", CartID: "cart-1"}, {ID: "pi_2", CartID: "cart-2"}},
		CompleteErr:  errors.New("database deadlock"),
	}
	p = NewOutboxPollerWithWriter(repo, &MockWriter{}, zerolog.Nop())
	p.recoverStuckIntents(context.Background())
	assert.Equal(t, 2, repo.CompleteCallCount)
}

func TestOutboxPoller_PublishesEventsToKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})
	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	repo := &MockRepository{OutboxEvents: []*r.OutboxEvent{completedEvent(1, "cart-1")}}
	p := NewOutboxPoller(repo, zerolog.Nop(), brokers...)
	defer p.Close()
	go p.Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cart-1", string(msg.Key))

	var evt CheckoutCompleted
	require.NoError(t, json.Unmarshal(msg.Value, &evt))
	assert.Equal(t, "pi_1", evt.IntentID)
}

// internal/events/emitter_test.go
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamcart-orders/internal/domain"
	"streamcart-orders/internal/util"
)

// fakeSink records messages and answers with a fixed result.
type fakeSink struct {
	mu       sync.Mutex
	messages []Message
	receipt  Receipt
	err      error
	block    chan struct{} // when set, Write waits for it to close
	closed   bool
}

func (s *fakeSink) Write(ctx context.Context, msg Message) (Receipt, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.receipt, s.err
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) written() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

type panickingSink struct{}

func (panickingSink) Write(context.Context, Message) (Receipt, error) { panic("boom") }
func (panickingSink) Close() error                                    { return nil }

func sampleEvent() domain.OrderCreatedEvent {
	return domain.OrderCreatedEvent{
		OrderID:     "7d8f3c2e-1111-4a4a-9b9b-000000000001",
		Username:    "alice",
		TotalAmount: decimal.RequireFromString("50.50"),
		Items: []domain.OrderEventItem{
			{ProductID: "p1", ProductName: "Keyboard", Quantity: 2, Price: decimal.RequireFromString("10.00")},
		},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func waitDelivery(t *testing.T, d *Delivery) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-d.Done():
	case <-ctx.Done():
		t.Fatal("delivery did not complete")
	}
	return d.Wait(ctx)
}

func TestEmitter_PublishSuccess(t *testing.T) {
	var logs bytes.Buffer
	sink := &fakeSink{receipt: Receipt{Topic: DefaultTopic, Partition: 3, Offset: 42}}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	emitter := NewEmitter(sink, EmitterConfig{}, util.NewLogger(&logs, "debug"), metrics)

	delivery := emitter.PublishOrderCreated(context.Background(), sampleEvent())

	require.NoError(t, waitDelivery(t, delivery))
	assert.Equal(t, sampleEvent().OrderID, delivery.Key())
	assert.Equal(t, int64(42), delivery.Receipt().Offset)
	assert.Equal(t, 3, delivery.Receipt().Partition)

	msgs := sink.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultTopic, msgs[0].Topic)
	assert.Equal(t, sampleEvent().OrderID, string(msgs[0].Key))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[0].Value, &payload))
	assert.Equal(t, sampleEvent().OrderID, payload["orderId"])
	assert.Equal(t, "alice", payload["username"])
	assert.Equal(t, "50.50", payload["totalAmount"])
	require.Len(t, payload["items"], 1)
	item := payload["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "p1", item["productId"])
	assert.Equal(t, "Keyboard", item["productName"])
	assert.EqualValues(t, 2, item["quantity"])
	assert.Equal(t, "10.00", item["price"])
	assert.Contains(t, payload, "timestamp")

	assert.Contains(t, logs.String(), "Successfully published order created event")
	assert.Contains(t, logs.String(), `"offset":42`)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.published.WithLabelValues(DefaultTopic, "success")))
}

func TestEmitter_PublishFailureIsReportedNotRetried(t *testing.T) {
	var logs bytes.Buffer
	sinkErr := errors.New("leader not available")
	sink := &fakeSink{err: sinkErr}
	metrics := NewMetrics(prometheus.NewRegistry())
	emitter := NewEmitter(sink, EmitterConfig{Topic: "orders.test"}, util.NewLogger(&logs, "debug"), metrics)

	delivery := emitter.PublishOrderCreated(context.Background(), sampleEvent())

	assert.ErrorIs(t, waitDelivery(t, delivery), sinkErr)
	assert.ErrorIs(t, delivery.Err(), sinkErr)
	assert.Len(t, sink.written(), 1)
	assert.Contains(t, logs.String(), "Failed to publish order created event")
	assert.Contains(t, logs.String(), sampleEvent().OrderID)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.published.WithLabelValues("orders.test", "failure")))
}

func TestEmitter_CallerCancellationDoesNotAbortSend(t *testing.T) {
	release := make(chan struct{})
	sink := &fakeSink{block: release, receipt: Receipt{Partition: -1, Offset: -1}}
	emitter := NewEmitter(sink, EmitterConfig{PublishTimeout: 2 * time.Second}, util.NewLogger(&bytes.Buffer{}, "error"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	delivery := emitter.PublishOrderCreated(ctx, sampleEvent())
	cancel()

	select {
	case <-delivery.Done():
		t.Fatal("delivery completed before the sink acknowledged")
	default:
	}
	assert.NoError(t, delivery.Err(), "Err is nil while pending")

	close(release)
	assert.NoError(t, waitDelivery(t, delivery))
}

func TestEmitter_SendTimeout(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{})}
	emitter := NewEmitter(sink, EmitterConfig{PublishTimeout: 20 * time.Millisecond}, util.NewLogger(&bytes.Buffer{}, "error"), nil)

	delivery := emitter.PublishOrderCreated(context.Background(), sampleEvent())

	assert.ErrorIs(t, waitDelivery(t, delivery), context.DeadlineExceeded)
}

func TestEmitter_SinkPanicBecomesError(t *testing.T) {
	emitter := NewEmitter(panickingSink{}, EmitterConfig{}, util.NewLogger(&bytes.Buffer{}, "error"), nil)

	delivery := emitter.PublishOrderCreated(context.Background(), sampleEvent())

	err := waitDelivery(t, delivery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestEmitter_CloseDrainsInFlight(t *testing.T) {
	release := make(chan struct{})
	sink := &fakeSink{block: release}
	emitter := NewEmitter(sink, EmitterConfig{PublishTimeout: 2 * time.Second}, util.NewLogger(&bytes.Buffer{}, "error"), nil)

	delivery := emitter.PublishOrderCreated(context.Background(), sampleEvent())

	closed := make(chan error, 1)
	go func() { closed <- emitter.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned while a delivery was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-closed)
	assert.NoError(t, delivery.Err())
	assert.True(t, sink.closed)

	late := emitter.PublishOrderCreated(context.Background(), sampleEvent())
	assert.ErrorIs(t, waitDelivery(t, late), ErrEmitterClosed)
	assert.NoError(t, emitter.Close(context.Background()), "second Close is a no-op")
}

func TestEmitter_CloseGivesUpWhenContextEnds(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{})}
	emitter := NewEmitter(sink, EmitterConfig{PublishTimeout: time.Second}, util.NewLogger(&bytes.Buffer{}, "error"), nil)
	emitter.PublishOrderCreated(context.Background(), sampleEvent())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, emitter.Close(ctx), context.DeadlineExceeded)
}

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewMetrics(reg)
	second := NewMetrics(reg)

	second.observe(DefaultTopic, nil, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(first.published.WithLabelValues(DefaultTopic, "success")))
}

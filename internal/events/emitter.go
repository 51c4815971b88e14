// internal/events/emitter.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"streamcart-orders/internal/domain"
)

// DefaultTopic is the channel order-created events are published to.
const DefaultTopic = "order.created"

const defaultPublishTimeout = 10 * time.Second

// ErrEmitterClosed is reported by deliveries dispatched after Close.
var ErrEmitterClosed = errors.New("event emitter is closed")

// Delivery is the pending outcome of one publish attempt.
type Delivery struct {
	key     string
	done    chan struct{}
	receipt Receipt
	err     error
}

func newDelivery(key string) *Delivery {
	return &Delivery{key: key, done: make(chan struct{})}
}

func (d *Delivery) complete(receipt Receipt, err error) {
	d.receipt = receipt
	d.err = err
	close(d.done)
}

// Key returns the partition key of the delivered message.
func (d *Delivery) Key() string { return d.key }

// Done is closed once the sink has acknowledged or rejected the message.
func (d *Delivery) Done() <-chan struct{} { return d.done }

// Err returns the delivery error. It is only meaningful after Done is closed.
func (d *Delivery) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// Receipt returns where the message was stored, after Done is closed.
func (d *Delivery) Receipt() Receipt {
	select {
	case <-d.done:
		return d.receipt
	default:
		return Receipt{}
	}
}

// Wait blocks until the delivery completes or ctx is done.
func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EmitterConfig configures an Emitter.
type EmitterConfig struct {
	Topic          string
	PublishTimeout time.Duration
}

// Emitter publishes order events asynchronously. Each publish is attempted
// once; outcomes are only logged and counted.
type Emitter struct {
	sink    Sink
	topic   string
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// NewEmitter creates an Emitter writing to sink. metrics may be nil.
func NewEmitter(sink Sink, cfg EmitterConfig, logger *slog.Logger, metrics *Metrics) *Emitter {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		sink:    sink,
		topic:   cfg.Topic,
		timeout: cfg.PublishTimeout,
		logger:  logger.With("component", "event_emitter", "topic", cfg.Topic),
		metrics: metrics,
	}
}

// PublishOrderCreated dispatches event keyed by its order id and returns
// immediately. Cancellation of ctx does not abort the send.
func (e *Emitter) PublishOrderCreated(ctx context.Context, event domain.OrderCreatedEvent) *Delivery {
	delivery := newDelivery(event.OrderID)

	payload, err := json.Marshal(event)
	if err != nil {
		err = fmt.Errorf("marshal order created event: %w", err)
		e.logFailure(ctx, delivery, err)
		delivery.complete(Receipt{}, err)
		return delivery
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.logFailure(ctx, delivery, ErrEmitterClosed)
		delivery.complete(Receipt{}, ErrEmitterClosed)
		return delivery
	}

	e.logger.InfoContext(ctx, "Publishing order created event", "order_id", event.OrderID)

	msg := Message{Topic: e.topic, Key: []byte(event.OrderID), Value: payload}
	sendCtx := context.WithoutCancel(ctx)
	e.inflight.Add(1)
	go e.send(sendCtx, msg, delivery)
	return delivery
}

func (e *Emitter) send(ctx context.Context, msg Message, delivery *Delivery) {
	defer e.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	receipt, err := e.write(ctx, msg)
	e.metrics.observe(msg.Topic, err, time.Since(started))

	if err != nil {
		e.logFailure(ctx, delivery, err)
	} else {
		attrs := []any{"order_id", delivery.key}
		if receipt.Partition >= 0 {
			attrs = append(attrs, "partition", receipt.Partition)
		}
		if receipt.Offset >= 0 {
			attrs = append(attrs, "offset", receipt.Offset)
		}
		if receipt.EntryID != "" {
			attrs = append(attrs, "entry_id", receipt.EntryID)
		}
		e.logger.InfoContext(ctx, "Successfully published order created event", attrs...)
	}
	delivery.complete(receipt, err)
}

// write shields the emitter goroutine from sink panics.
func (e *Emitter) write(ctx context.Context, msg Message) (receipt Receipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return e.sink.Write(ctx, msg)
}

func (e *Emitter) logFailure(ctx context.Context, delivery *Delivery, err error) {
	e.logger.ErrorContext(ctx, "Failed to publish order created event",
		"order_id", delivery.key,
		"error", err,
	)
}

// Close stops accepting new events, waits for in-flight deliveries until ctx
// is done and closes the sink.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(drained)
	}()

	var waitErr error
	select {
	case <-drained:
	case <-ctx.Done():
		waitErr = fmt.Errorf("waiting for in-flight events: %w", ctx.Err())
	}

	if err := e.sink.Close(); err != nil {
		return errors.Join(waitErr, fmt.Errorf("close event sink: %w", err))
	}
	return waitErr
}

// internal/events/kafka.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes messages to Kafka. The hash balancer maps equal keys to
// the same partition, which preserves per-key ordering.
//
// The writer runs synchronously, so its Completion callback fires before
// WriteMessages returns. The callback hands each acknowledged message, with
// the partition and offset assigned by the broker, back to the Write call
// waiting on that key.
type KafkaSink struct {
	writer messageWriter

	mu      sync.Mutex
	pending map[string]chan kafka.Message
}

// NewKafkaSink creates a sink producing to the given brokers. The writer
// connects lazily on first write.
func NewKafkaSink(brokers []string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            1, // no automatic retry
		AllowAutoTopicCreation: true,
	}
	sink := newKafkaSink(w)
	w.Completion = sink.complete
	return sink, nil
}

func newKafkaSink(w messageWriter) *KafkaSink {
	return &KafkaSink{writer: w, pending: make(map[string]chan kafka.Message)}
}

// complete is the writer's Completion callback.
func (s *KafkaSink) complete(msgs []kafka.Message, err error) {
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if ch, ok := s.pending[string(m.Key)]; ok {
			select {
			case ch <- m:
			default:
			}
		}
	}
}

func (s *KafkaSink) await(key []byte) (<-chan kafka.Message, func()) {
	ch := make(chan kafka.Message, 1)
	s.mu.Lock()
	s.pending[string(key)] = ch
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if s.pending[string(key)] == ch {
			delete(s.pending, string(key))
		}
		s.mu.Unlock()
	}
}

// Write produces msg and waits for the broker acknowledgment. Partition and
// offset are -1 when the writer did not report them.
func (s *KafkaSink) Write(ctx context.Context, msg Message) (Receipt, error) {
	acked, release := s.await(msg.Key)
	defer release()

	err := s.writer.WriteMessages(ctx, kafka.Message{
		Topic: msg.Topic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("kafka write to %s: %w", msg.Topic, err)
	}

	receipt := Receipt{Topic: msg.Topic, Partition: -1, Offset: -1}
	select {
	case m := <-acked:
		receipt.Partition = m.Partition
		receipt.Offset = m.Offset
	default:
	}
	return receipt, nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

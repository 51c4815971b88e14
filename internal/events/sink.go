// internal/events/sink.go
package events

import (
	"context"
	"log/slog"
)

// Message is a keyed record bound for a topic. Records sharing a key land
// on the same partition of the topic.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Receipt describes where a sink stored a message. Partition and Offset are
// -1 when the sink does not report them.
type Receipt struct {
	Topic     string
	Partition int
	Offset    int64
	EntryID   string
}

// Sink is an ordered, partitioned, append-only channel.
type Sink interface {
	Write(ctx context.Context, msg Message) (Receipt, error)
	Close() error
}

// LogSink only logs messages. It is meant for local development without a broker.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write logs msg and reports an unknown position.
func (s *LogSink) Write(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	s.logger.InfoContext(ctx, "event written to log sink",
		"topic", msg.Topic,
		"key", string(msg.Key),
		"payload", string(msg.Value),
	)
	return Receipt{Topic: msg.Topic, Partition: -1, Offset: -1}, nil
}

// Close is a no-op.
func (s *LogSink) Close() error { return nil }

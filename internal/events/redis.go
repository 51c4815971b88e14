// internal/events/redis.go
package events

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisStreamSink appends messages to a Redis stream named after the topic.
// A stream is a single ordered log, so per-key ordering holds trivially.
type RedisStreamSink struct {
	client streamClient
}

// NewRedisStreamSink connects to Redis and verifies the connection.
func NewRedisStreamSink(addr, password string, db int) (*RedisStreamSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStreamSink{client: client}, nil
}

// Write adds msg to the stream. The returned entry id is reported in the receipt.
func (s *RedisStreamSink) Write(ctx context.Context, msg Message) (Receipt, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: msg.Topic,
		Values: map[string]interface{}{
			"key":     string(msg.Key),
			"payload": string(msg.Value),
		},
	}).Result()
	if err != nil {
		return Receipt{}, fmt.Errorf("redis xadd to %s: %w", msg.Topic, err)
	}
	return Receipt{Topic: msg.Topic, Partition: -1, Offset: -1, EntryID: id}, nil
}

// Close closes the Redis client.
func (s *RedisStreamSink) Close() error {
	return s.client.Close()
}

package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus backs Bus with Redis PUBLISH/SUBSCRIBE.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBus wraps an existing Redis client.
func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

// Publish is fire-and-forget: a publish failure is logged as a warning
// and swallowed, never returned to the job pipeline that triggered it.
func (b *RedisBus) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal bus event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Warn("bus publish failed",
			zap.String("channel", channel),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
		return nil
	}
	return nil
}

// Subscribe returns a buffered channel of decoded events and an
// unsubscribe func. Messages that fail to decode are dropped with a
// warning rather than surfaced, since a bus is best-effort by contract.
func (b *RedisBus) Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error) {
	sub := b.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan Event, 16)
	raw := sub.Channel()
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-raw:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping undecodable bus message",
						zap.String("channel", channel), zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	unsubscribe := func() {
		close(done)
		_ = sub.Close()
	}
	return out, unsubscribe, nil
}

package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBus is a Bus over redis pub/sub, shared by every server instance.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus wraps an existing client. Closing the bus does not close it.
func NewRedisBus(client *redis.Client) (*RedisBus, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisBus{client: client}, nil
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string, onMsg func([]byte)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					slog.Warn("redis subscription closed", "channel", channel)
					return
				}
				onMsg([]byte(m.Payload))
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	return nil
}

package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

/* Redis Pub/Sub fan-out for realtime notifications
 * Every instance publishes event changes to Redis and relays what it receives
 * to its own websocket clients, so a subscriber sees events routed by any instance
 */

const channelPrefix = "webhooks:" // Channel naming: webhooks:{project_key} or webhooks:{project_key}:{hook_key}

type Broker struct {
	client *redis.Client
}

// NewBroker creates a broker connected to Redis
func NewBroker(addr, password string, db int) (*Broker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Broker{
		client: client,
	}, nil
}

// Broadcast publishes payload on the Redis channel matching channel
func (b *Broker) Broadcast(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channelPrefix+channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return nil
}

// Relay forwards every published notification to deliver until ctx is done
func (b *Broker) Relay(ctx context.Context, deliver func(ctx context.Context, channel string, payload []byte) error) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting readiness
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to notifications: %w", err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			channel := strings.TrimPrefix(msg.Channel, channelPrefix)
			// Local delivery is best effort, a slow client never stops the relay
			_ = deliver(ctx, channel, []byte(msg.Payload))
		}
	}
}

// Close closes the Redis client
func (b *Broker) Close() error {
	return b.client.Close()
}

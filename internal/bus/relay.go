package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRelayChannel is the pub/sub channel invalidation events travel on.
const DefaultRelayChannel = "sladash:invalidations"

// Relay distributes events across server instances. Each instance publishes
// committed writes and receives every instance's events (its own included)
// for local fan-out.
type Relay interface {
	Publish(event Event) error
	Subscribe(handler func(Event) error) error
	Close() error
}

// RedisRelay implements Relay over Redis pub/sub. Delivery inherits Redis
// pub/sub semantics: best-effort, at-most-once, no replay, which matches
// the bus contract.
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	sub     *redis.PubSub
}

func NewRedisRelay(client *redis.Client, channel string, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisRelay{
		client:  client,
		channel: channel,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (r *RedisRelay) Publish(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := r.client.Publish(r.ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Subscribe starts a goroutine delivering relayed events to handler until
// Close. Malformed payloads are logged and skipped.
func (r *RedisRelay) Subscribe(handler func(Event) error) error {
	r.sub = r.client.Subscribe(r.ctx, r.channel)

	// Confirm the subscription before any Publish can race past us.
	if _, err := r.sub.Receive(r.ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	ch := r.sub.Channel()
	go func() {
		for msg := range ch {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error("malformed relay payload", zap.Error(err))
				continue
			}
			if err := handler(event); err != nil {
				r.logger.Warn("relay handler rejected event",
					zap.String("event", event.Event), zap.Error(err))
			}
		}
	}()
	return nil
}

func (r *RedisRelay) Close() error {
	r.cancel()
	if r.sub != nil {
		return r.sub.Close()
	}
	return nil
}

// Package pubsub distributes subscription status changes over Redis Pub/Sub
// so that services sharing the user base can react without polling.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kursio/kursio/internal/application/subscription"
	"github.com/kursio/kursio/internal/shared/logger"
)

const statusChannelSuffix = "subscription:status"

// StatusChangeEvent is the wire form of a status change.
type StatusChangeEvent struct {
	UserID         string `json:"user_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
	Origin         string `json:"origin"`
	EventID        string `json:"event_id,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// StatusEventHandler is called for each received event.
type StatusEventHandler func(ctx context.Context, event StatusChangeEvent)

// RedisStatusEventBus publishes and receives status changes on a single channel.
type RedisStatusEventBus struct {
	client  *redis.Client
	channel string
	logger  logger.Interface
	now     func() time.Time
}

// NewRedisStatusEventBus builds a bus on "<prefix>subscription:status".
func NewRedisStatusEventBus(client *redis.Client, prefix string, log logger.Interface) *RedisStatusEventBus {
	return &RedisStatusEventBus{
		client:  client,
		channel: prefix + statusChannelSuffix,
		logger:  log,
		now:     time.Now,
	}
}

func (b *RedisStatusEventBus) Channel() string {
	return b.channel
}

// NotifyStatusChange implements subscription.StatusNotifier.
func (b *RedisStatusEventBus) NotifyStatusChange(ctx context.Context, change subscription.StatusChange) error {
	return b.publish(ctx, StatusChangeEvent{
		UserID:         change.UserID,
		PreviousStatus: change.PreviousStatus.String(),
		Status:         change.Status.String(),
		Origin:         change.Origin,
		EventID:        change.EventID,
		Timestamp:      b.now().Unix(),
	})
}

func (b *RedisStatusEventBus) publish(ctx context.Context, event StatusChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Errorw("failed to publish subscription status event",
			"user_id", event.UserID,
			"status", event.Status,
			"origin", event.Origin,
			"error", err,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debugw("subscription status event published",
		"user_id", event.UserID,
		"previous_status", event.PreviousStatus,
		"status", event.Status,
		"origin", event.Origin,
	)
	return nil
}

// Subscribe blocks until ctx is done, calling handler for every event.
// Malformed payloads are logged and skipped.
func (b *RedisStatusEventBus) Subscribe(ctx context.Context, handler StatusEventHandler) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Infow("subscribed to subscription status events", "channel", b.channel)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("subscription status channel closed")
				return nil
			}

			var event StatusChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal subscription status event",
					"payload", msg.Payload,
					"error", err,
				)
				continue
			}
			handler(ctx, event)
		}
	}
}

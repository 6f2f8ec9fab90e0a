package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kursio/kursio/internal/domain/billing"
)

// RedisEventLog keeps the most recent webhook deliveries in a capped list.
type RedisEventLog struct {
	client *redis.Client
	key    string
	size   int64
}

func NewRedisEventLog(client *redis.Client, prefix string, size int64) *RedisEventLog {
	if size <= 0 {
		size = 1000
	}
	return &RedisEventLog{client: client, key: prefix + "webhook_events", size: size}
}

func (l *RedisEventLog) Record(ctx context.Context, entry billing.EventLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.key, data)
	pipe.LTrim(ctx, l.key, 0, l.size-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record webhook event %s: %w", entry.EventID, err)
	}
	return nil
}

func (l *RedisEventLog) Recent(ctx context.Context, limit int) ([]billing.EventLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := l.client.LRange(ctx, l.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}

	entries := make([]billing.EventLogEntry, 0, len(raw))
	for _, s := range raw {
		var e billing.EventLogEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

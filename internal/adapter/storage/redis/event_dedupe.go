package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EventDedupe implements ports.EventDedupe on Redis. It is the fast-path
// filter for webhook replays; the database status gate stays authoritative
// when Redis is cold or flushed, so events are only marked after their
// effects committed.
type EventDedupe struct {
	client *goredis.Client
	prefix string
}

// NewEventDedupe creates a new Redis-backed webhook event filter.
func NewEventDedupe(client *goredis.Client) *EventDedupe {
	return &EventDedupe{
		client: client,
		prefix: "webhook:event:",
	}
}

// Seen reports whether the event id was already marked within the TTL.
func (d *EventDedupe) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis event dedupe exists: %w", err)
	}
	return n > 0, nil
}

// Mark records the event id for ttl.
func (d *EventDedupe) Mark(ctx context.Context, eventID string, ttl time.Duration) error {
	if err := d.client.Set(ctx, d.prefix+eventID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis event dedupe set: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultEventDedupeTTL = 72 * time.Hour

// EventDeduper remembers payment webhook event ids so redelivered events are dropped.
type EventDeduper interface {
	// FirstSeen records the id and reports whether it was new.
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	// Forget removes the id again, e.g. when publishing the event failed.
	Forget(ctx context.Context, eventID string) error
}

type RedisEventDeduperImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisEventDeduper(client *redis.Client, ttl time.Duration) EventDeduper {
	if ttl <= 0 {
		ttl = DefaultEventDedupeTTL
	}
	return &RedisEventDeduperImpl{
		client: client,
		ttl:    ttl,
	}
}

func (d *RedisEventDeduperImpl) getKey(eventID string) string {
	return fmt.Sprintf("payment:event:%s", eventID)
}

func (d *RedisEventDeduperImpl) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, d.getKey(eventID), 1, d.ttl).Result()
}

func (d *RedisEventDeduperImpl) Forget(ctx context.Context, eventID string) error {
	return d.client.Del(ctx, d.getKey(eventID)).Err()
}

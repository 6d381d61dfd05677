package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-gin-bus-booking/internal/seating"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultAvailabilityTTL = 30 * time.Second

// AvailabilityCache keeps a short-lived snapshot of each route's seat counts.
type AvailabilityCache interface {
	// Get returns the cached snapshot; ok is false on a miss.
	Get(ctx context.Context, routeID uuid.UUID) (availability *seating.Availability, ok bool, err error)
	Set(ctx context.Context, routeID uuid.UUID, availability seating.Availability) error
	// Invalidate must be called after every ticket or pool write on the route.
	Invalidate(ctx context.Context, routeID uuid.UUID) error
}

type RedisAvailabilityCacheImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) AvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultAvailabilityTTL
	}
	return &RedisAvailabilityCacheImpl{
		client: client,
		ttl:    ttl,
	}
}

// 座位統計 key
func (c *RedisAvailabilityCacheImpl) getKey(routeID uuid.UUID) string {
	return fmt.Sprintf("route:%s:availability", routeID)
}

func (c *RedisAvailabilityCacheImpl) Get(ctx context.Context, routeID uuid.UUID) (*seating.Availability, bool, error) {
	raw, err := c.client.Get(ctx, c.getKey(routeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var availability seating.Availability
	if err := json.Unmarshal(raw, &availability); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = c.client.Del(ctx, c.getKey(routeID)).Err()
		return nil, false, nil
	}
	return &availability, true, nil
}

func (c *RedisAvailabilityCacheImpl) Set(ctx context.Context, routeID uuid.UUID, availability seating.Availability) error {
	raw, err := json.Marshal(availability)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.getKey(routeID), raw, c.ttl).Err()
}

func (c *RedisAvailabilityCacheImpl) Invalidate(ctx context.Context, routeID uuid.UUID) error {
	return c.client.Del(ctx, c.getKey(routeID)).Err()
}

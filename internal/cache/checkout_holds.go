package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultHoldTTL outlives the hosted checkout session so a hold never lapses before its payment does.
const DefaultHoldTTL = 35 * time.Minute

// CheckoutHolds counts seats promised to checkouts that are not paid yet, so two customers
// cannot both start paying for the last seat.
type CheckoutHolds interface {
	// Reserve holds quantity seats for the order out of the online remaining count. It fails
	// with *apperrors.InsufficientSeatsError when open holds leave too few seats.
	Reserve(ctx context.Context, routeID, orderID uuid.UUID, quantity, remaining int) error
	// Release drops the hold of an order. Releasing an unknown order is not an error.
	Release(ctx context.Context, routeID, orderID uuid.UUID) error
	// Held returns the number of seats currently held on the route.
	Held(ctx context.Context, routeID uuid.UUID) (int, error)
}

type RedisCheckoutHoldsImpl struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisCheckoutHolds(client *redis.Client, ttl time.Duration) CheckoutHolds {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &RedisCheckoutHoldsImpl{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// 路線暫留座位 key: field = order id, value = "<qty>:<expires_at_ms>"
func (h *RedisCheckoutHoldsImpl) getKey(routeID uuid.UUID) string {
	return fmt.Sprintf("route:%s:holds", routeID)
}

/*
	暫留座位 (使用Lua腳本確保原子性)
	1. 清除過期的暫留
	2. 計算其他訂單的暫留數量
	3. 檢查剩餘座位
	4. 寫入暫留
*/
const reserveScript = `
	local key = KEYS[1]
	local order_id = ARGV[1]
	local qty = tonumber(ARGV[2])
	local remaining = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local held = 0
	local entries = redis.call('HGETALL', key)
	for i = 1, #entries, 2 do
		local field = entries[i]
		local held_qty, expires_at = string.match(entries[i + 1], '^(%d+):(%d+)$')
		if not held_qty or tonumber(expires_at) <= now then
			redis.call('HDEL', key, field)
		elseif field ~= order_id then
			held = held + tonumber(held_qty)
		end
	end

	local available = remaining - held
	if available < qty then
		return {-1, available}
	end

	redis.call('HSET', key, order_id, ARGV[2] .. ':' .. ARGV[5])
	redis.call('PEXPIRE', key, ARGV[6])
	return {1, available - qty}
`

const heldScript = `
	local key = KEYS[1]
	local now = tonumber(ARGV[1])

	local held = 0
	local entries = redis.call('HGETALL', key)
	for i = 1, #entries, 2 do
		local held_qty, expires_at = string.match(entries[i + 1], '^(%d+):(%d+)$')
		if held_qty and tonumber(expires_at) > now then
			held = held + tonumber(held_qty)
		end
	end
	return held
`

func (h *RedisCheckoutHoldsImpl) Reserve(ctx context.Context, routeID, orderID uuid.UUID, quantity, remaining int) error {
	if quantity <= 0 {
		return apperrors.ErrInvalidQuantity
	}

	now := h.now()
	expiresAt := now.Add(h.ttl)

	result, err := h.client.Eval(ctx, reserveScript, []string{h.getKey(routeID)},
		orderID.String(),
		quantity,
		remaining,
		now.UnixMilli(),
		expiresAt.UnixMilli(),
		h.ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return err
	}
	if len(result) != 2 {
		return errors.New("unexpected hold script result")
	}

	if result[0] < 0 {
		available := int(result[1])
		if available < 0 {
			available = 0
		}
		return &apperrors.InsufficientSeatsError{Requested: quantity, Remaining: available}
	}
	return nil
}

func (h *RedisCheckoutHoldsImpl) Release(ctx context.Context, routeID, orderID uuid.UUID) error {
	return h.client.HDel(ctx, h.getKey(routeID), orderID.String()).Err()
}

func (h *RedisCheckoutHoldsImpl) Held(ctx context.Context, routeID uuid.UUID) (int, error) {
	return h.client.Eval(ctx, heldScript, []string{h.getKey(routeID)}, h.now().UnixMilli()).Int()
}

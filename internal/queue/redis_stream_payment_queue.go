package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-bus-booking/internal/payment"
	"go-gin-bus-booking/pkg/logger"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultPaymentStream = "payments:stream"
	DefaultPaymentGroup  = "payment-workers"

	payloadField = "event"
)

// StreamOptions tunes the Redis stream consumer. Zero fields take the defaults.
type StreamOptions struct {
	Stream string
	Group  string
	// Consumer names this process inside the group; a random id is used when empty.
	Consumer string
	// ClaimIdle is how long an unacked event waits before another read takes it over.
	ClaimIdle time.Duration
	// MaxDeliveries caps redelivery; an event delivered that often is acked and dropped.
	MaxDeliveries int
	Block         time.Duration
	BatchSize     int64
}

func (o StreamOptions) withDefaults() StreamOptions {
	if o.Stream == "" {
		o.Stream = DefaultPaymentStream
	}
	if o.Group == "" {
		o.Group = DefaultPaymentGroup
	}
	if o.Consumer == "" {
		o.Consumer = uuid.New().String()
	}
	if o.ClaimIdle <= 0 {
		o.ClaimIdle = 5 * time.Second
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 5
	}
	if o.Block <= 0 {
		o.Block = 2 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	return o
}

// RedisStreamPaymentQueueImpl keeps payment events in a Redis stream read through a consumer
// group, so an event survives a restart until a worker acks it.
type RedisStreamPaymentQueueImpl struct {
	client   *redis.Client
	opts     StreamOptions
	consumer string
}

func NewRedisStreamPaymentQueue(ctx context.Context, client *redis.Client, opts StreamOptions) (PaymentEventQueue, error) {
	opts = opts.withDefaults()
	q := &RedisStreamPaymentQueueImpl{
		client:   client,
		opts:     opts,
		consumer: "worker:" + opts.Consumer,
	}

	err := client.XGroupCreateMkStream(ctx, opts.Stream, opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group %s: %w", opts.Group, err)
	}
	return q, nil
}

func (q *RedisStreamPaymentQueueImpl) Publish(ctx context.Context, event *payment.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.opts.Stream,
		Values: map[string]interface{}{payloadField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("append event %s: %w", event.ID, err)
	}
	return nil
}

// Subscribe feeds new entries and, on a ClaimIdle tick, entries another delivery left unacked.
// The channel closes once both loops have stopped.
func (q *RedisStreamPaymentQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	reclaimed := make(chan struct{})

	go func() {
		defer close(reclaimed)
		q.reclaimLoop(ctx, out)
	}()
	go func() {
		defer close(out)
		q.readLoop(ctx, out)
		<-reclaimed
	}()
	return out, nil
}

func (q *RedisStreamPaymentQueueImpl) readLoop(ctx context.Context, out chan<- Delivery) {
	log := logger.WithComponent("mq")

	for ctx.Err() == nil {
		// ">" only returns entries never delivered to the group; pending ones come back via reclaim
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.opts.Group,
			Consumer: q.consumer,
			Streams:  []string{q.opts.Stream, ">"},
			Count:    q.opts.BatchSize,
			Block:    q.opts.Block,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			log.Error("stream read failed", zap.String("stream", q.opts.Stream), zap.Error(err))
			sleep(ctx, time.Second)
			continue
		}

		for _, stream := range streams {
			if !q.forward(ctx, out, stream.Messages, false) {
				return
			}
		}
	}
}

func (q *RedisStreamPaymentQueueImpl) reclaimLoop(ctx context.Context, out chan<- Delivery) {
	log := logger.WithComponent("mq")
	ticker := time.NewTicker(q.opts.ClaimIdle)
	defer ticker.Stop()

	cursor := "0-0"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		messages, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.opts.Stream,
			Group:    q.opts.Group,
			Consumer: q.consumer,
			MinIdle:  q.opts.ClaimIdle,
			Start:    cursor,
			Count:    q.opts.BatchSize,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() == nil {
				log.Error("stream reclaim failed", zap.String("stream", q.opts.Stream), zap.Error(err))
			}
			continue
		}
		// an empty or zero cursor means the pending list was walked to the end
		cursor = next
		if cursor == "" {
			cursor = "0-0"
		}

		if !q.forward(ctx, out, messages, true) {
			return
		}
	}
}

// forward hands each decodable entry to out. It reports false when ctx ended first.
func (q *RedisStreamPaymentQueueImpl) forward(ctx context.Context, out chan<- Delivery, messages []redis.XMessage, redelivered bool) bool {
	for _, msg := range messages {
		if redelivered && q.exhausted(ctx, msg.ID) {
			continue
		}
		event, err := decodeEvent(msg)
		if err != nil {
			logger.WithComponent("mq").Warn("dropping unreadable stream entry",
				zap.String("message_id", msg.ID), zap.Error(err))
			q.ack(ctx, msg.ID)
			continue
		}

		select {
		case out <- q.delivery(ctx, msg.ID, event):
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// exhausted acks and drops an entry that already reached MaxDeliveries.
func (q *RedisStreamPaymentQueueImpl) exhausted(ctx context.Context, id string) bool {
	log := logger.WithComponent("mq").With(zap.String("message_id", id))

	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.opts.Stream,
		Group:  q.opts.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Warn("pending lookup failed, delivering anyway", zap.Error(err))
		return false
	}
	if len(pending) == 0 || int(pending[0].RetryCount) < q.opts.MaxDeliveries {
		return false
	}

	log.Warn("dropping payment event after too many deliveries",
		zap.Int64("deliveries", pending[0].RetryCount),
		zap.Int("max_deliveries", q.opts.MaxDeliveries))
	q.ack(ctx, id)
	return true
}

func (q *RedisStreamPaymentQueueImpl) delivery(ctx context.Context, id string, event *payment.Event) Delivery {
	return Delivery{
		Data: event,
		Ack:  func() { q.ack(ctx, id) },
		Nack: func(requeue bool) {
			if !requeue {
				q.ack(ctx, id)
				return
			}
			// 留在 pending list, ClaimIdle 之後由 reclaimLoop 重新投遞
			logger.WithComponent("mq").Info("payment event left for redelivery",
				zap.String("message_id", id),
				zap.String("event_id", event.ID),
				zap.Duration("claim_idle", q.opts.ClaimIdle))
		},
	}
}

func (q *RedisStreamPaymentQueueImpl) ack(ctx context.Context, id string) {
	if err := q.client.XAck(ctx, q.opts.Stream, q.opts.Group, id).Err(); err != nil {
		logger.WithComponent("mq").Error("stream ack failed", zap.String("message_id", id), zap.Error(err))
	}
}

func decodeEvent(msg redis.XMessage) (*payment.Event, error) {
	raw, ok := msg.Values[payloadField].(string)
	if !ok {
		return nil, fmt.Errorf("missing %q field", payloadField)
	}
	var event payment.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

package queue

import (
	"context"

	"go-gin-bus-booking/internal/payment"
	"go-gin-bus-booking/pkg/logger"

	"go.uber.org/zap"
)

type Delivery struct {
	Data *payment.Event
	Ack  func()
	Nack func(requeue bool)
}

// PaymentEventQueue carries verified webhook events from the HTTP handler to the worker.
type PaymentEventQueue interface {
	// 發送付款事件到隊列
	Publish(ctx context.Context, event *payment.Event) error
	// 訂閱付款事件隊列
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryPaymentEventQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *payment.Event
}

func NewMemoryPaymentEventQueue(bufferSize int) PaymentEventQueue {
	return &MemoryPaymentEventQueueImpl{
		ch: make(chan *payment.Event, bufferSize),
	}
}

func (q *MemoryPaymentEventQueueImpl) Publish(ctx context.Context, event *payment.Event) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryPaymentEventQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: event,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.requeue(event)
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// requeue never blocks the worker. An event that does not fit in the buffer is lost and logged.
func (q *MemoryPaymentEventQueueImpl) requeue(event *payment.Event) bool {
	select {
	case q.ch <- event:
		return true
	default:
		logger.WithComponent("mq").Error("payment event dropped, queue full",
			zap.String("event_id", event.ID),
			zap.String("session_id", event.SessionID),
			zap.Int("capacity", cap(q.ch)))
		return false
	}
}

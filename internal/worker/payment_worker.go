package worker

import (
	"context"
	"errors"
	"time"

	"go-gin-bus-booking/internal/queue"
	"go-gin-bus-booking/internal/service"
	apperrors "go-gin-bus-booking/pkg/app_errors"
	"go-gin-bus-booking/pkg/logger"

	"go.uber.org/zap"
)

const defaultRetryDelay = time.Second

type PaymentWorker interface {
	// 訂閱付款事件隊列
	Start(ctx context.Context) error
	// Wait blocks until the consume loop has stopped.
	Wait()
}

type PaymentWorkerImpl struct {
	service    service.BookingService
	queue      queue.PaymentEventQueue
	retryDelay time.Duration
	done       chan struct{}
}

func NewPaymentWorker(service service.BookingService, queue queue.PaymentEventQueue) PaymentWorker {
	return &PaymentWorkerImpl{
		service:    service,
		queue:      queue,
		retryDelay: defaultRetryDelay,
		done:       make(chan struct{}),
	}
}

func (w *PaymentWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		close(w.done)
		return err
	}

	go func() {
		defer close(w.done)
		log := logger.WithComponent("worker")

		for msg := range msgs {
			event := msg.Data
			err := w.service.HandlePaymentEvent(ctx, event)

			switch {
			case err == nil:
				msg.Ack()
			case isFinal(err):
				// 業務拒絕: 重試也不會成功, 結案
				log.Warn("payment event rejected",
					zap.String("event_id", event.ID),
					zap.String("session_id", event.SessionID),
					zap.Error(err),
				)
				msg.Ack()
			default:
				// 資料庫暫時連不上等錯誤, 稍後重試
				log.Error("payment event failed, will retry",
					zap.String("event_id", event.ID),
					zap.Error(err),
				)
				select {
				case <-time.After(w.retryDelay):
				case <-ctx.Done():
				}
				msg.Nack(true)
			}
		}
	}()
	return nil
}

func (w *PaymentWorkerImpl) Wait() {
	<-w.done
}

// isFinal reports whether redelivering the event could ever succeed.
func isFinal(err error) bool {
	return errors.Is(err, apperrors.ErrInsufficientSeats) ||
		errors.Is(err, apperrors.ErrInvalidOrderStatus) ||
		errors.Is(err, apperrors.ErrOrderNotFound) ||
		errors.Is(err, apperrors.ErrRouteNotFound) ||
		errors.Is(err, apperrors.ErrInvalidInput)
}

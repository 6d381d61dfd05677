package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-gin-bus-booking/internal/cache"
	"go-gin-bus-booking/internal/database"
	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/payment"
	"go-gin-bus-booking/internal/repository"
	"go-gin-bus-booking/internal/seating"
	"go-gin-bus-booking/internal/ticketpdf"
	apperrors "go-gin-bus-booking/pkg/app_errors"
	"go-gin-bus-booking/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// checkoutSessionTTL is the payment processor's minimum session lifetime plus a margin.
const checkoutSessionTTL = 31 * time.Minute

type BookingService interface {
	// 線上結帳: 建立訂單與付款頁
	StartCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResponse, error)
	FinalizeBySession(ctx context.Context, sessionID string) (*model.FinalizeResult, error)
	FinalizeOrder(ctx context.Context, orderID uuid.UUID) (*model.FinalizeResult, error)
	// ConfirmFromReturn finalizes from the checkout success page when the webhook has not
	// arrived yet.
	ConfirmFromReturn(ctx context.Context, sessionID string) (*model.FinalizeResult, error)
	HandlePaymentEvent(ctx context.Context, event *payment.Event) error
	// 後台手動售票
	CreateOfflineOrder(ctx context.Context, req model.OfflineOrderRequest) (*model.OrderDetail, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error)
	// GetAccountOrder only returns orders placed by the account.
	GetAccountOrder(ctx context.Context, accountID string, id uuid.UUID) (*model.OrderDetail, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error)
	ListAccountOrders(ctx context.Context, accountID string) ([]*model.Order, error)
	OrderTickets(ctx context.Context, id uuid.UUID) ([]*model.Ticket, error)
	// RenderTickets returns the PDF ticket sheet of a paid order. A non-nil accountID
	// restricts it to the account's own orders.
	RenderTickets(ctx context.Context, id uuid.UUID, accountID *string) ([]byte, string, error)
}

type BookingServiceImpl struct {
	tx                database.TxManager
	routeRepository   repository.RouteRepository
	seatRepository    repository.SeatRepository
	ticketRepository  repository.TicketRepository
	repository        repository.OrderRepository
	customerService   CustomerService
	gateway           payment.Gateway
	holds             cache.CheckoutHolds
	availabilityCache cache.AvailabilityCache
	picker            *seating.Picker
	now               func() time.Time
}

func NewBookingService(
	tx database.TxManager,
	routeRepository repository.RouteRepository,
	seatRepository repository.SeatRepository,
	ticketRepository repository.TicketRepository,
	orderRepository repository.OrderRepository,
	customerService CustomerService,
	gateway payment.Gateway,
	holds cache.CheckoutHolds,
	availabilityCache cache.AvailabilityCache,
	picker *seating.Picker,
) BookingService {
	if picker == nil {
		picker = seating.NewPicker(nil)
	}
	return &BookingServiceImpl{
		tx:                tx,
		routeRepository:   routeRepository,
		seatRepository:    seatRepository,
		ticketRepository:  ticketRepository,
		repository:        orderRepository,
		customerService:   customerService,
		gateway:           gateway,
		holds:             holds,
		availabilityCache: availabilityCache,
		picker:            picker,
		now:               time.Now,
	}
}

func (s *BookingServiceImpl) StartCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}

	route, err := s.routeRepository.FindByID(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}
	if !route.IsBookable(s.now()) {
		return nil, apperrors.ErrRouteNotBookable
	}

	// 1. 以已售票券計算線上剩餘座位
	paid, err := s.ticketRepository.ListPaidSeatNumbers(ctx, route.ID)
	if err != nil {
		return nil, err
	}
	availability := seating.Calculate(route.Boundary(), paid)
	if err := availability.CanBookOnline(req.Quantity); err != nil {
		return nil, err
	}

	customer, err := s.customerService.FindOrCreate(ctx, req.Name, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	// 2. 保留座位數, 避免同時結帳超賣
	orderID := uuid.New()
	if err := s.holds.Reserve(ctx, route.ID, orderID, req.Quantity, availability.OnlineRemaining); err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:         orderID,
		RouteID:    route.ID,
		CustomerID: &customer.ID,
		AccountID:  req.AccountID,
		Quantity:   req.Quantity,
		Amount:     route.Price * int64(req.Quantity),
		Currency:   route.Currency,
		Source:     model.OrderSourceOnline,
		Status:     model.OrderStatusCreated,
		Metadata:   customerMetadata(req.Name, customer.Email, req.Phone, ""),
	}

	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = s.repository.Create(ctx, tx, order)
		return err
	})
	if err != nil {
		s.releaseHold(ctx, route.ID, orderID)
		return nil, err
	}

	// 3. 建立付款頁; 失敗時訂單標記 failed 並釋放保留
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutInput{
		OrderID:       order.ID,
		Description:   fmt.Sprintf("%s - %s %s", route.Origin, route.Destination, route.DepartureAt.Format("2006-01-02 15:04")),
		UnitAmount:    route.Price,
		Quantity:      req.Quantity,
		Currency:      route.Currency,
		CustomerEmail: customer.Email,
		ExpiresAt:     s.now().Add(checkoutSessionTTL),
	})
	if err == nil {
		err = s.repository.SetPaymentSession(ctx, order.ID, session.ID)
	}
	if err != nil {
		s.abandonCheckout(ctx, order)
		return nil, fmt.Errorf("failed to start payment: %w", err)
	}

	return &model.CheckoutResponse{OrderID: order.ID, RedirectURL: session.URL}, nil
}

func (s *BookingServiceImpl) FinalizeBySession(ctx context.Context, sessionID string) (*model.FinalizeResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	return s.finalize(ctx, s.lockBySession(ctx, sessionID))
}

func (s *BookingServiceImpl) FinalizeOrder(ctx context.Context, orderID uuid.UUID) (*model.FinalizeResult, error) {
	return s.finalize(ctx, s.lockByID(ctx, orderID))
}

func (s *BookingServiceImpl) ConfirmFromReturn(ctx context.Context, sessionID string) (*model.FinalizeResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}

	order, err := s.repository.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPaid {
		paid, err := s.gateway.SessionPaid(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !paid {
			return nil, apperrors.ErrPaymentNotCompleted
		}
	}

	return s.finalize(ctx, s.lockByID(ctx, order.ID))
}

func (s *BookingServiceImpl) HandlePaymentEvent(ctx context.Context, event *payment.Event) error {
	log := logger.WithComponent("service").With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("session_id", event.SessionID),
	)

	switch event.Kind {
	case payment.EventCompleted:
		result, err := s.finalize(ctx, s.lockForEvent(ctx, event))
		if err != nil {
			return err
		}
		if !result.AlreadyPaid {
			log.Info("order paid", zap.String("order_id", result.Order.ID.String()), zap.Ints("seats", result.SeatNumbers))
		}
		return nil
	case payment.EventExpired, payment.EventFailed:
		return s.failOrder(ctx, s.lockForEvent(ctx, event))
	default:
		log.Debug("payment event ignored")
		return nil
	}
}

func (s *BookingServiceImpl) CreateOfflineOrder(ctx context.Context, req model.OfflineOrderRequest) (*model.OrderDetail, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrInvalidInput)
	}
	if req.Amount != nil && *req.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", apperrors.ErrInvalidInput)
	}

	var customerID *uuid.UUID
	if strings.TrimSpace(req.Email) != "" {
		customer, err := s.customerService.FindOrCreate(ctx, req.Name, req.Email, req.Phone)
		if err != nil {
			return nil, err
		}
		customerID = &customer.ID
	}

	var detail *model.OrderDetail
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		route, err := s.routeRepository.FindByIDForUpdate(ctx, tx, req.RouteID)
		if err != nil {
			return err
		}
		if route.Status == model.RouteStatusCancelled {
			return apperrors.ErrRouteNotBookable
		}

		picked, err := s.pickSeats(ctx, tx, route, seating.OfflineRequest, req.Quantity)
		if err != nil {
			return err
		}

		amount := route.Price * int64(req.Quantity)
		if req.Amount != nil {
			amount = *req.Amount
		}

		order, err := s.repository.Create(ctx, tx, &model.Order{
			RouteID:    route.ID,
			CustomerID: customerID,
			Quantity:   req.Quantity,
			Amount:     amount,
			Currency:   route.Currency,
			Source:     model.OrderSourceOffline,
			Status:     model.OrderStatusPaidOffline,
			Metadata:   customerMetadata(req.Name, normalizeEmail(req.Email), req.Phone, req.Note),
		})
		if err != nil {
			return err
		}

		tickets := model.NewTickets(order, picked)
		if err := s.ticketRepository.CreateBatch(ctx, tx, tickets); err != nil {
			return err
		}

		detail = &model.OrderDetail{Order: order, Tickets: withLabels(tickets, route.TotalCapacity)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.RouteID)
	return detail, nil
}

func (s *BookingServiceImpl) CancelOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var cancelled *model.Order
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := s.repository.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(model.OrderStatusCancelled) {
			return fmt.Errorf("%w: cannot cancel a %s order", apperrors.ErrInvalidOrderStatus, order.Status)
		}
		route, err := s.routeRepository.FindByIDForUpdate(ctx, tx, order.RouteID)
		if err != nil {
			return err
		}

		tickets, err := s.ticketRepository.ListByOrderTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := s.ticketRepository.CancelByOrder(ctx, tx, id); err != nil {
			return err
		}
		if err := retagFreedSeats(ctx, tx, s.seatRepository, route, paidSeatNumbers(tickets)); err != nil {
			return err
		}
		cancelled, err = s.repository.UpdateStatus(ctx, tx, id, model.OrderStatusCancelled)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cancelled.RouteID)
	s.releaseHold(ctx, cancelled.RouteID, cancelled.ID)
	return cancelled, nil
}

func (s *BookingServiceImpl) GetOrder(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error) {
	order, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, order)
}

func (s *BookingServiceImpl) GetAccountOrder(ctx context.Context, accountID string, id uuid.UUID) (*model.OrderDetail, error) {
	order, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.AccountID == nil || *order.AccountID != accountID {
		return nil, apperrors.ErrOrderNotFound
	}
	return s.detail(ctx, order)
}

func (s *BookingServiceImpl) ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.ErrInvalidOrderStatus
	}
	if filter.Source != "" && !filter.Source.IsValid() {
		return nil, fmt.Errorf("%w: unknown source %q", apperrors.ErrInvalidInput, filter.Source)
	}
	return s.repository.List(ctx, filter)
}

func (s *BookingServiceImpl) ListAccountOrders(ctx context.Context, accountID string) ([]*model.Order, error) {
	if accountID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	return s.repository.ListByAccount(ctx, accountID)
}

func (s *BookingServiceImpl) OrderTickets(ctx context.Context, id uuid.UUID) ([]*model.Ticket, error) {
	detail, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail.Tickets, nil
}

func (s *BookingServiceImpl) RenderTickets(ctx context.Context, id uuid.UUID, accountID *string) ([]byte, string, error) {
	var detail *model.OrderDetail
	var err error
	if accountID != nil {
		detail, err = s.GetAccountOrder(ctx, *accountID, id)
	} else {
		detail, err = s.GetOrder(ctx, id)
	}
	if err != nil {
		return nil, "", err
	}
	if !detail.Status.IsPaid() {
		return nil, "", fmt.Errorf("%w: order is %s", apperrors.ErrInvalidOrderStatus, detail.Status)
	}

	route, err := s.routeRepository.FindByID(ctx, detail.RouteID)
	if err != nil {
		return nil, "", err
	}

	pdf, err := ticketpdf.Render(route, detail.Order, detail.Tickets)
	if err != nil {
		return nil, "", err
	}
	return pdf, ticketpdf.Filename(detail.Order), nil
}

type orderLocker func(tx pgx.Tx) (*model.Order, error)

func (s *BookingServiceImpl) lockByID(ctx context.Context, id uuid.UUID) orderLocker {
	return func(tx pgx.Tx) (*model.Order, error) {
		return s.repository.FindByIDForUpdate(ctx, tx, id)
	}
}

func (s *BookingServiceImpl) lockBySession(ctx context.Context, sessionID string) orderLocker {
	return func(tx pgx.Tx) (*model.Order, error) {
		order, err := s.repository.FindBySessionID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return s.repository.FindByIDForUpdate(ctx, tx, order.ID)
	}
}

// lockForEvent prefers the order reference carried by the event and falls back to the
// session id.
func (s *BookingServiceImpl) lockForEvent(ctx context.Context, event *payment.Event) orderLocker {
	if id, err := uuid.Parse(event.OrderID); err == nil {
		return s.lockByID(ctx, id)
	}
	return s.lockBySession(ctx, event.SessionID)
}

// finalize turns a paid checkout into tickets. A second call for the same order is a no-op.
// When the online pool ran out in the meantime the order is committed as refund_required
// and the shortage is returned with the result.
func (s *BookingServiceImpl) finalize(ctx context.Context, lock orderLocker) (*model.FinalizeResult, error) {
	var result *model.FinalizeResult
	var shortage error

	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := lock(tx)
		if err != nil {
			return err
		}

		if order.Status == model.OrderStatusPaid {
			tickets, err := s.ticketRepository.ListByOrderTx(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			result = &model.FinalizeResult{Order: order, SeatNumbers: paidSeatNumbers(tickets), AlreadyPaid: true}
			return nil
		}
		if order.Status != model.OrderStatusCreated {
			return fmt.Errorf("%w: cannot finalize a %s order", apperrors.ErrInvalidOrderStatus, order.Status)
		}

		route, err := s.routeRepository.FindByIDForUpdate(ctx, tx, order.RouteID)
		if err != nil {
			return err
		}

		picked, err := s.pickSeats(ctx, tx, route, seating.OnlineRequest, order.Quantity)
		if errors.Is(err, apperrors.ErrInsufficientSeats) {
			updated, uerr := s.repository.UpdateStatus(ctx, tx, order.ID, model.OrderStatusRefundRequired)
			if uerr != nil {
				return uerr
			}
			result = &model.FinalizeResult{Order: updated}
			shortage = err
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.ticketRepository.CreateBatch(ctx, tx, model.NewTickets(order, picked)); err != nil {
			return err
		}
		updated, err := s.repository.UpdateStatus(ctx, tx, order.ID, model.OrderStatusPaid)
		if err != nil {
			return err
		}

		result = &model.FinalizeResult{Order: updated, SeatNumbers: picked}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyPaid {
		s.invalidate(ctx, result.Order.RouteID)
		s.releaseHold(ctx, result.Order.RouteID, result.Order.ID)
	}
	if shortage != nil {
		logger.WithComponent("service").Error("paid order could not be seated, refund required",
			zap.String("order_id", result.Order.ID.String()), zap.Error(shortage))
		return result, shortage
	}
	return result, nil
}

// failOrder marks an unpaid order failed and frees its hold. Orders that moved on are left
// untouched.
func (s *BookingServiceImpl) failOrder(ctx context.Context, lock orderLocker) error {
	var order *model.Order
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = lock(tx)
		if err != nil {
			return err
		}
		if order.Status != model.OrderStatusCreated {
			return nil
		}
		order, err = s.repository.UpdateStatus(ctx, tx, order.ID, model.OrderStatusFailed)
		return err
	})
	if err != nil {
		return err
	}

	s.releaseHold(ctx, order.RouteID, order.ID)
	return nil
}

func (s *BookingServiceImpl) abandonCheckout(ctx context.Context, order *model.Order) {
	// 請求可能已取消, 仍需完成清理
	ctx = context.WithoutCancel(ctx)
	if err := s.failOrder(ctx, s.lockByID(ctx, order.ID)); err != nil {
		logger.WithComponent("service").Error("failed to mark abandoned checkout",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		s.releaseHold(ctx, order.RouteID, order.ID)
	}
}

type pickRequestFunc func(seats []seating.Seat, ticketed []int, quantity int) seating.PickRequest

// pickSeats must run under the route row lock.
func (s *BookingServiceImpl) pickSeats(ctx context.Context, tx pgx.Tx, route *model.Route, request pickRequestFunc, quantity int) ([]int, error) {
	seats, err := s.seatRepository.ListByRouteTx(ctx, tx, route.ID)
	if err != nil {
		return nil, err
	}
	paid, err := s.ticketRepository.ListPaidSeatNumbersTx(ctx, tx, route.ID)
	if err != nil {
		return nil, err
	}

	picked, err := s.picker.Pick(request(model.ToSeating(seats), paid, quantity))
	if err != nil {
		return nil, err
	}
	sort.Ints(picked)
	return picked, nil
}

func (s *BookingServiceImpl) detail(ctx context.Context, order *model.Order) (*model.OrderDetail, error) {
	route, err := s.routeRepository.FindByID(ctx, order.RouteID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.ticketRepository.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &model.OrderDetail{Order: order, Tickets: withLabels(tickets, route.TotalCapacity)}, nil
}

func (s *BookingServiceImpl) releaseHold(ctx context.Context, routeID, orderID uuid.UUID) {
	if err := s.holds.Release(context.WithoutCancel(ctx), routeID, orderID); err != nil {
		logger.WithComponent("service").Warn("failed to release checkout hold",
			zap.String("order_id", orderID.String()), zap.Error(err))
	}
}

func (s *BookingServiceImpl) invalidate(ctx context.Context, routeID uuid.UUID) {
	if err := s.availabilityCache.Invalidate(context.WithoutCancel(ctx), routeID); err != nil {
		logger.WithComponent("service").Warn("availability cache invalidation failed",
			zap.String("route_id", routeID.String()), zap.Error(err))
	}
}

func customerMetadata(name, email, phone, note string) map[string]string {
	meta := map[string]string{model.MetaCustomerName: strings.TrimSpace(name)}
	if email != "" {
		meta[model.MetaCustomerEmail] = email
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		meta[model.MetaCustomerPhone] = phone
	}
	if note = strings.TrimSpace(note); note != "" {
		meta[model.MetaNote] = note
	}
	return meta
}

func withLabels(tickets []*model.Ticket, totalCapacity int) []*model.Ticket {
	for _, t := range tickets {
		t.SeatLabel = seating.LabelFor(t.SeatNumber, totalCapacity)
	}
	return tickets
}

func paidSeatNumbers(tickets []*model.Ticket) []int {
	numbers := make([]int, 0, len(tickets))
	for _, t := range tickets {
		if t.IsPaid() {
			numbers = append(numbers, t.SeatNumber)
		}
	}
	sort.Ints(numbers)
	return numbers
}

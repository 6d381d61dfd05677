package service

import (
	"context"
	"fmt"

	"go-gin-bus-booking/internal/cache"
	"go-gin-bus-booking/internal/database"
	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/repository"
	apperrors "go-gin-bus-booking/pkg/app_errors"
	"go-gin-bus-booking/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TicketService interface {
	// CancelTicket frees one seat. The order is cancelled with its last paid ticket.
	CancelTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Ticket, error)
}

type TicketServiceImpl struct {
	tx                database.TxManager
	repo              repository.TicketRepository
	orderRepository   repository.OrderRepository
	routeRepository   repository.RouteRepository
	seatRepository    repository.SeatRepository
	availabilityCache cache.AvailabilityCache
}

func NewTicketService(
	tx database.TxManager,
	repo repository.TicketRepository,
	orderRepository repository.OrderRepository,
	routeRepository repository.RouteRepository,
	seatRepository repository.SeatRepository,
	availabilityCache cache.AvailabilityCache,
) TicketService {
	return &TicketServiceImpl{
		tx:                tx,
		repo:              repo,
		orderRepository:   orderRepository,
		routeRepository:   routeRepository,
		seatRepository:    seatRepository,
		availabilityCache: availabilityCache,
	}
}

func (s *TicketServiceImpl) CancelTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var cancelled *model.Ticket
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		// 鎖定順序: 訂單 -> 路線 -> 票券
		order, err := s.orderRepository.FindByIDForUpdate(ctx, tx, ticket.OrderID)
		if err != nil {
			return err
		}
		route, err := s.routeRepository.FindByIDForUpdate(ctx, tx, order.RouteID)
		if err != nil {
			return err
		}

		locked, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !locked.Status.CanTransitionTo(model.TicketStatusCancelled) {
			return fmt.Errorf("%w: ticket is %s", apperrors.ErrInvalidTicketStatus, locked.Status)
		}

		cancelled, err = s.repo.UpdateStatus(ctx, tx, id, model.TicketStatusCancelled)
		if err != nil {
			return err
		}
		if err := retagFreedSeats(ctx, tx, s.seatRepository, route, []int{locked.SeatNumber}); err != nil {
			return err
		}

		remaining, err := s.repo.CountPaidByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if remaining == 0 && order.Status.CanTransitionTo(model.OrderStatusCancelled) {
			_, err = s.orderRepository.UpdateStatus(ctx, tx, order.ID, model.OrderStatusCancelled)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.availabilityCache.Invalidate(context.WithoutCancel(ctx), cancelled.RouteID); err != nil {
		logger.WithComponent("service").Warn("availability cache invalidation failed",
			zap.String("route_id", cancelled.RouteID.String()), zap.Error(err))
	}
	return cancelled, nil
}

func (s *TicketServiceImpl) ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Ticket, error) {
	route, err := s.routeRepository.FindByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.repo.ListByRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return withLabels(tickets, route.TotalCapacity), nil
}

// retagFreedSeats moves seats released by a cancellation into the pool the route's current
// boundary assigns them to. A rebalance made while they were ticketed left their tag as it was.
func retagFreedSeats(ctx context.Context, tx pgx.Tx, seats repository.SeatRepository, route *model.Route, freed []int) error {
	if len(freed) == 0 {
		return nil
	}
	wanted := make(map[int]struct{}, len(freed))
	for _, n := range freed {
		wanted[n] = struct{}{}
	}

	current, err := seats.ListByRouteTx(ctx, tx, route.ID)
	if err != nil {
		return err
	}

	boundary := route.Boundary()
	for _, seat := range current {
		if _, ok := wanted[seat.SeatNumber]; !ok {
			continue
		}
		pool := boundary.PoolOf(seat.SeatNumber)
		if seat.Pool == pool {
			continue
		}
		if err := seats.UpdatePool(ctx, tx, route.ID, seat.SeatNumber, pool); err != nil {
			return fmt.Errorf("failed to retag seat %d: %w", seat.SeatNumber, err)
		}
	}
	return nil
}

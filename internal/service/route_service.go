package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go-gin-bus-booking/internal/cache"
	"go-gin-bus-booking/internal/database"
	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/repository"
	"go-gin-bus-booking/internal/seating"
	"go-gin-bus-booking/internal/storage"
	apperrors "go-gin-bus-booking/pkg/app_errors"
	"go-gin-bus-booking/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RouteService interface {
	List(ctx context.Context, filter model.RouteFilter) ([]*model.Route, error)
	// ListPublic returns active routes that have not departed yet.
	ListPublic(ctx context.Context) ([]*model.Route, error)
	ListHomepage(ctx context.Context) ([]*model.Route, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Route, error)
	// GetPublic hides routes that are not active.
	GetPublic(ctx context.Context, id uuid.UUID) (*model.Route, error)
	Create(ctx context.Context, req model.CreateRouteRequest) (*model.Route, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateRouteRequest) (*model.RouteUpdateResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RouteStatus) (*model.Route, error)
	SetHomepagePosition(ctx context.Context, id uuid.UUID, position *int) (*model.Route, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UploadCover(ctx context.Context, id uuid.UUID, file io.Reader) (*model.Route, error)
	RegenerateSeats(ctx context.Context, id uuid.UUID) (int, error)
	// Availability subtracts seats held by unpaid checkouts from the online remaining count.
	Availability(ctx context.Context, id uuid.UUID) (*seating.Availability, error)
	SeatMap(ctx context.Context, id uuid.UUID) (*model.SeatMapResponse, error)
}

type RouteServiceImpl struct {
	tx                database.TxManager
	repository        repository.RouteRepository
	seatRepository    repository.SeatRepository
	ticketRepository  repository.TicketRepository
	orderRepository   repository.OrderRepository
	availabilityCache cache.AvailabilityCache
	holds             cache.CheckoutHolds
	store             storage.BlobStore
	now               func() time.Time
}

func NewRouteService(
	tx database.TxManager,
	routeRepository repository.RouteRepository,
	seatRepository repository.SeatRepository,
	ticketRepository repository.TicketRepository,
	orderRepository repository.OrderRepository,
	availabilityCache cache.AvailabilityCache,
	holds cache.CheckoutHolds,
	store storage.BlobStore,
) RouteService {
	return &RouteServiceImpl{
		tx:                tx,
		repository:        routeRepository,
		seatRepository:    seatRepository,
		ticketRepository:  ticketRepository,
		orderRepository:   orderRepository,
		availabilityCache: availabilityCache,
		holds:             holds,
		store:             store,
		now:               time.Now,
	}
}

func (s *RouteServiceImpl) List(ctx context.Context, filter model.RouteFilter) ([]*model.Route, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.ErrInvalidRouteStatus
	}
	return s.repository.List(ctx, filter)
}

func (s *RouteServiceImpl) ListPublic(ctx context.Context) ([]*model.Route, error) {
	now := s.now()
	return s.repository.List(ctx, model.RouteFilter{Status: model.RouteStatusActive, DepartingAfter: &now})
}

func (s *RouteServiceImpl) ListHomepage(ctx context.Context) ([]*model.Route, error) {
	return s.repository.ListHomepage(ctx)
}

func (s *RouteServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Route, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *RouteServiceImpl) GetPublic(ctx context.Context, id uuid.UUID) (*model.Route, error) {
	route, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if route.Status != model.RouteStatusActive {
		return nil, apperrors.ErrRouteNotFound
	}
	return route, nil
}

func (s *RouteServiceImpl) Create(ctx context.Context, req model.CreateRouteRequest) (*model.Route, error) {
	// 先驗證設定, 不合法就不碰資料庫
	assignment, err := seating.AssignPools(req.TotalCapacity, req.OfflineReserve)
	if err != nil {
		return nil, err
	}

	route := &model.Route{
		Origin:           strings.TrimSpace(req.Origin),
		Destination:      strings.TrimSpace(req.Destination),
		DepartureAt:      req.DepartureAt,
		TotalCapacity:    req.TotalCapacity,
		OfflineReserve:   req.OfflineReserve,
		Price:            req.Price,
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
		Status:           model.RouteStatus(req.Status),
		Description:      req.Description,
		HomepagePosition: req.HomepagePosition,
		Category:         req.Category,
		Subcategory:      req.Subcategory,
	}
	if route.Status == "" {
		route.Status = model.RouteStatusDraft
	}
	if err := validateRoute(route); err != nil {
		return nil, err
	}
	if err := validateHomepagePosition(route.HomepagePosition); err != nil {
		return nil, err
	}

	var created *model.Route
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if route.HomepagePosition != nil {
			if err := s.ensurePositionFree(ctx, tx, uuid.Nil, *route.HomepagePosition); err != nil {
				return err
			}
		}

		created, err = s.repository.Create(ctx, tx, route)
		if err != nil {
			return err
		}

		_, err = s.seatRepository.CreateBatch(ctx, tx, created.ID, assignment.Seats())
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *RouteServiceImpl) Update(ctx context.Context, id uuid.UUID, req model.UpdateRouteRequest) (*model.RouteUpdateResult, error) {
	patch := req.ToPatch()
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidInput)
	}
	patch.Origin = trimmed(patch.Origin)
	patch.Destination = trimmed(patch.Destination)
	if patch.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*patch.Currency))
		patch.Currency = &currency
	}

	result := &model.RouteUpdateResult{}
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := s.repository.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		next := applyPatch(*current, patch)
		if _, err := seating.OnlineCapacity(next.TotalCapacity, next.OfflineReserve); err != nil {
			return err
		}
		if err := validateRoute(&next); err != nil {
			return err
		}

		paid, err := s.ticketRepository.ListPaidSeatNumbersTx(ctx, tx, id)
		if err != nil {
			return err
		}

		capacityChanged := next.TotalCapacity != current.TotalCapacity
		if capacityChanged {
			for _, n := range paid {
				if n > next.TotalCapacity {
					return fmt.Errorf("%w: seat %d is ticketed", apperrors.ErrCapacityInUse, n)
				}
			}
		}

		updated, err := s.repository.Update(ctx, tx, id, patch)
		if err != nil {
			return err
		}
		result.Route = updated

		var changes []seating.SeatChange
		switch {
		case capacityChanged:
			_, changes, err = s.rebuildSeats(ctx, tx, updated, paid)
		case next.OfflineReserve != current.OfflineReserve:
			changes, err = s.rebalance(ctx, tx, current.OfflineReserve, updated, paid)
		}
		if err != nil {
			return err
		}

		if next.OfflineReserve != current.OfflineReserve {
			result.Rebalance = newRebalanceReport(current.OfflineReserve, next.OfflineReserve, changes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return result, nil
}

func (s *RouteServiceImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RouteStatus) (*model.Route, error) {
	if !status.IsValid() {
		return nil, apperrors.ErrInvalidRouteStatus
	}

	var updated *model.Route
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		route, err := s.repository.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !route.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidRouteStatus, route.Status, status)
		}

		updated, err = s.repository.UpdateStatus(ctx, tx, id, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RouteServiceImpl) SetHomepagePosition(ctx context.Context, id uuid.UUID, position *int) (*model.Route, error) {
	if err := validateHomepagePosition(position); err != nil {
		return nil, err
	}

	var updated *model.Route
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.repository.FindByIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if position != nil {
			if err := s.ensurePositionFree(ctx, tx, id, *position); err != nil {
				return err
			}
		}

		var err error
		updated, err = s.repository.SetHomepagePosition(ctx, tx, id, position)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RouteServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.repository.FindByIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if err := s.ticketRepository.DeleteByRoute(ctx, tx, id); err != nil {
			return err
		}
		if err := s.orderRepository.DeleteByRoute(ctx, tx, id); err != nil {
			return err
		}
		if err := s.seatRepository.DeleteByRoute(ctx, tx, id); err != nil {
			return err
		}
		return s.repository.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *RouteServiceImpl) UploadCover(ctx context.Context, id uuid.UUID, file io.Reader) (*model.Route, error) {
	if _, err := s.repository.FindByID(ctx, id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("routes/%s/cover-%d", id, s.now().Unix())
	url, err := s.store.Upload(ctx, key, file)
	if err != nil {
		return nil, err
	}

	var updated *model.Route
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		updated, err = s.repository.Update(ctx, tx, id, model.RoutePatch{CoverImageURL: &url})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RouteServiceImpl) RegenerateSeats(ctx context.Context, id uuid.UUID) (int, error) {
	var count int64
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		route, err := s.repository.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		paid, err := s.ticketRepository.ListPaidSeatNumbersTx(ctx, tx, id)
		if err != nil {
			return err
		}

		count, _, err = s.rebuildSeats(ctx, tx, route, paid)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, id)
	return int(count), nil
}

func (s *RouteServiceImpl) Availability(ctx context.Context, id uuid.UUID) (*seating.Availability, error) {
	log := logger.WithComponent("service")

	cached, ok, err := s.availabilityCache.Get(ctx, id)
	if err != nil {
		log.Warn("availability cache read failed", zap.String("route_id", id.String()), zap.Error(err))
	}
	if ok {
		availability := s.withHolds(ctx, id, *cached)
		return &availability, nil
	}

	route, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	paid, err := s.ticketRepository.ListPaidSeatNumbers(ctx, id)
	if err != nil {
		return nil, err
	}

	// 快取只存已售出的統計, 暫留座位每次重新扣除
	availability := seating.Calculate(route.Boundary(), paid)
	if err := s.availabilityCache.Set(ctx, id, availability); err != nil {
		log.Warn("availability cache write failed", zap.String("route_id", id.String()), zap.Error(err))
	}
	availability = s.withHolds(ctx, id, availability)
	return &availability, nil
}

func (s *RouteServiceImpl) SeatMap(ctx context.Context, id uuid.UUID) (*model.SeatMapResponse, error) {
	route, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	seats, err := s.seatRepository.ListByRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	paid, err := s.ticketRepository.ListPaidSeatNumbers(ctx, id)
	if err != nil {
		return nil, err
	}

	taken := make(map[int]bool, len(paid))
	for _, n := range paid {
		taken[n] = true
	}

	views := make([]model.SeatView, 0, len(seats))
	for _, seat := range seats {
		views = append(views, model.SeatView{
			Number: seat.SeatNumber,
			Label:  seating.LabelFor(seat.SeatNumber, route.TotalCapacity),
			Pool:   seat.Pool,
			Taken:  taken[seat.SeatNumber],
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Number < views[j].Number })

	availability := s.withHolds(ctx, id, seating.Calculate(route.Boundary(), paid))
	layout, _ := seating.LayoutFor(route.TotalCapacity)

	return &model.SeatMapResponse{
		RouteID:      id,
		Layout:       layout,
		Seats:        views,
		Availability: &availability,
	}, nil
}

// rebuildSeats replaces the seat rows of a route with a fresh assignment for its current
// boundary. Ticketed seats keep the tag they already had.
func (s *RouteServiceImpl) rebuildSeats(ctx context.Context, tx pgx.Tx, route *model.Route, paid []int) (int64, []seating.SeatChange, error) {
	assignment, err := seating.AssignPools(route.TotalCapacity, route.OfflineReserve)
	if err != nil {
		return 0, nil, err
	}

	existing, err := s.seatRepository.ListByRouteTx(ctx, tx, route.ID)
	if err != nil {
		return 0, nil, err
	}
	previous := make(map[int]seating.Pool, len(existing))
	for _, seat := range existing {
		previous[seat.SeatNumber] = seat.Pool
	}
	ticketed := make(map[int]bool, len(paid))
	for _, n := range paid {
		ticketed[n] = true
	}

	seats := assignment.Seats()
	var changes []seating.SeatChange
	for i, seat := range seats {
		old, ok := previous[seat.Number]
		if !ok {
			continue
		}
		if ticketed[seat.Number] {
			seats[i].Pool = old
			continue
		}
		if old != seat.Pool {
			changes = append(changes, seating.SeatChange{Number: seat.Number, From: old, To: seat.Pool})
		}
	}

	if err := s.seatRepository.DeleteByRoute(ctx, tx, route.ID); err != nil {
		return 0, nil, err
	}
	count, err := s.seatRepository.CreateBatch(ctx, tx, route.ID, seats)
	if err != nil {
		return 0, nil, err
	}
	return count, changes, nil
}

func (s *RouteServiceImpl) rebalance(ctx context.Context, tx pgx.Tx, oldReserve int, route *model.Route, paid []int) ([]seating.SeatChange, error) {
	seats, err := s.seatRepository.ListByRouteTx(ctx, tx, route.ID)
	if err != nil {
		return nil, err
	}

	changes := seating.Rebalance(oldReserve, route.OfflineReserve, model.ToSeating(seats), paid)
	for _, change := range changes {
		if err := s.seatRepository.UpdatePool(ctx, tx, route.ID, change.Number, change.To); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

func (s *RouteServiceImpl) ensurePositionFree(ctx context.Context, tx pgx.Tx, id uuid.UUID, position int) error {
	holder, err := s.repository.FindByHomepagePosition(ctx, tx, position)
	if errors.Is(err, apperrors.ErrRouteNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if holder.ID != id {
		return fmt.Errorf("%w: position %d", apperrors.ErrHomepagePositionTaken, position)
	}
	return nil
}

// withHolds falls back to the unheld figures when the hold store cannot be read.
func (s *RouteServiceImpl) withHolds(ctx context.Context, id uuid.UUID, availability seating.Availability) seating.Availability {
	held, err := s.holds.Held(ctx, id)
	if err != nil {
		logger.WithComponent("service").Warn("checkout holds read failed",
			zap.String("route_id", id.String()), zap.Error(err))
		return availability
	}
	return availability.WithHeld(held)
}

func (s *RouteServiceImpl) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.availabilityCache.Invalidate(context.WithoutCancel(ctx), id); err != nil {
		logger.WithComponent("service").Warn("availability cache invalidation failed",
			zap.String("route_id", id.String()), zap.Error(err))
	}
}

func validateRoute(route *model.Route) error {
	if route.Origin == "" || route.Destination == "" {
		return fmt.Errorf("%w: origin and destination are required", apperrors.ErrInvalidInput)
	}
	if route.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", apperrors.ErrInvalidInput)
	}
	if len(route.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", apperrors.ErrInvalidInput)
	}
	if !route.Status.IsValid() {
		return apperrors.ErrInvalidRouteStatus
	}
	return nil
}

func validateHomepagePosition(position *int) error {
	if position == nil {
		return nil
	}
	if *position < model.MinHomepagePosition || *position > model.MaxHomepagePosition {
		return fmt.Errorf("%w: homepage position must be between %d and %d",
			apperrors.ErrInvalidInput, model.MinHomepagePosition, model.MaxHomepagePosition)
	}
	return nil
}

func applyPatch(route model.Route, patch model.RoutePatch) model.Route {
	if patch.Origin != nil {
		route.Origin = *patch.Origin
	}
	if patch.Destination != nil {
		route.Destination = *patch.Destination
	}
	if patch.DepartureAt != nil {
		route.DepartureAt = *patch.DepartureAt
	}
	if patch.TotalCapacity != nil {
		route.TotalCapacity = *patch.TotalCapacity
	}
	if patch.OfflineReserve != nil {
		route.OfflineReserve = *patch.OfflineReserve
	}
	if patch.Price != nil {
		route.Price = *patch.Price
	}
	if patch.Currency != nil {
		route.Currency = *patch.Currency
	}
	return route
}

func newRebalanceReport(oldReserve, newReserve int, changes []seating.SeatChange) *model.RebalanceReport {
	report := &model.RebalanceReport{
		OldReserve: oldReserve,
		NewReserve: newReserve,
		ToOffline:  []int{},
		ToOnline:   []int{},
	}
	for _, change := range changes {
		if change.To == seating.PoolOffline {
			report.ToOffline = append(report.ToOffline, change.Number)
		} else {
			report.ToOnline = append(report.ToOnline, change.Number)
		}
	}
	return report
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

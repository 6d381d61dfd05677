package repository

import (
	"context"
	"fmt"

	"go-gin-bus-booking/internal/database"
	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/seating"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var seatCopyColumns = []string{"route_id", "seat_number", "pool"}

type SeatRepository interface {
	ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Seat, error)

	// Transaction methods
	CreateBatch(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, seats []seating.Seat) (int64, error)
	ListByRouteTx(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) ([]*model.Seat, error)
	UpdatePool(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, seatNumber int, pool seating.Pool) error
	DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error
}

type SeatRepositoryImpl struct {
	pool database.Pool
}

func NewSeatRepository(pool database.Pool) SeatRepository {
	return &SeatRepositoryImpl{
		pool: pool,
	}
}

// CreateBatch bulk-inserts the seat rows of a route with COPY.
func (r *SeatRepositoryImpl) CreateBatch(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, seats []seating.Seat) (int64, error) {
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"route_seats"},
		seatCopyColumns,
		pgx.CopyFromSlice(len(seats), func(i int) ([]any, error) {
			return []any{routeID, seats[i].Number, string(seats[i].Pool)}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create seats: %w", err)
	}
	return copied, nil
}

func (r *SeatRepositoryImpl) ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Seat, error) {
	return listSeats(ctx, r.pool, routeID)
}

func (r *SeatRepositoryImpl) ListByRouteTx(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) ([]*model.Seat, error) {
	return listSeats(ctx, tx, routeID)
}

func listSeats(ctx context.Context, q database.Querier, routeID uuid.UUID) ([]*model.Seat, error) {
	query := `
		SELECT id, route_id, seat_number, pool
		FROM route_seats
		WHERE route_id = $1
		ORDER BY seat_number ASC
	`

	rows, err := q.Query(ctx, query, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]*model.Seat, 0)
	for rows.Next() {
		var seat model.Seat
		if err := rows.Scan(&seat.ID, &seat.RouteID, &seat.SeatNumber, &seat.Pool); err != nil {
			return nil, err
		}
		seats = append(seats, &seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

func (r *SeatRepositoryImpl) UpdatePool(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, seatNumber int, pool seating.Pool) error {
	query := `
		UPDATE route_seats
		SET pool = $1
		WHERE route_id = $2 AND seat_number = $3
	`

	result, err := tx.Exec(ctx, query, pool, routeID, seatNumber)
	if err != nil {
		return fmt.Errorf("failed to update seat %d pool: %w", seatNumber, err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrSeatNotFound
	}
	return nil
}

func (r *SeatRepositoryImpl) DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM route_seats WHERE route_id = $1`, routeID); err != nil {
		return fmt.Errorf("failed to delete seats: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-gin-bus-booking/internal/database"
	"go-gin-bus-booking/internal/model"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ticketPaidSeatKey = "tickets_paid_seat_key"

var ticketColumns = []string{"id", "order_id", "route_id", "seat_number", "status", "created_at", "updated_at"}

var ticketSelect = strings.Join(ticketColumns, ", ")

type TicketRepository interface {
	ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Ticket, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*model.Ticket, error)
	ListPaidSeatNumbers(ctx context.Context, routeID uuid.UUID) ([]int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)

	// Transaction methods
	CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error
	ListPaidSeatNumbersTx(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) ([]int, error)
	ListByOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]*model.Ticket, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Ticket, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TicketStatus) (*model.Ticket, error)
	CancelByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error)
	CountPaidByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error)
	DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error
}

type TicketRepositoryImpl struct {
	pool database.Pool
}

func NewTicketRepository(pool database.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

func scanTicket(row rowScanner) (*model.Ticket, error) {
	var ticket model.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.OrderID,
		&ticket.RouteID,
		&ticket.SeatNumber,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func collectTickets(rows pgx.Rows) ([]*model.Ticket, error) {
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CreateBatch inserts all tickets of an order in one round trip. A seat that already
// carries a paid ticket fails the whole batch with ErrSeatAlreadyTicketed.
func (r *TicketRepositoryImpl) CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error {
	query := `
		INSERT INTO tickets (id, order_id, route_id, seat_number, status)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(query, t.ID, t.OrderID, t.RouteID, t.SeatNumber, t.Status)
	}

	results := tx.SendBatch(ctx, batch)
	for range tickets {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			if database.IsUniqueViolation(err, ticketPaidSeatKey) {
				return apperrors.ErrSeatAlreadyTicketed
			}
			return fmt.Errorf("failed to create tickets: %w", err)
		}
	}
	return results.Close()
}

func (r *TicketRepositoryImpl) ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Ticket, error) {
	query := `
		SELECT ` + ticketSelect + `
		FROM tickets
		WHERE route_id = $1
		ORDER BY seat_number ASC, created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, routeID)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func (r *TicketRepositoryImpl) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*model.Ticket, error) {
	return listTicketsByOrder(ctx, r.pool, orderID)
}

func (r *TicketRepositoryImpl) ListByOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]*model.Ticket, error) {
	return listTicketsByOrder(ctx, tx, orderID)
}

func listTicketsByOrder(ctx context.Context, q database.Querier, orderID uuid.UUID) ([]*model.Ticket, error) {
	query := `
		SELECT ` + ticketSelect + `
		FROM tickets
		WHERE order_id = $1
		ORDER BY seat_number ASC
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func (r *TicketRepositoryImpl) ListPaidSeatNumbers(ctx context.Context, routeID uuid.UUID) ([]int, error) {
	return listPaidSeatNumbers(ctx, r.pool, routeID)
}

func (r *TicketRepositoryImpl) ListPaidSeatNumbersTx(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) ([]int, error) {
	return listPaidSeatNumbers(ctx, tx, routeID)
}

func listPaidSeatNumbers(ctx context.Context, q database.Querier, routeID uuid.UUID) ([]int, error) {
	query := `
		SELECT seat_number
		FROM tickets
		WHERE route_id = $1 AND status = $2
		ORDER BY seat_number ASC
	`

	rows, err := q.Query(ctx, query, routeID, model.TicketStatusPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	numbers := make([]int, 0)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	query := `
		SELECT ` + ticketSelect + `
		FROM tickets
		WHERE id = $1
	`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrTicketNotFound)
	}
	return ticket, nil
}

func (r *TicketRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Ticket, error) {
	query := `
		SELECT ` + ticketSelect + `
		FROM tickets
		WHERE id = $1
		FOR UPDATE
	`

	ticket, err := scanTicket(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrTicketNotFound)
	}
	return ticket, nil
}

func (r *TicketRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TicketStatus) (*model.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + ticketSelect

	ticket, err := scanTicket(tx.QueryRow(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrTicketNotFound)
	}
	return ticket, nil
}

// CancelByOrder cancels every paid ticket of an order and returns how many changed.
func (r *TicketRepositoryImpl) CancelByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error) {
	query := `
		UPDATE tickets
		SET status = $1, updated_at = $2
		WHERE order_id = $3 AND status = $4
	`

	result, err := tx.Exec(ctx, query, model.TicketStatusCancelled, time.Now().UTC(), orderID, model.TicketStatusPaid)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel tickets: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *TicketRepositoryImpl) CountPaidByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tickets
		WHERE order_id = $1 AND status = $2
	`

	var count int
	if err := tx.QueryRow(ctx, query, orderID, model.TicketStatusPaid).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TicketRepositoryImpl) DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE route_id = $1`, routeID); err != nil {
		return fmt.Errorf("failed to delete tickets: %w", err)
	}
	return nil
}

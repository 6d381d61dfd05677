package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-gin-bus-booking/internal/database"
	"go-gin-bus-booking/internal/model"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultOrderListLimit = 200

var orderColumns = []string{
	"id", "route_id", "customer_id", "account_id", "quantity", "amount", "currency",
	"source", "status", "metadata", "payment_session_id", "created_at", "updated_at",
}

var orderSelect = strings.Join(orderColumns, ", ")

type OrderRepository interface {
	List(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error)
	ListByAccount(ctx context.Context, accountID string) ([]*model.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error)
	SetPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) error

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) (*model.Order, error)
	DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error
}

type OrderRepositoryImpl struct {
	pool database.Pool
}

func NewOrderRepository(pool database.Pool) OrderRepository {
	return &OrderRepositoryImpl{
		pool: pool,
	}
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.ID,
		&order.RouteID,
		&order.CustomerID,
		&order.AccountID,
		&order.Quantity,
		&order.Amount,
		&order.Currency,
		&order.Source,
		&order.Status,
		&order.Metadata,
		&order.PaymentSessionID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func collectOrders(rows pgx.Rows) ([]*model.Order, error) {
	defer rows.Close()

	orders := make([]*model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Metadata == nil {
		order.Metadata = map[string]string{}
	}

	query := `
		INSERT INTO orders (
			id, route_id, customer_id, account_id, quantity, amount, currency,
			source, status, metadata, payment_session_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + orderSelect

	created, err := scanOrder(tx.QueryRow(ctx, query,
		order.ID, order.RouteID, order.CustomerID, order.AccountID, order.Quantity, order.Amount,
		order.Currency, order.Source, order.Status, order.Metadata, order.PaymentSessionID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return created, nil
}

func (r *OrderRepositoryImpl) List(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	ds := dialect.From("orders").Prepared(true).Select(columns(orderColumns)...)
	if filter.RouteID != nil {
		ds = ds.Where(goqu.C("route_id").Eq(filter.RouteID.String()))
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}
	if filter.Source != "" {
		ds = ds.Where(goqu.C("source").Eq(string(filter.Source)))
	}

	limit := filter.Limit
	if limit == 0 {
		limit = defaultOrderListLimit
	}

	query, args, err := ds.Order(goqu.C("created_at").Desc()).Limit(limit).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *OrderRepositoryImpl) ListByAccount(ctx context.Context, accountID string) ([]*model.Order, error) {
	query := `
		SELECT ` + orderSelect + `
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *OrderRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `
		SELECT ` + orderSelect + `
		FROM orders
		WHERE id = $1
	`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrOrderNotFound)
	}
	return order, nil
}

func (r *OrderRepositoryImpl) FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	query := `
		SELECT ` + orderSelect + `
		FROM orders
		WHERE payment_session_id = $1
	`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		return nil, notFound(err, apperrors.ErrOrderNotFound)
	}
	return order, nil
}

func (r *OrderRepositoryImpl) SetPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	query := `
		UPDATE orders
		SET payment_session_id = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, sessionID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to store payment session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `
		SELECT ` + orderSelect + `
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrOrderNotFound)
	}
	return order, nil
}

func (r *OrderRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + orderSelect

	order, err := scanOrder(tx.QueryRow(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrOrderNotFound)
	}
	return order, nil
}

func (r *OrderRepositoryImpl) DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE route_id = $1`, routeID); err != nil {
		return fmt.Errorf("failed to delete orders: %w", err)
	}
	return nil
}

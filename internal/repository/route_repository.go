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

const homepagePositionKey = "routes_homepage_position_key"

var routeColumns = []string{
	"id", "origin", "destination", "departure_at", "total_capacity", "offline_reserve",
	"price", "currency", "status", "cover_image_url", "description", "homepage_position",
	"category", "subcategory", "created_at", "updated_at",
}

var routeSelect = strings.Join(routeColumns, ", ")

type RouteRepository interface {
	List(ctx context.Context, filter model.RouteFilter) ([]*model.Route, error)
	ListHomepage(ctx context.Context) ([]*model.Route, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Route, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, route *model.Route) (*model.Route, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Route, error)
	FindByHomepagePosition(ctx context.Context, tx pgx.Tx, position int) (*model.Route, error)
	Update(ctx context.Context, tx pgx.Tx, id uuid.UUID, patch model.RoutePatch) (*model.Route, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.RouteStatus) (*model.Route, error)
	SetHomepagePosition(ctx context.Context, tx pgx.Tx, id uuid.UUID, position *int) (*model.Route, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type RouteRepositoryImpl struct {
	pool database.Pool
}

func NewRouteRepository(pool database.Pool) RouteRepository {
	return &RouteRepositoryImpl{
		pool: pool,
	}
}

func scanRoute(row rowScanner) (*model.Route, error) {
	var route model.Route
	err := row.Scan(
		&route.ID,
		&route.Origin,
		&route.Destination,
		&route.DepartureAt,
		&route.TotalCapacity,
		&route.OfflineReserve,
		&route.Price,
		&route.Currency,
		&route.Status,
		&route.CoverImageURL,
		&route.Description,
		&route.HomepagePosition,
		&route.Category,
		&route.Subcategory,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func collectRoutes(rows pgx.Rows) ([]*model.Route, error) {
	defer rows.Close()

	routes := make([]*model.Route, 0)
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return routes, nil
}

func (r *RouteRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, route *model.Route) (*model.Route, error) {
	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}

	query := `
		INSERT INTO routes (
			id, origin, destination, departure_at, total_capacity, offline_reserve,
			price, currency, status, cover_image_url, description, homepage_position,
			category, subcategory
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + routeSelect

	created, err := scanRoute(tx.QueryRow(ctx, query,
		route.ID, route.Origin, route.Destination, route.DepartureAt, route.TotalCapacity,
		route.OfflineReserve, route.Price, route.Currency, route.Status, route.CoverImageURL,
		route.Description, route.HomepagePosition, route.Category, route.Subcategory,
	))
	if err != nil {
		if database.IsUniqueViolation(err, homepagePositionKey) {
			return nil, apperrors.ErrHomepagePositionTaken
		}
		return nil, fmt.Errorf("failed to create route: %w", err)
	}

	return created, nil
}

func (r *RouteRepositoryImpl) List(ctx context.Context, filter model.RouteFilter) ([]*model.Route, error) {
	ds := dialect.From("routes").Prepared(true).Select(columns(routeColumns)...)
	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}
	if filter.Category != "" {
		ds = ds.Where(goqu.C("category").Eq(filter.Category))
	}
	if filter.DepartingAfter != nil {
		ds = ds.Where(goqu.C("departure_at").Gt(*filter.DepartingAfter))
	}

	query, args, err := ds.Order(goqu.C("departure_at").Asc()).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build route query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRoutes(rows)
}

func (r *RouteRepositoryImpl) ListHomepage(ctx context.Context) ([]*model.Route, error) {
	query := `
		SELECT ` + routeSelect + `
		FROM routes
		WHERE homepage_position IS NOT NULL AND status = $1
		ORDER BY homepage_position ASC
	`

	rows, err := r.pool.Query(ctx, query, model.RouteStatusActive)
	if err != nil {
		return nil, err
	}
	return collectRoutes(rows)
}

func (r *RouteRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Route, error) {
	query := `
		SELECT ` + routeSelect + `
		FROM routes
		WHERE id = $1
	`

	route, err := scanRoute(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrRouteNotFound)
	}
	return route, nil
}

// FindByIDForUpdate locks the route row. Every seat-changing write takes this lock first.
func (r *RouteRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Route, error) {
	query := `
		SELECT ` + routeSelect + `
		FROM routes
		WHERE id = $1
		FOR UPDATE
	`

	route, err := scanRoute(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrRouteNotFound)
	}
	return route, nil
}

func (r *RouteRepositoryImpl) FindByHomepagePosition(ctx context.Context, tx pgx.Tx, position int) (*model.Route, error) {
	query := `
		SELECT ` + routeSelect + `
		FROM routes
		WHERE homepage_position = $1
	`

	route, err := scanRoute(tx.QueryRow(ctx, query, position))
	if err != nil {
		return nil, notFound(err, apperrors.ErrRouteNotFound)
	}
	return route, nil
}

func (r *RouteRepositoryImpl) Update(ctx context.Context, tx pgx.Tx, id uuid.UUID, patch model.RoutePatch) (*model.Route, error) {
	record := goqu.Record{}
	if patch.Origin != nil {
		record["origin"] = *patch.Origin
	}
	if patch.Destination != nil {
		record["destination"] = *patch.Destination
	}
	if patch.DepartureAt != nil {
		record["departure_at"] = *patch.DepartureAt
	}
	if patch.TotalCapacity != nil {
		record["total_capacity"] = *patch.TotalCapacity
	}
	if patch.OfflineReserve != nil {
		record["offline_reserve"] = *patch.OfflineReserve
	}
	if patch.Price != nil {
		record["price"] = *patch.Price
	}
	if patch.Currency != nil {
		record["currency"] = *patch.Currency
	}
	if patch.Description != nil {
		record["description"] = *patch.Description
	}
	if patch.Category != nil {
		record["category"] = *patch.Category
	}
	if patch.Subcategory != nil {
		record["subcategory"] = *patch.Subcategory
	}
	if patch.CoverImageURL != nil {
		record["cover_image_url"] = *patch.CoverImageURL
	}

	if len(record) == 0 {
		return nil, apperrors.ErrInvalidInput
	}
	record["updated_at"] = time.Now().UTC()

	query, args, err := dialect.Update("routes").Prepared(true).
		Set(record).
		Where(goqu.C("id").Eq(id.String())).
		Returning(columns(routeColumns)...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build route update: %w", err)
	}

	route, err := scanRoute(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, apperrors.ErrRouteNotFound)
	}
	return route, nil
}

func (r *RouteRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.RouteStatus) (*model.Route, error) {
	query := `
		UPDATE routes
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + routeSelect

	route, err := scanRoute(tx.QueryRow(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrRouteNotFound)
	}
	return route, nil
}

// SetHomepagePosition sets or clears (nil) the homepage slot of a route.
func (r *RouteRepositoryImpl) SetHomepagePosition(ctx context.Context, tx pgx.Tx, id uuid.UUID, position *int) (*model.Route, error) {
	query := `
		UPDATE routes
		SET homepage_position = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + routeSelect

	route, err := scanRoute(tx.QueryRow(ctx, query, position, time.Now().UTC(), id))
	if err != nil {
		if database.IsUniqueViolation(err, homepagePositionKey) {
			return nil, apperrors.ErrHomepagePositionTaken
		}
		return nil, notFound(err, apperrors.ErrRouteNotFound)
	}
	return route, nil
}

func (r *RouteRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRouteNotFound
	}
	return nil
}

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
)

const customerEmailKey = "customers_email_key"

var customerSelect = strings.Join([]string{
	"id", "name", "email", "phone", "account_id", "created_at", "updated_at",
}, ", ")

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) (*model.Customer, error)
	List(ctx context.Context) ([]*model.Customer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	LinkAccount(ctx context.Context, id uuid.UUID, accountID string) (*model.Customer, error)
}

type CustomerRepositoryImpl struct {
	pool database.Pool
}

func NewCustomerRepository(pool database.Pool) CustomerRepository {
	return &CustomerRepositoryImpl{
		pool: pool,
	}
}

func scanCustomer(row rowScanner) (*model.Customer, error) {
	var customer model.Customer
	err := row.Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.AccountID,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepositoryImpl) Create(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}

	query := `
		INSERT INTO customers (id, name, email, phone, account_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + customerSelect

	created, err := scanCustomer(r.pool.QueryRow(ctx, query,
		customer.ID, customer.Name, customer.Email, customer.Phone, customer.AccountID,
	))
	if err != nil {
		if database.IsUniqueViolation(err, customerEmailKey) {
			return nil, apperrors.ErrCustomerEmailTaken
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return created, nil
}

func (r *CustomerRepositoryImpl) List(ctx context.Context) ([]*model.Customer, error) {
	query := `
		SELECT ` + customerSelect + `
		FROM customers
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]*model.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *CustomerRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	query := `
		SELECT ` + customerSelect + `
		FROM customers
		WHERE id = $1
	`

	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrCustomerNotFound)
	}
	return customer, nil
}

// FindByEmail matches case-insensitively.
func (r *CustomerRepositoryImpl) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	query := `
		SELECT ` + customerSelect + `
		FROM customers
		WHERE LOWER(email) = LOWER($1)
	`

	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, notFound(err, apperrors.ErrCustomerNotFound)
	}
	return customer, nil
}

func (r *CustomerRepositoryImpl) LinkAccount(ctx context.Context, id uuid.UUID, accountID string) (*model.Customer, error) {
	query := `
		UPDATE customers
		SET account_id = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + customerSelect

	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, accountID, time.Now().UTC(), id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrCustomerNotFound)
	}
	return customer, nil
}

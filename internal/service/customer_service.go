package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/repository"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/google/uuid"
)

type CustomerService interface {
	// FindOrCreate returns the customer with this email, creating it on first purchase.
	FindOrCreate(ctx context.Context, name, email, phone string) (*model.Customer, error)
	// LinkAccount attaches a signed-in account to the customer profile of its email.
	LinkAccount(ctx context.Context, accountID, email string, req model.LinkCustomerRequest) (*model.Customer, error)
	List(ctx context.Context) ([]*model.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Customer, error)
}

type CustomerServiceImpl struct {
	repository repository.CustomerRepository
}

func NewCustomerService(customerRepository repository.CustomerRepository) CustomerService {
	return &CustomerServiceImpl{
		repository: customerRepository,
	}
}

func (s *CustomerServiceImpl) FindOrCreate(ctx context.Context, name, email, phone string) (*model.Customer, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", apperrors.ErrInvalidInput)
	}

	customer, err := s.repository.FindByEmail(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, apperrors.ErrCustomerNotFound) {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = email
	}
	newCustomer := &model.Customer{Name: name, Email: email}
	if phone = strings.TrimSpace(phone); phone != "" {
		newCustomer.Phone = &phone
	}

	created, err := s.repository.Create(ctx, newCustomer)
	if errors.Is(err, apperrors.ErrCustomerEmailTaken) {
		// 同時建立: 另一個請求先寫入了
		return s.repository.FindByEmail(ctx, email)
	}
	return created, err
}

func (s *CustomerServiceImpl) LinkAccount(ctx context.Context, accountID, email string, req model.LinkCustomerRequest) (*model.Customer, error) {
	if accountID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	customer, err := s.FindOrCreate(ctx, req.Name, email, req.Phone)
	if err != nil {
		return nil, err
	}

	if customer.AccountID != nil {
		if *customer.AccountID != accountID {
			return nil, fmt.Errorf("%w: customer is linked to another account", apperrors.ErrForbidden)
		}
		return customer, nil
	}

	return s.repository.LinkAccount(ctx, customer.ID, accountID)
}

func (s *CustomerServiceImpl) List(ctx context.Context) ([]*model.Customer, error) {
	return s.repository.List(ctx)
}

func (s *CustomerServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return s.repository.FindByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package handler

import (
	"context"
	"io"

	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/payment"
	"go-gin-bus-booking/internal/queue"
	"go-gin-bus-booking/internal/seating"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type RouteServiceMock struct {
	mock.Mock
}

func (m *RouteServiceMock) List(ctx context.Context, filter model.RouteFilter) ([]*model.Route, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Route), args.Error(1)
}

func (m *RouteServiceMock) ListPublic(ctx context.Context) ([]*model.Route, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Route), args.Error(1)
}

func (m *RouteServiceMock) ListHomepage(ctx context.Context) ([]*model.Route, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Route), args.Error(1)
}

func (m *RouteServiceMock) Get(ctx context.Context, id uuid.UUID) (*model.Route, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Route), args.Error(1)
}

func (m *RouteServiceMock) GetPublic(ctx context.Context, id uuid.UUID) (*model.Route, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Route), args.Error(1)
}

func (m *RouteServiceMock) Create(ctx context.Context, req model.CreateRouteRequest) (*model.Route, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Route), args.Error(1)
}

func (m *RouteServiceMock) Update(ctx context.Context, id uuid.UUID, req model.UpdateRouteRequest) (*model.RouteUpdateResult, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RouteUpdateResult), args.Error(1)
}

func (m *RouteServiceMock) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RouteStatus) (*model.Route, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Route), args.Error(1)
}

func (m *RouteServiceMock) SetHomepagePosition(ctx context.Context, id uuid.UUID, position *int) (*model.Route, error) {
	args := m.Called(ctx, id, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Route), args.Error(1)
}

func (m *RouteServiceMock) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RouteServiceMock) UploadCover(ctx context.Context, id uuid.UUID, file io.Reader) (*model.Route, error) {
	args := m.Called(ctx, id, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Route), args.Error(1)
}

func (m *RouteServiceMock) RegenerateSeats(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *RouteServiceMock) Availability(ctx context.Context, id uuid.UUID) (*seating.Availability, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seating.Availability), args.Error(1)
}

func (m *RouteServiceMock) SeatMap(ctx context.Context, id uuid.UUID) (*model.SeatMapResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SeatMapResponse), args.Error(1)
}

type BookingServiceMock struct {
	mock.Mock
}

func (m *BookingServiceMock) StartCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutResponse), args.Error(1)
}

func (m *BookingServiceMock) FinalizeBySession(ctx context.Context, sessionID string) (*model.FinalizeResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FinalizeResult), args.Error(1)
}

func (m *BookingServiceMock) FinalizeOrder(ctx context.Context, orderID uuid.UUID) (*model.FinalizeResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FinalizeResult), args.Error(1)
}

func (m *BookingServiceMock) ConfirmFromReturn(ctx context.Context, sessionID string) (*model.FinalizeResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FinalizeResult), args.Error(1)
}

func (m *BookingServiceMock) HandlePaymentEvent(ctx context.Context, event *payment.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *BookingServiceMock) CreateOfflineOrder(ctx context.Context, req model.OfflineOrderRequest) (*model.OrderDetail, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderDetail), args.Error(1)
}

func (m *BookingServiceMock) CancelOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *BookingServiceMock) GetOrder(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderDetail), args.Error(1)
}

func (m *BookingServiceMock) GetAccountOrder(ctx context.Context, accountID string, id uuid.UUID) (*model.OrderDetail, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderDetail), args.Error(1)
}

func (m *BookingServiceMock) ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *BookingServiceMock) ListAccountOrders(ctx context.Context, accountID string) ([]*model.Order, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *BookingServiceMock) OrderTickets(ctx context.Context, id uuid.UUID) ([]*model.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

func (m *BookingServiceMock) RenderTickets(ctx context.Context, id uuid.UUID, accountID *string) ([]byte, string, error) {
	args := m.Called(ctx, id, accountID)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

type TicketServiceMock struct {
	mock.Mock
}

func (m *TicketServiceMock) CancelTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *TicketServiceMock) ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Ticket, error) {
	args := m.Called(ctx, routeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Ticket), args.Error(1)
}

type CustomerServiceMock struct {
	mock.Mock
}

func (m *CustomerServiceMock) FindOrCreate(ctx context.Context, name, email, phone string) (*model.Customer, error) {
	args := m.Called(ctx, name, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *CustomerServiceMock) LinkAccount(ctx context.Context, accountID, email string, req model.LinkCustomerRequest) (*model.Customer, error) {
	args := m.Called(ctx, accountID, email, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *CustomerServiceMock) List(ctx context.Context) ([]*model.Customer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Customer), args.Error(1)
}

func (m *CustomerServiceMock) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) CreateCheckoutSession(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *GatewayMock) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *GatewayMock) ParseWebhook(payload []byte, signatureHeader string) (*payment.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

type EventDeduperMock struct {
	mock.Mock
}

func (m *EventDeduperMock) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *EventDeduperMock) Forget(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type PaymentEventQueueMock struct {
	mock.Mock
}

func (m *PaymentEventQueueMock) Publish(ctx context.Context, event *payment.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *PaymentEventQueueMock) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan queue.Delivery), args.Error(1)
}

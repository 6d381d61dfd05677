package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/payment"
	"go-gin-bus-booking/internal/seating"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// memStore backs the fake repositories. Every fake returns copies so callers cannot
// change stored rows without going through a repository method.
type memStore struct {
	mu        sync.Mutex
	routes    map[uuid.UUID]model.Route
	seats     map[uuid.UUID][]model.Seat
	orders    map[uuid.UUID]model.Order
	tickets   map[uuid.UUID]model.Ticket
	customers map[uuid.UUID]model.Customer
	seatSeq   int
	clock     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		routes:    map[uuid.UUID]model.Route{},
		seats:     map[uuid.UUID][]model.Seat{},
		orders:    map[uuid.UUID]model.Order{},
		tickets:   map[uuid.UUID]model.Ticket{},
		customers: map[uuid.UUID]model.Customer{},
		clock:     time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so created_at ordering is stable.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memSnapshot struct {
	routes    map[uuid.UUID]model.Route
	seats     map[uuid.UUID][]model.Seat
	orders    map[uuid.UUID]model.Order
	tickets   map[uuid.UUID]model.Ticket
	customers map[uuid.UUID]model.Customer
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := memSnapshot{
		routes:    make(map[uuid.UUID]model.Route, len(m.routes)),
		seats:     make(map[uuid.UUID][]model.Seat, len(m.seats)),
		orders:    make(map[uuid.UUID]model.Order, len(m.orders)),
		tickets:   make(map[uuid.UUID]model.Ticket, len(m.tickets)),
		customers: make(map[uuid.UUID]model.Customer, len(m.customers)),
	}
	for k, v := range m.routes {
		snap.routes[k] = v
	}
	for k, v := range m.seats {
		snap.seats[k] = append([]model.Seat(nil), v...)
	}
	for k, v := range m.orders {
		v.Metadata = copyMeta(v.Metadata)
		snap.orders[k] = v
	}
	for k, v := range m.tickets {
		snap.tickets[k] = v
	}
	for k, v := range m.customers {
		snap.customers[k] = v
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = snap.routes
	m.seats = snap.seats
	m.orders = snap.orders
	m.tickets = snap.tickets
	m.customers = snap.customers
}

func copyMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// fakeTxManager serializes transactions, which stands in for the route row lock, and
// restores the store when fn fails.
type fakeTxManager struct {
	mu      sync.Mutex
	store   *memStore
	commits int
	aborts  int
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(snap)
		f.aborts++
		return err
	}
	f.commits++
	return nil
}

// ---- routes ----

type fakeRouteRepo struct{ s *memStore }

func (r *fakeRouteRepo) List(ctx context.Context, filter model.RouteFilter) ([]*model.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*model.Route, 0)
	for _, route := range r.s.routes {
		if filter.Status != "" && route.Status != filter.Status {
			continue
		}
		if filter.Category != "" && (route.Category == nil || *route.Category != filter.Category) {
			continue
		}
		if filter.DepartingAfter != nil && !route.DepartureAt.After(*filter.DepartingAfter) {
			continue
		}
		route := route
		out = append(out, &route)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureAt.Before(out[j].DepartureAt) })
	return out, nil
}

func (r *fakeRouteRepo) ListHomepage(ctx context.Context) ([]*model.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*model.Route, 0)
	for _, route := range r.s.routes {
		if route.HomepagePosition == nil || route.Status != model.RouteStatusActive {
			continue
		}
		route := route
		out = append(out, &route)
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].HomepagePosition < *out[j].HomepagePosition })
	return out, nil
}

func (r *fakeRouteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	route, ok := r.s.routes[id]
	if !ok {
		return nil, apperrors.ErrRouteNotFound
	}
	return &route, nil
}

func (r *fakeRouteRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Route, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeRouteRepo) Create(ctx context.Context, tx pgx.Tx, route *model.Route) (*model.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if route.HomepagePosition != nil {
		for _, other := range r.s.routes {
			if other.HomepagePosition != nil && *other.HomepagePosition == *route.HomepagePosition {
				return nil, apperrors.ErrHomepagePositionTaken
			}
		}
	}

	created := *route
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.routes[created.ID] = created
	return &created, nil
}

func (r *fakeRouteRepo) FindByHomepagePosition(ctx context.Context, tx pgx.Tx, position int) (*model.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, route := range r.s.routes {
		if route.HomepagePosition != nil && *route.HomepagePosition == position {
			return &route, nil
		}
	}
	return nil, apperrors.ErrRouteNotFound
}

func (r *fakeRouteRepo) Update(ctx context.Context, tx pgx.Tx, id uuid.UUID, patch model.RoutePatch) (*model.Route, error) {
	if patch.IsEmpty() {
		return nil, apperrors.ErrInvalidInput
	}
	return r.mutate(id, func(route *model.Route) {
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
		if patch.Description != nil {
			route.Description = patch.Description
		}
		if patch.Category != nil {
			route.Category = patch.Category
		}
		if patch.Subcategory != nil {
			route.Subcategory = patch.Subcategory
		}
		if patch.CoverImageURL != nil {
			route.CoverImageURL = patch.CoverImageURL
		}
	})
}

func (r *fakeRouteRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.RouteStatus) (*model.Route, error) {
	return r.mutate(id, func(route *model.Route) { route.Status = status })
}

func (r *fakeRouteRepo) SetHomepagePosition(ctx context.Context, tx pgx.Tx, id uuid.UUID, position *int) (*model.Route, error) {
	return r.mutate(id, func(route *model.Route) { route.HomepagePosition = position })
}

func (r *fakeRouteRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.routes[id]; !ok {
		return apperrors.ErrRouteNotFound
	}
	delete(r.s.routes, id)
	return nil
}

func (r *fakeRouteRepo) mutate(id uuid.UUID, fn func(route *model.Route)) (*model.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	route, ok := r.s.routes[id]
	if !ok {
		return nil, apperrors.ErrRouteNotFound
	}
	fn(&route)
	route.UpdatedAt = r.s.tick()
	r.s.routes[id] = route
	return &route, nil
}

// ---- seats ----

type fakeSeatRepo struct{ s *memStore }

func (r *fakeSeatRepo) ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Seat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*model.Seat, 0, len(r.s.seats[routeID]))
	for _, seat := range r.s.seats[routeID] {
		seat := seat
		out = append(out, &seat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (r *fakeSeatRepo) ListByRouteTx(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) ([]*model.Seat, error) {
	return r.ListByRoute(ctx, routeID)
}

func (r *fakeSeatRepo) CreateBatch(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, seats []seating.Seat) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing := map[int]bool{}
	for _, seat := range r.s.seats[routeID] {
		existing[seat.SeatNumber] = true
	}
	for _, seat := range seats {
		if existing[seat.Number] {
			return 0, fmt.Errorf("duplicate seat %d", seat.Number)
		}
		existing[seat.Number] = true
		r.s.seatSeq++
		r.s.seats[routeID] = append(r.s.seats[routeID], model.Seat{
			ID: r.s.seatSeq, RouteID: routeID, SeatNumber: seat.Number, Pool: seat.Pool,
		})
	}
	return int64(len(seats)), nil
}

func (r *fakeSeatRepo) UpdatePool(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, seatNumber int, pool seating.Pool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seats := r.s.seats[routeID]
	for i := range seats {
		if seats[i].SeatNumber == seatNumber {
			seats[i].Pool = pool
			return nil
		}
	}
	return apperrors.ErrSeatNotFound
}

func (r *fakeSeatRepo) DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.seats, routeID)
	return nil
}

// ---- tickets ----

type fakeTicketRepo struct{ s *memStore }

func (r *fakeTicketRepo) filter(keep func(t model.Ticket) bool) []*model.Ticket {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*model.Ticket, 0)
	for _, t := range r.s.tickets {
		if keep(t) {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out
}

func (r *fakeTicketRepo) ListByRoute(ctx context.Context, routeID uuid.UUID) ([]*model.Ticket, error) {
	return r.filter(func(t model.Ticket) bool { return t.RouteID == routeID }), nil
}

func (r *fakeTicketRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*model.Ticket, error) {
	return r.filter(func(t model.Ticket) bool { return t.OrderID == orderID }), nil
}

func (r *fakeTicketRepo) ListByOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]*model.Ticket, error) {
	return r.ListByOrder(ctx, orderID)
}

func (r *fakeTicketRepo) ListPaidSeatNumbers(ctx context.Context, routeID uuid.UUID) ([]int, error) {
	tickets := r.filter(func(t model.Ticket) bool { return t.RouteID == routeID && t.IsPaid() })
	numbers := make([]int, 0, len(tickets))
	for _, t := range tickets {
		numbers = append(numbers, t.SeatNumber)
	}
	return numbers, nil
}

func (r *fakeTicketRepo) ListPaidSeatNumbersTx(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) ([]int, error) {
	return r.ListPaidSeatNumbers(ctx, routeID)
}

func (r *fakeTicketRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return &t, nil
}

func (r *fakeTicketRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Ticket, error) {
	return r.FindByID(ctx, id)
}

// CreateBatch enforces one paid ticket per seat, like the partial unique index.
func (r *fakeTicketRepo) CreateBatch(ctx context.Context, tx pgx.Tx, tickets []*model.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range tickets {
		for _, existing := range r.s.tickets {
			if existing.RouteID == t.RouteID && existing.SeatNumber == t.SeatNumber && existing.IsPaid() {
				return apperrors.ErrSeatAlreadyTicketed
			}
		}
		t.CreatedAt = r.s.tick()
		t.UpdatedAt = t.CreatedAt
		r.s.tickets[t.ID] = *t
	}
	return nil
}

func (r *fakeTicketRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TicketStatus) (*model.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	t.Status = status
	t.UpdatedAt = r.s.tick()
	r.s.tickets[id] = t
	return &t, nil
}

func (r *fakeTicketRepo) CancelByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.tickets {
		if t.OrderID == orderID && t.IsPaid() {
			t.Status = model.TicketStatusCancelled
			r.s.tickets[id] = t
			n++
		}
	}
	return n, nil
}

func (r *fakeTicketRepo) CountPaidByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error) {
	return len(r.filter(func(t model.Ticket) bool { return t.OrderID == orderID && t.IsPaid() })), nil
}

func (r *fakeTicketRepo) DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, t := range r.s.tickets {
		if t.RouteID == routeID {
			delete(r.s.tickets, id)
		}
	}
	return nil
}

// ---- orders ----

type fakeOrderRepo struct{ s *memStore }

func (r *fakeOrderRepo) filter(keep func(o model.Order) bool) []*model.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*model.Order, 0)
	for _, o := range r.s.orders {
		if keep(o) {
			o := o
			o.Metadata = copyMeta(o.Metadata)
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeOrderRepo) List(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	out := r.filter(func(o model.Order) bool {
		return (filter.RouteID == nil || o.RouteID == *filter.RouteID) &&
			(filter.Status == "" || o.Status == filter.Status) &&
			(filter.Source == "" || o.Source == filter.Source)
	})
	if filter.Limit > 0 && uint(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeOrderRepo) ListByAccount(ctx context.Context, accountID string) ([]*model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.AccountID != nil && *o.AccountID == accountID }), nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	out := r.filter(func(o model.Order) bool { return o.ID == id })
	if len(out) == 0 {
		return nil, apperrors.ErrOrderNotFound
	}
	return out[0], nil
}

func (r *fakeOrderRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeOrderRepo) FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	out := r.filter(func(o model.Order) bool { return o.PaymentSessionID != nil && *o.PaymentSessionID == sessionID })
	if len(out) == 0 {
		return nil, apperrors.ErrOrderNotFound
	}
	return out[0], nil
}

func (r *fakeOrderRepo) SetPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	_, err := r.mutate(id, func(o *model.Order) { o.PaymentSessionID = &sessionID })
	return err
}

func (r *fakeOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	created := *order
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	if created.Metadata == nil {
		created.Metadata = map[string]string{}
	}
	created.Metadata = copyMeta(created.Metadata)
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.orders[created.ID] = created

	out := created
	out.Metadata = copyMeta(created.Metadata)
	return &out, nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	return r.mutate(id, func(o *model.Order) { o.Status = status })
}

func (r *fakeOrderRepo) DeleteByRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, o := range r.s.orders {
		if o.RouteID == routeID {
			delete(r.s.orders, id)
		}
	}
	return nil
}

func (r *fakeOrderRepo) mutate(id uuid.UUID, fn func(o *model.Order)) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	fn(&o)
	o.UpdatedAt = r.s.tick()
	r.s.orders[id] = o

	out := o
	out.Metadata = copyMeta(o.Metadata)
	return &out, nil
}

// ---- customers ----

type fakeCustomerRepo struct{ s *memStore }

func (r *fakeCustomerRepo) Create(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.customers {
		if strings.EqualFold(c.Email, customer.Email) {
			return nil, apperrors.ErrCustomerEmailTaken
		}
	}
	created := *customer
	created.ID = uuid.New()
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.customers[created.ID] = created
	return &created, nil
}

func (r *fakeCustomerRepo) List(ctx context.Context) ([]*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*model.Customer, 0, len(r.s.customers))
	for _, c := range r.s.customers {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.customers[id]
	if !ok {
		return nil, apperrors.ErrCustomerNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.customers {
		if strings.EqualFold(c.Email, email) {
			return &c, nil
		}
	}
	return nil, apperrors.ErrCustomerNotFound
}

func (r *fakeCustomerRepo) LinkAccount(ctx context.Context, id uuid.UUID, accountID string) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.customers[id]
	if !ok {
		return nil, apperrors.ErrCustomerNotFound
	}
	c.AccountID = &accountID
	c.UpdatedAt = r.s.tick()
	r.s.customers[id] = c
	return &c, nil
}

// ---- collaborators ----

type fakeGateway struct {
	mu         sync.Mutex
	inputs     []payment.CheckoutInput
	createErr  error
	paid       map[string]bool
	sessionSeq int
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inputs = append(g.inputs, in)
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.sessionSeq++
	id := fmt.Sprintf("cs_test_%d", g.sessionSeq)
	return &payment.CheckoutSession{ID: id, URL: "https://pay.example/" + id}, nil
}

func (g *fakeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paid[sessionID], nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signatureHeader string) (*payment.Event, error) {
	return nil, apperrors.ErrInvalidSignature
}

type fakeHolds struct {
	mu    sync.Mutex
	held  map[uuid.UUID]map[uuid.UUID]int
	calls int
}

func newFakeHolds() *fakeHolds {
	return &fakeHolds{held: map[uuid.UUID]map[uuid.UUID]int{}}
}

func (h *fakeHolds) Reserve(ctx context.Context, routeID, orderID uuid.UUID, quantity, remaining int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls++
	others := 0
	for id, n := range h.held[routeID] {
		if id != orderID {
			others += n
		}
	}
	if others+quantity > remaining {
		free := remaining - others
		if free < 0 {
			free = 0
		}
		return &apperrors.InsufficientSeatsError{Requested: quantity, Remaining: free}
	}
	if h.held[routeID] == nil {
		h.held[routeID] = map[uuid.UUID]int{}
	}
	h.held[routeID][orderID] = quantity
	return nil
}

func (h *fakeHolds) Release(ctx context.Context, routeID, orderID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.held[routeID], orderID)
	return nil
}

func (h *fakeHolds) Held(ctx context.Context, routeID uuid.UUID) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, n := range h.held[routeID] {
		total += n
	}
	return total, nil
}

type fakeAvailabilityCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]seating.Availability
	sets        int
	invalidated []uuid.UUID
}

func newFakeAvailabilityCache() *fakeAvailabilityCache {
	return &fakeAvailabilityCache{entries: map[uuid.UUID]seating.Availability{}}
}

func (c *fakeAvailabilityCache) Get(ctx context.Context, routeID uuid.UUID) (*seating.Availability, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.entries[routeID]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}

func (c *fakeAvailabilityCache) Set(ctx context.Context, routeID uuid.UUID, availability seating.Availability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[routeID] = availability
	c.sets++
	return nil
}

// Invalidate fails on a cancelled context like a real client would.
func (c *fakeAvailabilityCache) Invalidate(ctx context.Context, routeID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, routeID)
	c.invalidated = append(c.invalidated, routeID)
	return nil
}

type fakeBlobStore struct {
	keys []string
	err  error
}

func (b *fakeBlobStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	b.keys = append(b.keys, key)
	return "http://cdn.example/" + key + ".png", nil
}

// noShuffle keeps candidates in ascending order so picks are predictable.
type noShuffle struct{}

func (noShuffle) Shuffle(int, func(i, j int)) {}

// ---- fixture ----

type fixture struct {
	store     *memStore
	tx        *fakeTxManager
	routes    *fakeRouteRepo
	seats     *fakeSeatRepo
	tickets   *fakeTicketRepo
	orders    *fakeOrderRepo
	customers *fakeCustomerRepo
	gateway   *fakeGateway
	holds     *fakeHolds
	cache     *fakeAvailabilityCache
	blobs     *fakeBlobStore
	now       time.Time

	customerService *CustomerServiceImpl
	routeService    *RouteServiceImpl
	bookingService  *BookingServiceImpl
	ticketService   *TicketServiceImpl
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:     store,
		tx:        &fakeTxManager{store: store},
		routes:    &fakeRouteRepo{s: store},
		seats:     &fakeSeatRepo{s: store},
		tickets:   &fakeTicketRepo{s: store},
		orders:    &fakeOrderRepo{s: store},
		customers: &fakeCustomerRepo{s: store},
		gateway:   &fakeGateway{paid: map[string]bool{}},
		holds:     newFakeHolds(),
		cache:     newFakeAvailabilityCache(),
		blobs:     &fakeBlobStore{},
		now:       time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.customerService = NewCustomerService(f.customers).(*CustomerServiceImpl)

	f.routeService = NewRouteService(f.tx, f.routes, f.seats, f.tickets, f.orders, f.cache, f.holds, f.blobs).(*RouteServiceImpl)
	f.routeService.now = clock

	f.bookingService = NewBookingService(
		f.tx, f.routes, f.seats, f.tickets, f.orders, f.customerService,
		f.gateway, f.holds, f.cache, seating.NewPicker(noShuffle{}),
	).(*BookingServiceImpl)
	f.bookingService.now = clock

	f.ticketService = NewTicketService(f.tx, f.tickets, f.orders, f.routes, f.seats, f.cache).(*TicketServiceImpl)
	return f
}

// addRoute stores an active route departing tomorrow with freshly assigned seats.
func (f *fixture) addRoute(total, reserve int) *model.Route {
	assignment, err := seating.AssignPools(total, reserve)
	if err != nil {
		panic(err)
	}
	route, _ := f.routes.Create(context.Background(), nil, &model.Route{
		Origin:         "Taipei",
		Destination:    "Taichung",
		DepartureAt:    f.now.Add(24 * time.Hour),
		TotalCapacity:  total,
		OfflineReserve: reserve,
		Price:          50000,
		Currency:       "TWD",
		Status:         model.RouteStatusActive,
	})
	if _, err := f.seats.CreateBatch(context.Background(), nil, route.ID, assignment.Seats()); err != nil {
		panic(err)
	}
	return route
}

// addPaidOrder stores a paid online order holding the given seats.
func (f *fixture) addPaidOrder(route *model.Route, seats ...int) (*model.Order, []*model.Ticket) {
	order, _ := f.orders.Create(context.Background(), nil, &model.Order{
		RouteID:  route.ID,
		Quantity: len(seats),
		Amount:   route.Price * int64(len(seats)),
		Currency: route.Currency,
		Source:   model.OrderSourceOnline,
		Status:   model.OrderStatusPaid,
		Metadata: map[string]string{model.MetaCustomerName: "Chen"},
	})
	tickets := model.NewTickets(order, seats)
	if err := f.tickets.CreateBatch(context.Background(), nil, tickets); err != nil {
		panic(err)
	}
	return order, tickets
}

func (f *fixture) seatPools(routeID uuid.UUID) map[int]seating.Pool {
	seats, _ := f.seats.ListByRoute(context.Background(), routeID)
	pools := make(map[int]seating.Pool, len(seats))
	for _, s := range seats {
		pools[s.SeatNumber] = s.Pool
	}
	return pools
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus 訂單狀態類型
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "created"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusPaidOffline    OrderStatus = "paid_offline"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusFailed         OrderStatus = "failed"
	OrderStatusRefundRequired OrderStatus = "refund_required"
)

// IsValid 驗證狀態是否有效
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusPaidOffline,
		OrderStatusCancelled, OrderStatusFailed, OrderStatusRefundRequired:
		return true
	}
	return false
}

// IsPaid reports whether the order holds (or held) confirmed seats.
func (s OrderStatus) IsPaid() bool {
	return s == OrderStatusPaid || s == OrderStatusPaidOffline
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusCreated:        {OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled, OrderStatusRefundRequired},
		OrderStatusPaid:           {OrderStatusCancelled, OrderStatusRefundRequired},
		OrderStatusPaidOffline:    {OrderStatusCancelled},
		OrderStatusRefundRequired: {OrderStatusCancelled},
		OrderStatusCancelled:      {},
		OrderStatusFailed:         {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// OrderSource is the sale channel of an order.
type OrderSource string

const (
	OrderSourceOnline  OrderSource = "online"
	OrderSourceOffline OrderSource = "offline"
)

func (s OrderSource) IsValid() bool {
	return s == OrderSourceOnline || s == OrderSourceOffline
}

// Metadata keys recorded at purchase time.
const (
	MetaCustomerName  = "customer_name"
	MetaCustomerPhone = "customer_phone"
	MetaCustomerEmail = "customer_email"
	MetaNote          = "note"
)

// Order 訂單模型
type Order struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	RouteID          uuid.UUID         `json:"route_id" db:"route_id"`
	CustomerID       *uuid.UUID        `json:"customer_id,omitempty" db:"customer_id"`
	AccountID        *string           `json:"account_id,omitempty" db:"account_id"`
	Quantity         int               `json:"quantity" db:"quantity"`
	Amount           int64             `json:"amount" db:"amount"`
	Currency         string            `json:"currency" db:"currency"`
	Source           OrderSource       `json:"source" db:"source"`
	Status           OrderStatus       `json:"status" db:"status"`
	Metadata         map[string]string `json:"metadata" db:"metadata"`
	PaymentSessionID *string           `json:"payment_session_id,omitempty" db:"payment_session_id"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

// OrderFilter narrows admin order listings. Zero values are ignored.
type OrderFilter struct {
	RouteID *uuid.UUID
	Status  OrderStatus
	Source  OrderSource
	Limit   uint
}

// CheckoutRequest 線上結帳請求
type CheckoutRequest struct {
	RouteID  uuid.UUID `json:"route_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
	Name     string    `json:"name" binding:"required"`
	Email    string    `json:"email" binding:"required,email"`
	Phone    string    `json:"phone"`

	// set from the bearer token, never from the body
	AccountID *string `json:"-"`
}

type CheckoutResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	RedirectURL string    `json:"redirect_url"`
}

// OfflineOrderRequest 後台手動售票請求
type OfflineOrderRequest struct {
	RouteID  uuid.UUID `json:"route_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
	Name     string    `json:"name" binding:"required"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Amount   *int64    `json:"amount"`
	Note     string    `json:"note"`
}

// OrderDetail is an order with its tickets, as shown to admins and account owners.
type OrderDetail struct {
	*Order
	Tickets []*Ticket `json:"tickets"`
}

// FinalizeResult reports what a finalization did.
type FinalizeResult struct {
	Order       *Order `json:"order"`
	SeatNumbers []int  `json:"seat_numbers"`
	// AlreadyPaid is set when the order had been finalized before.
	AlreadyPaid bool `json:"already_paid"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusPaid      TicketStatus = "paid"
	TicketStatusCancelled TicketStatus = "cancelled"
)

func (s TicketStatus) IsValid() bool {
	return s == TicketStatusPaid || s == TicketStatusCancelled
}

func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	return s == TicketStatusPaid && target == TicketStatusCancelled
}

// Ticket 票券模型: one order bound to one seat number.
type Ticket struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	OrderID    uuid.UUID    `json:"order_id" db:"order_id"`
	RouteID    uuid.UUID    `json:"route_id" db:"route_id"`
	SeatNumber int          `json:"seat_number" db:"seat_number"`
	Status     TicketStatus `json:"status" db:"status"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`

	SeatLabel string `json:"seat_label,omitempty" db:"-"`
}

func (t *Ticket) IsPaid() bool {
	return t.Status == TicketStatusPaid
}

// NewTickets builds paid tickets for freshly picked seat numbers.
func NewTickets(order *Order, seatNumbers []int) []*Ticket {
	tickets := make([]*Ticket, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		tickets = append(tickets, &Ticket{
			ID:         uuid.New(),
			OrderID:    order.ID,
			RouteID:    order.RouteID,
			SeatNumber: n,
			Status:     TicketStatusPaid,
		})
	}
	return tickets
}

package model

import (
	"go-gin-bus-booking/internal/seating"

	"github.com/google/uuid"
)

// Seat is one row of route_seats. Its pool is inventory metadata, not a reservation.
type Seat struct {
	ID         int          `json:"id" db:"id"`
	RouteID    uuid.UUID    `json:"route_id" db:"route_id"`
	SeatNumber int          `json:"seat_number" db:"seat_number"`
	Pool       seating.Pool `json:"pool" db:"pool"`
}

// ToSeating converts stored seats for the allocation functions.
func ToSeating(seats []*Seat) []seating.Seat {
	out := make([]seating.Seat, 0, len(seats))
	for _, s := range seats {
		out = append(out, seating.Seat{Number: s.SeatNumber, Pool: s.Pool})
	}
	return out
}

// SeatView is one entry of the public seat map.
type SeatView struct {
	Number int          `json:"number"`
	Label  string       `json:"label"`
	Pool   seating.Pool `json:"pool"`
	Taken  bool         `json:"taken"`
}

type SeatMapResponse struct {
	RouteID      uuid.UUID             `json:"route_id"`
	Layout       *seating.Layout       `json:"layout,omitempty"`
	Seats        []SeatView            `json:"seats"`
	Availability *seating.Availability `json:"availability"`
}

type RouteAvailabilityResponse struct {
	RouteID uuid.UUID `json:"route_id"`
	seating.Availability
}

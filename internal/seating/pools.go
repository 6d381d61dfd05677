package seating

import (
	"fmt"

	apperrors "go-gin-bus-booking/pkg/app_errors"
)

// Pool is the sale channel a seat is held for.
type Pool string

const (
	PoolOnline  Pool = "online"
	PoolOffline Pool = "offline"
)

func (p Pool) IsValid() bool {
	switch p {
	case PoolOnline, PoolOffline:
		return true
	}
	return false
}

// Other returns the opposite pool.
func (p Pool) Other() Pool {
	if p == PoolOffline {
		return PoolOnline
	}
	return PoolOffline
}

// Seat is a seat number with its current pool tag.
type Seat struct {
	Number int
	Pool   Pool
}

// Boundary is the pool split of one route.
type Boundary struct {
	Total          int
	OfflineReserve int
}

func (b Boundary) Validate() error {
	_, err := OnlineCapacity(b.Total, b.OfflineReserve)
	return err
}

func (b Boundary) OnlineCapacity() int {
	return b.Total - b.OfflineReserve
}

// PoolOf reports which pool a seat number belongs to. The lowest numbers form the
// offline reserve.
func (b Boundary) PoolOf(seatNumber int) Pool {
	if seatNumber <= b.OfflineReserve {
		return PoolOffline
	}
	return PoolOnline
}

func (b Boundary) Contains(seatNumber int) bool {
	return seatNumber >= 1 && seatNumber <= b.Total
}

// OnlineCapacity validates a capacity/reserve pair and returns the number of seats on
// sale online. The online pool must never be empty.
func OnlineCapacity(total, reserve int) (int, error) {
	if total <= 0 {
		return 0, fmt.Errorf("%w: total capacity must be positive, got %d", apperrors.ErrInvalidCapacity, total)
	}
	if reserve < 0 {
		return 0, fmt.Errorf("%w: offline reserve must not be negative, got %d", apperrors.ErrInvalidCapacity, reserve)
	}
	if reserve >= total {
		return 0, fmt.Errorf("%w: offline reserve %d leaves no online seats out of %d", apperrors.ErrInvalidCapacity, reserve, total)
	}
	return total - reserve, nil
}

// Assignment is the pool partition of seat numbers 1..Total.
type Assignment struct {
	Boundary
	Offline []int
	Online  []int
}

// Seats returns every seat with its pool tag in seat-number order.
func (a Assignment) Seats() []Seat {
	seats := make([]Seat, 0, a.Total)
	for n := 1; n <= a.Total; n++ {
		seats = append(seats, Seat{Number: n, Pool: a.PoolOf(n)})
	}
	return seats
}

// AssignPools splits a new route's seats: 1..reserve offline, the rest online.
func AssignPools(total, reserve int) (Assignment, error) {
	if _, err := OnlineCapacity(total, reserve); err != nil {
		return Assignment{}, err
	}

	a := Assignment{
		Boundary: Boundary{Total: total, OfflineReserve: reserve},
		Offline:  make([]int, 0, reserve),
		Online:   make([]int, 0, total-reserve),
	}
	for n := 1; n <= total; n++ {
		if n <= reserve {
			a.Offline = append(a.Offline, n)
		} else {
			a.Online = append(a.Online, n)
		}
	}
	return a, nil
}

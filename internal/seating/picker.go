package seating

import (
	"math/rand/v2"
	"sort"

	apperrors "go-gin-bus-booking/pkg/app_errors"
)

// RandSource shuffles a slice in place, like rand.Shuffle.
type RandSource interface {
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// PickRequest asks for Quantity free seats, drawn from Prefer first and, when Fallback
// is set, topped up from the other pool.
type PickRequest struct {
	Seats    []Seat
	Ticketed []int
	Quantity int
	Prefer   Pool
	Fallback bool
}

// OfflineRequest is the pick used for manually recorded sales: reserve first, then web
// inventory.
func OfflineRequest(seats []Seat, ticketed []int, quantity int) PickRequest {
	return PickRequest{Seats: seats, Ticketed: ticketed, Quantity: quantity, Prefer: PoolOffline, Fallback: true}
}

// OnlineRequest is the pick used for web checkouts. The offline reserve is never touched.
func OnlineRequest(seats []Seat, ticketed []int, quantity int) PickRequest {
	return PickRequest{Seats: seats, Ticketed: ticketed, Quantity: quantity, Prefer: PoolOnline, Fallback: false}
}

type Picker struct {
	rnd RandSource
}

// NewPicker builds a picker; a nil source uses the process-wide generator.
func NewPicker(rnd RandSource) *Picker {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Picker{rnd: rnd}
}

// Pick selects seat numbers uniformly at random among the free seats of the preferred
// pool, then of the other pool if allowed. It returns either exactly Quantity seats or
// an *InsufficientSeatsError and no seats.
func (p *Picker) Pick(req PickRequest) ([]int, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}

	taken := toSet(req.Ticketed)
	free := map[Pool][]int{}
	seen := make(map[int]struct{}, len(req.Seats))
	for _, s := range req.Seats {
		if _, dup := seen[s.Number]; dup {
			continue
		}
		seen[s.Number] = struct{}{}
		if _, ok := taken[s.Number]; ok {
			continue
		}
		free[s.Pool] = append(free[s.Pool], s.Number)
	}

	picked := p.take(free[req.Prefer], req.Quantity)
	if len(picked) < req.Quantity && req.Fallback {
		picked = append(picked, p.take(free[req.Prefer.Other()], req.Quantity-len(picked))...)
	}

	if len(picked) < req.Quantity {
		return nil, &apperrors.InsufficientSeatsError{Requested: req.Quantity, Remaining: len(picked)}
	}
	return picked, nil
}

func (p *Picker) take(candidates []int, n int) []int {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	pool := append([]int(nil), candidates...)
	sort.Ints(pool)
	p.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

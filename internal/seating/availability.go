package seating

import apperrors "go-gin-bus-booking/pkg/app_errors"

// Availability is the sold/remaining breakdown of a route.
type Availability struct {
	TotalCapacity   int `json:"total_capacity"`
	OnlineCapacity  int `json:"online_capacity"`
	OnlineSold      int `json:"online_sold"`
	OnlineRemaining int `json:"online_remaining"`
	OnlineHeld      int `json:"online_held"`
	OfflineReserve  int `json:"offline_reserve"`
	OfflineAssigned int `json:"offline_assigned"`
}

// Calculate counts ticketed seats per pool. Duplicates and numbers outside the coach
// are ignored, so OnlineSold+OnlineRemaining always equals the online capacity.
func Calculate(b Boundary, ticketed []int) Availability {
	a := Availability{
		TotalCapacity:  b.Total,
		OnlineCapacity: b.OnlineCapacity(),
		OfflineReserve: b.OfflineReserve,
	}

	for n := range toSet(ticketed) {
		if !b.Contains(n) {
			continue
		}
		if b.PoolOf(n) == PoolOnline {
			a.OnlineSold++
		} else {
			a.OfflineAssigned++
		}
	}

	a.OnlineRemaining = a.OnlineCapacity - a.OnlineSold
	if a.OnlineRemaining < 0 {
		a.OnlineRemaining = 0
	}
	return a
}

// WithHeld moves seats promised to unpaid checkouts out of the online remaining count.
func (a Availability) WithHeld(held int) Availability {
	if held <= 0 {
		return a
	}
	if held > a.OnlineRemaining {
		held = a.OnlineRemaining
	}
	a.OnlineHeld = held
	a.OnlineRemaining -= held
	return a
}

// CanBookOnline rejects a web booking larger than what is left in the online pool.
func (a Availability) CanBookOnline(quantity int) error {
	if quantity <= 0 {
		return apperrors.ErrInvalidQuantity
	}
	if quantity > a.OnlineRemaining {
		return &apperrors.InsufficientSeatsError{Requested: quantity, Remaining: a.OnlineRemaining}
	}
	return nil
}

func toSet(numbers []int) map[int]struct{} {
	set := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		set[n] = struct{}{}
	}
	return set
}

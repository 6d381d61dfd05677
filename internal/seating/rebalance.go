package seating

import "sort"

// SeatChange is a pool flip for one unticketed seat.
type SeatChange struct {
	Number int
	From   Pool
	To     Pool
}

// Rebalance computes the pool flips needed after the offline reserve moves from
// oldReserve to newReserve. Ticketed seats keep whatever tag they have.
func Rebalance(oldReserve, newReserve int, seats []Seat, ticketed []int) []SeatChange {
	if oldReserve == newReserve {
		return nil
	}

	target := Boundary{OfflineReserve: newReserve}
	taken := toSet(ticketed)

	var changes []SeatChange
	for _, s := range seats {
		if _, ok := taken[s.Number]; ok {
			continue
		}
		want := target.PoolOf(s.Number)
		if s.Pool != want {
			changes = append(changes, SeatChange{Number: s.Number, From: s.Pool, To: want})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Number < changes[j].Number })
	return changes
}

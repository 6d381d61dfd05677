package seating

import "fmt"

// StandardCapacity is the seat count of the only coach layout we can draw.
const StandardCapacity = 51

const (
	standardRows = 12
	doorRow      = 6
	backRow      = standardRows + 1
)

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideBack  Side = "back"
)

// SeatPosition places one seat number in the coach.
type SeatPosition struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
	Row    int    `json:"row"`
	Side   Side   `json:"side"`
}

// Row lists the seats of one physical row, left to right. A row missing a pair keeps
// only the seats that exist.
type Row struct {
	Number int            `json:"number"`
	Seats  []SeatPosition `json:"seats"`
}

type Layout struct {
	Capacity int   `json:"capacity"`
	Rows     []Row `json:"rows"`
}

var standardLayout = buildStandardLayout()

// buildStandardLayout numbers the 51-seat coach row by row: twelve rows of 2+2 seats
// where the door row only has its left pair, then a five-seat back bench.
func buildStandardLayout() Layout {
	layout := Layout{Capacity: StandardCapacity}
	next := 1

	for r := 1; r <= standardRows; r++ {
		row := Row{Number: r}
		letters := []byte{'A', 'B', 'C', 'D'}
		if r == doorRow {
			letters = letters[:2]
		}
		for i, letter := range letters {
			side := SideLeft
			if i >= 2 {
				side = SideRight
			}
			row.Seats = append(row.Seats, SeatPosition{
				Number: next,
				Label:  fmt.Sprintf("%d%c", r, letter),
				Row:    r,
				Side:   side,
			})
			next++
		}
		layout.Rows = append(layout.Rows, row)
	}

	back := Row{Number: backRow}
	for _, letter := range []byte{'A', 'B', 'C', 'D', 'E'} {
		back.Seats = append(back.Seats, SeatPosition{
			Number: next,
			Label:  fmt.Sprintf("%d%c", backRow, letter),
			Row:    backRow,
			Side:   SideBack,
		})
		next++
	}
	layout.Rows = append(layout.Rows, back)

	return layout
}

// LayoutFor returns the physical layout for the standard coach. Any other capacity
// has no drawable layout.
func LayoutFor(totalCapacity int) (*Layout, bool) {
	if totalCapacity != StandardCapacity {
		return nil, false
	}
	layout := standardLayout
	rows := make([]Row, len(layout.Rows))
	for i, row := range layout.Rows {
		rows[i] = Row{Number: row.Number, Seats: append([]SeatPosition(nil), row.Seats...)}
	}
	layout.Rows = rows
	return &layout, true
}

// LabelFor returns the printed label of a seat, falling back to "Seat N" when the coach
// is irregular or the number is outside it.
func LabelFor(seatNumber, totalCapacity int) string {
	if totalCapacity == StandardCapacity && seatNumber >= 1 && seatNumber <= StandardCapacity {
		if pos, ok := positionOf(seatNumber); ok {
			return pos.Label
		}
	}
	return fmt.Sprintf("Seat %d", seatNumber)
}

func positionOf(seatNumber int) (SeatPosition, bool) {
	for _, row := range standardLayout.Rows {
		for _, seat := range row.Seats {
			if seat.Number == seatNumber {
				return seat, true
			}
		}
	}
	return SeatPosition{}, false
}

package ticketpdf

import (
	"bytes"
	"fmt"
	"strings"

	"go-gin-bus-booking/internal/model"
	"go-gin-bus-booking/internal/seating"

	"github.com/phpdave11/gofpdf"
)

const dateLayout = "2006-01-02 15:04 MST"

// Render builds one A4 page per paid ticket of the order.
func Render(route *model.Route, order *model.Order, tickets []*model.Ticket) ([]byte, error) {
	paid := make([]*model.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.IsPaid() {
			paid = append(paid, t)
		}
	}
	if len(paid) == 0 {
		return nil, fmt.Errorf("order %s has no paid tickets", order.ID)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)

	passenger := safe(order.Metadata[model.MetaCustomerName], "-")
	for _, t := range paid {
		label := t.SeatLabel
		if label == "" {
			label = seating.LabelFor(t.SeatNumber, route.TotalCapacity)
		}

		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 18)
		pdf.Cell(0, 10, "E-TICKET")
		pdf.Ln(12)

		pdf.SetFont("Helvetica", "", 12)
		lines := []string{
			"Ticket     : " + t.ID.String(),
			"Order      : " + order.ID.String(),
			"Passenger  : " + passenger,
			"Route      : " + route.Origin + " - " + route.Destination,
			"Departure  : " + route.DepartureAt.Format(dateLayout),
			"Seat       : " + label,
			"Fare       : " + formatAmount(route.Price, route.Currency),
		}
		for _, s := range lines {
			pdf.Cell(0, 7, s)
			pdf.Ln(7)
		}

		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "Valid for one passenger on the seat shown. Please present it at boarding.", "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render tickets: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the download name of an order's ticket sheet.
func Filename(order *model.Order) string {
	return fmt.Sprintf("tickets-%s.pdf", order.ID.String()[:8])
}

func safe(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// amounts are stored in minor units
func formatAmount(v int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", v/100, v%100, strings.ToUpper(currency))
}

package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind is the normalised outcome of a payment provider event.
type EventKind string

const (
	EventCompleted EventKind = "completed"
	EventExpired   EventKind = "expired"
	EventFailed    EventKind = "failed"
	EventIgnored   EventKind = "ignored"
)

// Event is a verified webhook notification about a checkout session.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	// OrderID is the order reference sent along when the session was created.
	OrderID string    `json:"order_id,omitempty"`
	Created time.Time `json:"created"`
}

type CheckoutInput struct {
	OrderID       uuid.UUID
	Description   string
	UnitAmount    int64
	Quantity      int
	Currency      string
	CustomerEmail string
	ExpiresAt     time.Time
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway is the hosted-checkout payment processor.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
	// SessionPaid asks the processor whether a checkout session has been paid.
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signatureHeader string) (*Event, error)
}

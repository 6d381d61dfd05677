package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrSeatNotFound     = errors.New("seat not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrCustomerNotFound = errors.New("customer not found")

	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCapacity     = errors.New("invalid capacity configuration")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInsufficientSeats   = errors.New("insufficient seats")
	ErrRouteNotBookable    = errors.New("route is not open for booking")
	ErrInvalidRouteStatus  = errors.New("invalid route status")
	ErrInvalidOrderStatus  = errors.New("invalid order status")
	ErrInvalidTicketStatus = errors.New("invalid ticket status")
	ErrCapacityInUse       = errors.New("capacity change would drop ticketed seats")
	ErrPaymentNotCompleted = errors.New("payment not completed")

	ErrHomepagePositionTaken = errors.New("homepage position already taken")
	ErrCustomerEmailTaken    = errors.New("customer email already exists")
	ErrSeatAlreadyTicketed   = errors.New("seat already ticketed")

	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrUnsupportedMedia    = errors.New("unsupported media type")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInternalServerError = errors.New("internal server error")
)

// InsufficientSeatsError reports how many seats were still free when a request was rejected.
type InsufficientSeatsError struct {
	Requested int
	Remaining int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("insufficient seats: requested %d, remaining %d", e.Requested, e.Remaining)
}

func (e *InsufficientSeatsError) Unwrap() error {
	return ErrInsufficientSeats
}

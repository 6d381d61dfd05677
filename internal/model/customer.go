package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a contact profile, optionally linked to a signed-in account.
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	AccountID *string   `json:"account_id,omitempty" db:"account_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type LinkCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

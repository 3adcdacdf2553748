package models

import (
	"strings"
	"time"
)

// Account kinds
const (
	AccountKindCash          = "cash"
	AccountKindBank          = "bank"
	AccountKindCreditCard    = "credit_card"
	AccountKindDigitalWallet = "digital_wallet"
)

// Account represents a named store of monetary value. Its balance is only
// moved by transfers; income/expense transactions never touch it.
type Account struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Balance   float64   `json:"balance" db:"balance"`
	Kind      string    `json:"type" db:"kind"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// AccountRequest is the create/update payload for an account.
type AccountRequest struct {
	Name    string   `json:"name" validate:"required"`
	Balance *float64 `json:"balance"`
	Kind    string   `json:"type" validate:"omitempty,oneof=cash bank credit_card digital_wallet"`
}

// Normalize trims the name and applies the default kind.
func (r *AccountRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.Kind == "" {
		r.Kind = AccountKindCash
	}
}

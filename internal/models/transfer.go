package models

import (
	"time"
)

// Transfer moves value between two distinct accounts. It is immutable once
// committed; correcting a mistake means issuing an opposite transfer.
type Transfer struct {
	ID              string    `json:"id" db:"id"`
	FromAccount     string    `json:"fromAccount" db:"from_account"`
	ToAccount       string    `json:"toAccount" db:"to_account"`
	FromAccountName *string   `json:"fromAccountName,omitempty"`
	ToAccountName   *string   `json:"toAccountName,omitempty"`
	Amount          float64   `json:"amount" db:"amount"`
	Description     string    `json:"description,omitempty" db:"description"`
	Date            time.Time `json:"date" db:"date"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// TransferRequest is the payload for creating a transfer.
type TransferRequest struct {
	FromAccount string     `json:"fromAccount" validate:"required,uuid"`
	ToAccount   string     `json:"toAccount" validate:"required,uuid"`
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	Description string     `json:"description" validate:"max=200"`
	Date        *time.Time `json:"date"`
}

package models

import (
	"time"
)

// Transaction kinds
const (
	TransactionKindIncome  = "income"
	TransactionKindExpense = "expense"
)

// Divisions
const (
	DivisionOffice   = "office"
	DivisionPersonal = "personal"
)

// Categories is the closed set of transaction categories.
var Categories = []string{
	"fuel", "movie", "food", "loan", "medical",
	"salary", "business", "investment", "gift", "other",
}

// Transaction is a recorded income or expense event. It may reference an
// account but never affects its balance. CreatedAt is set once and anchors
// the 12-hour edit window.
type Transaction struct {
	ID          string    `json:"id" db:"id"`
	Kind        string    `json:"type" db:"kind"`
	Amount      float64   `json:"amount" db:"amount"`
	Category    string    `json:"category" db:"category"`
	Division    string    `json:"division" db:"division"`
	Description string    `json:"description" db:"description"`
	Date        time.Time `json:"date" db:"date"`
	AccountID   *string   `json:"accountId" db:"account_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	CanEdit     bool      `json:"canEdit"`
}

// TransactionRequest is the create/update payload for a transaction.
type TransactionRequest struct {
	Kind        string     `json:"type" validate:"required,oneof=income expense"`
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	Category    string     `json:"category" validate:"required,oneof=fuel movie food loan medical salary business investment gift other"`
	Division    string     `json:"division" validate:"required,oneof=office personal"`
	Description string     `json:"description" validate:"required,max=200"`
	Date        *time.Time `json:"date"`
	AccountID   *string    `json:"accountId" validate:"omitempty,uuid"`
}

// TransactionFilter narrows listing and summary queries. Zero values mean
// "no constraint"; the date range is inclusive on both ends.
type TransactionFilter struct {
	Kind      string
	Division  string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
}

// PeriodSummary aggregates transactions over a weekly, monthly or yearly
// window. Balance is income minus expense; absent groups report zero.
type PeriodSummary struct {
	Period       string    `json:"period"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Income       float64   `json:"income"`
	Expense      float64   `json:"expense"`
	IncomeCount  int       `json:"incomeCount"`
	ExpenseCount int       `json:"expenseCount"`
	Balance      float64   `json:"balance"`
}

// CategorySummaryRow is one (category, division, kind) aggregation group.
type CategorySummaryRow struct {
	Category string  `json:"category"`
	Division string  `json:"division"`
	Kind     string  `json:"type"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// Pagination echoes the list query's paging back to the caller.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

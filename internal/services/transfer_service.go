package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/finledger/backend/internal/models"
	"github.com/google/uuid"
)

// TransferService applies transfers to account balances. A transfer debits
// one account, credits another and records the transfer row in a single
// database transaction, so the sum of all balances never changes.
type TransferService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewTransferService(db *sql.DB) *TransferService {
	return &TransferService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// Apply commits a transfer between two accounts. All three mutations (debit,
// credit, transfer row) succeed together or not at all.
func (ts *TransferService) Apply(req *models.TransferRequest) (*models.Transfer, error) {
	if req.FromAccount == req.ToAccount {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidOperation)
	}

	tx, err := ts.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer tx.Rollback()

	// Lock accounts in consistent order to prevent deadlocks
	firstLock, secondLock := req.FromAccount, req.ToAccount
	if req.FromAccount > req.ToAccount {
		firstLock, secondLock = req.ToAccount, req.FromAccount
	}

	fromAccount, err := ts.lockAccount(tx, firstLock)
	if err != nil {
		return nil, err
	}

	toAccount, err := ts.lockAccount(tx, secondLock)
	if err != nil {
		return nil, err
	}

	// Determine which locked account is sender/receiver
	if firstLock != req.FromAccount {
		fromAccount, toAccount = toAccount, fromAccount
	}

	if fromAccount.Balance < req.Amount {
		return nil, fmt.Errorf("%w: account %s", ErrInsufficientFunds, fromAccount.ID)
	}

	// Conditional debit: the guard re-checks the balance at write time so a
	// concurrent debit can never drive the balance negative.
	result, err := tx.Exec(`
        UPDATE accounts
        SET balance = balance - $1, updated_at = NOW()
        WHERE id = $2 AND balance >= $1
    `, req.Amount, fromAccount.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: account %s", ErrInsufficientFunds, fromAccount.ID)
	}

	_, err = tx.Exec(`
        UPDATE accounts
        SET balance = balance + $1, updated_at = NOW()
        WHERE id = $2
    `, req.Amount, toAccount.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	transfer := &models.Transfer{
		ID:          uuid.NewString(),
		FromAccount: fromAccount.ID,
		ToAccount:   toAccount.ID,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        time.Now(),
		CreatedAt:   time.Now(),
	}
	if req.Date != nil {
		transfer.Date = *req.Date
	}

	_, err = tx.Exec(`
        INSERT INTO transfers (id, from_account, to_account, amount, description, date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, transfer.ID, transfer.FromAccount, transfer.ToAccount, transfer.Amount,
		transfer.Description, transfer.Date, transfer.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return transfer, nil
}

func (ts *TransferService) lockAccount(tx *sql.Tx, accountID string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
        SELECT id, balance
        FROM accounts
        WHERE id = $1
        FOR UPDATE
    `, accountID).Scan(&account.ID, &account.Balance)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: account %s", ErrNotFound, accountID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &account, nil
}

// CreateTransfer handles transfer creation
// @Summary Create transfer
// @Description Move an amount between two distinct accounts atomically
// @Tags transfers
// @Accept json
// @Produce json
// @Param transfer body models.TransferRequest true "Transfer data"
// @Success 201 {object} object{success=bool,data=models.Transfer}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /transfers [post]
func (ts *TransferService) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	transfer, err := ts.Apply(&req)
	if err != nil {
		log.Printf("[TRANSFER] Failed: from=%s to=%s amount=%.2f: %v",
			req.FromAccount, req.ToAccount, req.Amount, err)
		SendErrorResponse(w, transferFailureMessage(err), StatusForError(err), nil)
		return
	}

	log.Printf("[TRANSFER] Completed %s: from=%s to=%s amount=%.2f",
		transfer.ID, transfer.FromAccount, transfer.ToAccount, transfer.Amount)
	SendSuccessResponse(w, http.StatusCreated, transfer)
}

func transferFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Account not found"
	case errors.Is(err, ErrInvalidOperation):
		return "Cannot transfer to the same account"
	case errors.Is(err, ErrInsufficientFunds):
		return "Insufficient balance"
	default:
		return "Failed to process transfer"
	}
}

// ListTransfers returns all transfers
// @Summary List transfers
// @Description Get all transfers, most recent first, with account names
// @Tags transfers
// @Produce json
// @Success 200 {object} object{success=bool,data=[]models.Transfer}
// @Failure 500 {object} ErrorResponse
// @Router /transfers [get]
func (ts *TransferService) ListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := ts.fetchTransfers()
	if err != nil {
		log.Printf("[TRANSFER] Failed to fetch transfers: %v", err)
		SendErrorResponse(w, "Failed to fetch transfers", http.StatusInternalServerError, nil)
		return
	}

	SendSuccessResponse(w, http.StatusOK, transfers)
}

func (ts *TransferService) fetchTransfers() ([]models.Transfer, error) {
	// LEFT JOIN: account names go NULL when the account has been deleted,
	// the transfer rows themselves are kept.
	rows, err := ts.db.Query(`
        SELECT t.id, t.from_account, t.to_account, fa.name, ta.name,
               t.amount, t.description, t.date, t.created_at
        FROM transfers t
        LEFT JOIN accounts fa ON t.from_account = fa.id
        LEFT JOIN accounts ta ON t.to_account = ta.id
        ORDER BY t.date DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transfers := []models.Transfer{}
	for rows.Next() {
		var transfer models.Transfer
		err := rows.Scan(
			&transfer.ID, &transfer.FromAccount, &transfer.ToAccount,
			&transfer.FromAccountName, &transfer.ToAccountName,
			&transfer.Amount, &transfer.Description, &transfer.Date, &transfer.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}

	return transfers, rows.Err()
}

package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/finledger/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AccountService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// ListAccounts returns all accounts
// @Summary List accounts
// @Description Get all accounts, most recently created first
// @Tags accounts
// @Produce json
// @Success 200 {object} object{success=bool,data=[]models.Account}
// @Failure 500 {object} ErrorResponse
// @Router /accounts [get]
func (as *AccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := as.fetchAccounts()
	if err != nil {
		log.Printf("[ACCOUNT] Failed to fetch accounts: %v", err)
		SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
		return
	}

	SendSuccessResponse(w, http.StatusOK, accounts)
}

// GetAccount returns a single account
// @Summary Get account by ID
// @Description Retrieve an account by its ID
// @Tags accounts
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} object{success=bool,data=models.Account}
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountId} [get]
func (as *AccountService) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	account, err := as.fetchAccount(accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[ACCOUNT] Failed to fetch account %s: %v", accountID, err)
			SendErrorResponse(w, "Failed to fetch account", http.StatusInternalServerError, nil)
		}
		return
	}

	SendSuccessResponse(w, http.StatusOK, account)
}

// CreateAccount creates a new account
// @Summary Create account
// @Description Create a new monetary account
// @Tags accounts
// @Accept json
// @Produce json
// @Param account body models.AccountRequest true "Account data"
// @Success 201 {object} object{success=bool,data=models.Account}
// @Failure 400 {object} ErrorResponse
// @Router /accounts [post]
func (as *AccountService) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.AccountRequest

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

	req.Normalize()
	if err := as.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account := &models.Account{
		ID:   uuid.NewString(),
		Name: req.Name,
		Kind: req.Kind,
	}
	if req.Balance != nil {
		account.Balance = *req.Balance
	}

	if err := as.insertAccount(account); err != nil {
		log.Printf("[ACCOUNT] Failed to create account: %v", err)
		SendErrorResponse(w, "Failed to create account", http.StatusInternalServerError, nil)
		return
	}

	SendSuccessResponse(w, http.StatusCreated, account)
}

// UpdateAccount updates an existing account
// @Summary Update account
// @Description Update an account's name, kind or balance
// @Tags accounts
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param account body models.AccountRequest true "Account data"
// @Success 200 {object} object{success=bool,data=models.Account}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountId} [put]
func (as *AccountService) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	var req models.AccountRequest

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

	// Unlike create, no kind default here: an omitted type must not touch
	// the stored kind.
	req.Name = strings.TrimSpace(req.Name)
	if err := as.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := as.fetchAccount(accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[ACCOUNT] Failed to fetch account %s: %v", accountID, err)
			SendErrorResponse(w, "Failed to fetch account", http.StatusInternalServerError, nil)
		}
		return
	}

	account.Name = req.Name
	if req.Kind != "" {
		account.Kind = req.Kind
	}
	if req.Balance != nil {
		account.Balance = *req.Balance
	}
	account.UpdatedAt = time.Now()

	if err := as.updateAccount(account); err != nil {
		log.Printf("[ACCOUNT] Failed to update account %s: %v", accountID, err)
		SendErrorResponse(w, "Failed to update account", http.StatusInternalServerError, nil)
		return
	}

	SendSuccessResponse(w, http.StatusOK, account)
}

// DeleteAccount deletes an account
// @Summary Delete account
// @Description Delete an account. Historical transactions and transfers keep
// @Description their references to the deleted account.
// @Tags accounts
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} object{success=bool,data=string}
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountId} [delete]
func (as *AccountService) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	result, err := as.db.Exec(`DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		log.Printf("[ACCOUNT] Failed to delete account %s: %v", accountID, err)
		SendErrorResponse(w, "Failed to delete account", http.StatusInternalServerError, nil)
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[ACCOUNT] Deleted account %s", accountID)
	SendSuccessResponse(w, http.StatusOK, "Account deleted successfully")
}

// Database helper functions

func (as *AccountService) fetchAccounts() ([]models.Account, error) {
	rows, err := as.db.Query(`
        SELECT id, name, balance, kind, created_at, updated_at
        FROM accounts
        ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.ID, &account.Name, &account.Balance, &account.Kind,
			&account.CreatedAt, &account.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func (as *AccountService) fetchAccount(accountID string) (*models.Account, error) {
	account := &models.Account{}
	err := as.db.QueryRow(`
        SELECT id, name, balance, kind, created_at, updated_at
        FROM accounts
        WHERE id = $1
    `, accountID).Scan(
		&account.ID, &account.Name, &account.Balance, &account.Kind,
		&account.CreatedAt, &account.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}
	return account, nil
}

func (as *AccountService) insertAccount(account *models.Account) error {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := as.db.Exec(`
        INSERT INTO accounts (id, name, balance, kind, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, account.ID, account.Name, account.Balance, account.Kind,
		account.CreatedAt, account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (as *AccountService) updateAccount(account *models.Account) error {
	_, err := as.db.Exec(`
        UPDATE accounts
        SET name = $1, balance = $2, kind = $3, updated_at = $4
        WHERE id = $5
    `, account.Name, account.Balance, account.Kind, account.UpdatedAt, account.ID)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

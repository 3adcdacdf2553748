package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/finledger/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// TransactionService records income and expense events. Transactions never
// touch account balances; the only temporal rule is the 12-hour edit window
// anchored at createdAt.
type TransactionService struct {
	db        *sql.DB
	cache     *SummaryCache
	validator *ValidationHelper
}

func NewTransactionService(db *sql.DB, rdb *redis.Client) *TransactionService {
	return &TransactionService{
		db:        db,
		cache:     NewSummaryCache(rdb),
		validator: NewValidationHelper(),
	}
}

// ListTransactions retrieves transactions with optional filters
// @Summary List transactions
// @Description Get transactions filtered by type, division, category and date range
// @Tags transactions
// @Produce json
// @Param type query string false "Filter by type (income|expense)"
// @Param division query string false "Filter by division (office|personal)"
// @Param category query string false "Filter by category"
// @Param startDate query string false "Inclusive range start (RFC3339 or YYYY-MM-DD)"
// @Param endDate query string false "Inclusive range end"
// @Param page query int false "1-indexed page number (default 1)"
// @Param limit query int false "Page size (default 50, max 100)"
// @Success 200 {object} object{success=bool,data=[]models.Transaction,pagination=models.Pagination}
// @Failure 400 {object} ErrorResponse
// @Router /transactions [get]
func (ts *TransactionService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	limit := defaultPageSize
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	transactions, total, err := ts.fetchTransactions(filter, page, limit)
	if err != nil {
		log.Printf("[TRANSACTION] Failed to fetch transactions: %v", err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	pages := (total + limit - 1) / limit

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    transactions,
		"pagination": models.Pagination{
			Total: total,
			Page:  page,
			Pages: pages,
		},
	})
}

// GetTransaction retrieves a single transaction
// @Summary Get transaction by ID
// @Description Retrieve a transaction; canEdit reflects the 12-hour window
// @Tags transactions
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} object{success=bool,data=models.Transaction}
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [get]
func (ts *TransactionService) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	transaction, err := ts.fetchTransaction(transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[TRANSACTION] Failed to fetch transaction %s: %v", transactionID, err)
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	transaction.CanEdit = CanEdit(transaction.CreatedAt, time.Now())
	SendSuccessResponse(w, http.StatusOK, transaction)
}

// CreateTransaction records a new income or expense
// @Summary Create transaction
// @Description Record an income or expense event
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body models.TransactionRequest true "Transaction data"
// @Success 201 {object} object{success=bool,data=models.Transaction}
// @Failure 400 {object} ErrorResponse
// @Router /transactions [post]
func (ts *TransactionService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest

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

	req.Description = strings.TrimSpace(req.Description)
	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	now := time.Now()
	transaction := &models.Transaction{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		Amount:      req.Amount,
		Category:    req.Category,
		Division:    req.Division,
		Description: req.Description,
		Date:        now,
		AccountID:   req.AccountID,
		CreatedAt:   now,
		UpdatedAt:   now,
		CanEdit:     true,
	}
	if req.Date != nil {
		transaction.Date = *req.Date
	}

	if err := ts.insertTransaction(transaction); err != nil {
		log.Printf("[TRANSACTION] Failed to create transaction: %v", err)
		SendErrorResponse(w, "Failed to create transaction", http.StatusInternalServerError, nil)
		return
	}

	ts.cache.Bump(r.Context())
	SendSuccessResponse(w, http.StatusCreated, transaction)
}

// UpdateTransaction mutates a transaction within its edit window
// @Summary Update transaction
// @Description Update a transaction. Rejected once 12 hours have passed since creation.
// @Tags transactions
// @Accept json
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Param transaction body models.TransactionRequest true "Transaction data"
// @Success 200 {object} object{success=bool,data=models.Transaction}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [put]
func (ts *TransactionService) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	var req models.TransactionRequest

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

	req.Description = strings.TrimSpace(req.Description)
	if err := ts.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	transaction, err := ts.fetchTransaction(transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[TRANSACTION] Failed to fetch transaction %s: %v", transactionID, err)
			SendErrorResponse(w, "Failed to fetch transaction", http.StatusInternalServerError, nil)
		}
		return
	}

	// The window is evaluated now, at the moment of the request; a transaction
	// that was editable when the form was opened may no longer be.
	if !CanEdit(transaction.CreatedAt, time.Now()) {
		SendErrorResponse(w, "Cannot edit transaction after 12 hours", StatusForError(ErrEditWindowExpired), nil)
		return
	}

	transaction.Kind = req.Kind
	transaction.Amount = req.Amount
	transaction.Category = req.Category
	transaction.Division = req.Division
	transaction.Description = req.Description
	if req.Date != nil {
		transaction.Date = *req.Date
	}
	if req.AccountID != nil {
		transaction.AccountID = req.AccountID
	}
	transaction.UpdatedAt = time.Now()

	if err := ts.updateTransaction(transaction); err != nil {
		log.Printf("[TRANSACTION] Failed to update transaction %s: %v", transactionID, err)
		SendErrorResponse(w, "Failed to update transaction", http.StatusInternalServerError, nil)
		return
	}

	ts.cache.Bump(r.Context())
	transaction.CanEdit = true
	SendSuccessResponse(w, http.StatusOK, transaction)
}

// DeleteTransaction removes a transaction
// @Summary Delete transaction
// @Description Delete a transaction. Unlike editing, deletion is allowed at any age.
// @Tags transactions
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} object{success=bool,data=string}
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [delete]
func (ts *TransactionService) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")

	result, err := ts.db.Exec(`DELETE FROM transactions WHERE id = $1`, transactionID)
	if err != nil {
		log.Printf("[TRANSACTION] Failed to delete transaction %s: %v", transactionID, err)
		SendErrorResponse(w, "Failed to delete transaction", http.StatusInternalServerError, nil)
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}

	ts.cache.Bump(r.Context())
	SendSuccessResponse(w, http.StatusOK, "Transaction deleted successfully")
}

// Filter helpers, shared with the summary service.

func parseTransactionFilter(q url.Values) (models.TransactionFilter, error) {
	filter := models.TransactionFilter{
		Kind:     q.Get("type"),
		Division: q.Get("division"),
		Category: q.Get("category"),
	}

	if startStr := q.Get("startDate"); startStr != "" {
		start, err := parseDateParam(startStr)
		if err != nil {
			return filter, fmt.Errorf("invalid startDate format")
		}
		filter.StartDate = &start
	}

	if endStr := q.Get("endDate"); endStr != "" {
		end, err := parseDateParam(endStr)
		if err != nil {
			return filter, fmt.Errorf("invalid endDate format")
		}
		filter.EndDate = &end
	}

	return filter, nil
}

func parseDateParam(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// transactionWhereClause builds the WHERE clause for a filter. The date
// range is inclusive on both ends.
func transactionWhereClause(filter models.TransactionFilter) (string, []any) {
	var conditions []string
	var args []any
	argIndex := 1

	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIndex))
		args = append(args, filter.Kind)
		argIndex++
	}

	if filter.Division != "" {
		conditions = append(conditions, fmt.Sprintf("division = $%d", argIndex))
		args = append(args, filter.Division)
		argIndex++
	}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}

	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}

	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Database helper functions

func (ts *TransactionService) fetchTransaction(transactionID string) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	err := ts.db.QueryRow(`
        SELECT id, kind, amount, category, division, description, date, account_id, created_at, updated_at
        FROM transactions
        WHERE id = $1
    `, transactionID).Scan(
		&transaction.ID, &transaction.Kind, &transaction.Amount, &transaction.Category,
		&transaction.Division, &transaction.Description, &transaction.Date,
		&transaction.AccountID, &transaction.CreatedAt, &transaction.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (ts *TransactionService) fetchTransactions(filter models.TransactionFilter, page, limit int) ([]models.Transaction, int, error) {
	where, args := transactionWhereClause(filter)

	var total int
	if err := ts.db.QueryRow(`SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Most recent first; id breaks date ties so pagination stays stable.
	query := `
        SELECT id, kind, amount, category, division, description, date, account_id, created_at, updated_at
        FROM transactions
    ` + where + fmt.Sprintf(" ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := ts.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	now := time.Now()
	transactions := []models.Transaction{}
	for rows.Next() {
		var transaction models.Transaction
		err := rows.Scan(
			&transaction.ID, &transaction.Kind, &transaction.Amount, &transaction.Category,
			&transaction.Division, &transaction.Description, &transaction.Date,
			&transaction.AccountID, &transaction.CreatedAt, &transaction.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		transaction.CanEdit = CanEdit(transaction.CreatedAt, now)
		transactions = append(transactions, transaction)
	}

	return transactions, total, rows.Err()
}

func (ts *TransactionService) insertTransaction(transaction *models.Transaction) error {
	_, err := ts.db.Exec(`
        INSERT INTO transactions (id, kind, amount, category, division, description, date, account_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, transaction.ID, transaction.Kind, transaction.Amount, transaction.Category,
		transaction.Division, transaction.Description, transaction.Date,
		transaction.AccountID, transaction.CreatedAt, transaction.UpdatedAt)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (ts *TransactionService) updateTransaction(transaction *models.Transaction) error {
	// created_at is deliberately absent: it anchors the edit window and
	// never changes after creation.
	_, err := ts.db.Exec(`
        UPDATE transactions
        SET kind = $1, amount = $2, category = $3, division = $4, description = $5,
            date = $6, account_id = $7, updated_at = $8
        WHERE id = $9
    `, transaction.Kind, transaction.Amount, transaction.Category, transaction.Division,
		transaction.Description, transaction.Date, transaction.AccountID,
		transaction.UpdatedAt, transaction.ID)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

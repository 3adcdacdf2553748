package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

var transactionColumns = []string{
	"id", "kind", "amount", "category", "division", "description",
	"date", "account_id", "created_at", "updated_at",
}

func newTransactionRouter(service *TransactionService) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/transactions", service.ListTransactions)
	r.Post("/transactions", service.CreateTransaction)
	r.Get("/transactions/{transactionId}", service.GetTransaction)
	r.Put("/transactions/{transactionId}", service.UpdateTransaction)
	r.Delete("/transactions/{transactionId}", service.DeleteTransaction)
	return r
}

func TestTransactionService_CreateTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, nil)
	router := newTransactionRouter(service)

	t.Run("successful creation", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), "expense", 45.5, "fuel", "personal", "Petrol top-up",
				sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		body := `{"type":"expense","amount":45.5,"category":"fuel","division":"personal","description":"Petrol top-up"}`
		req := httptest.NewRequest("POST", "/transactions", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			Success bool           `json:"success"`
			Data    map[string]any `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, true, resp.Data["canEdit"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation failure lists every violated field", func(t *testing.T) {
		body := `{"amount":-1,"category":"groceries","division":"home","description":""}`
		req := httptest.NewRequest("POST", "/transactions", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Contains(t, resp.Details, "Kind")
		assert.Contains(t, resp.Details, "Amount")
		assert.Contains(t, resp.Details, "Category")
		assert.Contains(t, resp.Details, "Division")
		assert.Contains(t, resp.Details, "Description")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		body := `{"type":"expense","amount":10,"category":"food","division":"personal","description":"Lunch","bogus":1}`
		req := httptest.NewRequest("POST", "/transactions", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransactionService_UpdateTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, nil)
	router := newTransactionRouter(service)

	txID := "33333333-3333-3333-3333-333333333333"
	validBody := `{"type":"expense","amount":20,"category":"food","division":"office","description":"Team lunch"}`

	t.Run("editable within the window", func(t *testing.T) {
		createdAt := time.Now().Add(-11 * time.Hour)

		mock.ExpectQuery("SELECT id, kind, amount, category, division, description, date, account_id, created_at, updated_at").
			WithArgs(txID).
			WillReturnRows(sqlmock.NewRows(transactionColumns).
				AddRow(txID, "expense", 15.0, "food", "office", "Lunch",
					createdAt, nil, createdAt, createdAt))

		mock.ExpectExec("UPDATE transactions").
			WithArgs("expense", 20.0, "food", "office", "Team lunch",
				sqlmock.AnyArg(), nil, sqlmock.AnyArg(), txID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := httptest.NewRequest("PUT", "/transactions/"+txID, bytes.NewBufferString(validBody))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected once the window has passed", func(t *testing.T) {
		createdAt := time.Now().Add(-12*time.Hour - time.Minute)

		mock.ExpectQuery("SELECT id, kind, amount, category, division, description, date, account_id, created_at, updated_at").
			WithArgs(txID).
			WillReturnRows(sqlmock.NewRows(transactionColumns).
				AddRow(txID, "expense", 15.0, "food", "office", "Lunch",
					createdAt, nil, createdAt, createdAt))

		req := httptest.NewRequest("PUT", "/transactions/"+txID, bytes.NewBufferString(validBody))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Cannot edit transaction after 12 hours", resp.Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown transaction", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, kind, amount, category, division, description, date, account_id, created_at, updated_at").
			WithArgs(txID).
			WillReturnRows(sqlmock.NewRows(transactionColumns))

		req := httptest.NewRequest("PUT", "/transactions/"+txID, bytes.NewBufferString(validBody))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTransactionService_DeleteTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, nil)
	router := newTransactionRouter(service)

	txID := "33333333-3333-3333-3333-333333333333"

	t.Run("deletion is allowed at any age", func(t *testing.T) {
		// No createdAt check: a transaction far past its edit window still
		// deletes cleanly.
		mock.ExpectExec("DELETE FROM transactions").
			WithArgs(txID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := httptest.NewRequest("DELETE", "/transactions/"+txID, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown transaction", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM transactions").
			WithArgs(txID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		req := httptest.NewRequest("DELETE", "/transactions/"+txID, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTransactionService_GetTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, nil)
	router := newTransactionRouter(service)

	txID := "33333333-3333-3333-3333-333333333333"

	t.Run("reports canEdit false past the window", func(t *testing.T) {
		createdAt := time.Now().Add(-24 * time.Hour)

		mock.ExpectQuery("SELECT id, kind, amount, category, division, description, date, account_id, created_at, updated_at").
			WithArgs(txID).
			WillReturnRows(sqlmock.NewRows(transactionColumns).
				AddRow(txID, "income", 1000.0, "salary", "office", "July salary",
					createdAt, nil, createdAt, createdAt))

		req := httptest.NewRequest("GET", "/transactions/"+txID, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data map[string]any `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, false, resp.Data["canEdit"])
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, kind, amount, category, division, description, date, account_id, created_at, updated_at").
			WithArgs(txID).
			WillReturnRows(sqlmock.NewRows(transactionColumns))

		req := httptest.NewRequest("GET", "/transactions/"+txID, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTransactionService_ListTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db, nil)
	router := newTransactionRouter(service)

	t.Run("filters and pagination", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions`).
			WithArgs("expense", "personal").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(120))

		mock.ExpectQuery("SELECT id, kind, amount, category, division, description, date, account_id, created_at, updated_at").
			WithArgs("expense", "personal", 50, 50).
			WillReturnRows(sqlmock.NewRows(transactionColumns).
				AddRow("id-1", "expense", 12.0, "food", "personal", "Coffee", now, nil, now, now).
				AddRow("id-2", "expense", 30.0, "fuel", "personal", "Petrol", now.Add(-time.Hour), nil, now, now))

		req := httptest.NewRequest("GET", "/transactions?type=expense&division=personal&page=2", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data       []map[string]any `json:"data"`
			Pagination struct {
				Total int `json:"total"`
				Page  int `json:"page"`
				Pages int `json:"pages"`
			} `json:"pagination"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Len(t, resp.Data, 2)
		assert.Equal(t, 120, resp.Pagination.Total)
		assert.Equal(t, 2, resp.Pagination.Page)
		assert.Equal(t, 3, resp.Pagination.Pages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad date filter", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/transactions?startDate=notadate", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

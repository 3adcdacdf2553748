package services

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestPeriodWindow(t *testing.T) {
	now := time.Date(2024, time.July, 10, 15, 30, 0, 0, time.UTC)

	t.Run("monthly leap February", func(t *testing.T) {
		start, end, err := periodWindow("monthly", 2024, 2, 0, now)
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC), end)
	})

	t.Run("monthly non-leap February", func(t *testing.T) {
		start, end, err := periodWindow("monthly", 2023, 2, 0, now)
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2023, time.February, 28, 23, 59, 59, 0, time.UTC), end)
	})

	t.Run("monthly defaults to current month", func(t *testing.T) {
		start, end, err := periodWindow("monthly", 0, 0, 0, now)
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2024, time.July, 31, 23, 59, 59, 0, time.UTC), end)
	})

	t.Run("yearly", func(t *testing.T) {
		start, end, err := periodWindow("yearly", 2023, 0, 0, now)
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC), end)
	})

	t.Run("weekly explicit first week", func(t *testing.T) {
		start, end, err := periodWindow("weekly", 2024, 0, 1, now)
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2024, time.January, 7, 23, 59, 59, 0, time.UTC), end)
	})

	t.Run("weekly late week runs past the year end", func(t *testing.T) {
		// Week 53 of 2024 starts Dec 30 and finishes in January 2025.
		start, end, err := periodWindow("weekly", 2024, 0, 53, now)
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, time.January, 5, 23, 59, 59, 0, time.UTC), end)
	})

	t.Run("weekly defaults to the Sunday week containing now", func(t *testing.T) {
		// July 10 2024 is a Wednesday; its week runs Sunday Jul 7 to
		// Saturday Jul 13.
		start, end, err := periodWindow("weekly", 0, 0, 0, now)
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.July, 7, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2024, time.July, 13, 23, 59, 59, 0, time.UTC), end)
	})

	t.Run("unknown period", func(t *testing.T) {
		_, _, err := periodWindow("daily", 2024, 0, 0, now)
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})
}

func newSummaryRouter(db *sql.DB) *chi.Mux {
	service := NewSummaryService(db, nil)
	r := chi.NewRouter()
	r.Get("/transactions/summary/period", service.PeriodSummary)
	r.Get("/transactions/summary/categories", service.CategorySummary)
	return r
}

func TestSummaryService_PeriodSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	router := newSummaryRouter(db)

	t.Run("totals and balance", func(t *testing.T) {
		mock.ExpectQuery("SELECT kind, COALESCE").
			WillReturnRows(sqlmock.NewRows([]string{"kind", "total", "count"}).
				AddRow("income", 5000.0, 2).
				AddRow("expense", 1200.0, 7))

		req := httptest.NewRequest("GET", "/transactions/summary/period?period=monthly&year=2024&month=3", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data struct {
				Income       float64 `json:"income"`
				Expense      float64 `json:"expense"`
				IncomeCount  int     `json:"incomeCount"`
				ExpenseCount int     `json:"expenseCount"`
				Balance      float64 `json:"balance"`
			} `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, 5000.0, resp.Data.Income)
		assert.Equal(t, 1200.0, resp.Data.Expense)
		assert.Equal(t, 2, resp.Data.IncomeCount)
		assert.Equal(t, 7, resp.Data.ExpenseCount)
		assert.Equal(t, 3800.0, resp.Data.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing kinds report zero", func(t *testing.T) {
		mock.ExpectQuery("SELECT kind, COALESCE").
			WillReturnRows(sqlmock.NewRows([]string{"kind", "total", "count"}).
				AddRow("income", 300.0, 1))

		req := httptest.NewRequest("GET", "/transactions/summary/period?period=yearly&year=2023", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data struct {
				Income       float64 `json:"income"`
				Expense      float64 `json:"expense"`
				ExpenseCount int     `json:"expenseCount"`
				Balance      float64 `json:"balance"`
			} `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, 300.0, resp.Data.Income)
		assert.Equal(t, 0.0, resp.Data.Expense)
		assert.Equal(t, 0, resp.Data.ExpenseCount)
		assert.Equal(t, 300.0, resp.Data.Balance)
	})

	t.Run("invalid period", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/transactions/summary/period?period=daily", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Period must be weekly, monthly or yearly", resp.Error)
	})
}

func TestSummaryService_CategorySummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	router := newSummaryRouter(db)

	t.Run("grouped totals", func(t *testing.T) {
		mock.ExpectQuery("SELECT category, division, kind, COALESCE").
			WithArgs("expense").
			WillReturnRows(sqlmock.NewRows([]string{"category", "division", "kind", "total", "count"}).
				AddRow("fuel", "office", "expense", 900.0, 3).
				AddRow("food", "personal", "expense", 450.0, 12))

		req := httptest.NewRequest("GET", "/transactions/summary/categories?type=expense", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []struct {
				Category string  `json:"category"`
				Division string  `json:"division"`
				Kind     string  `json:"type"`
				Total    float64 `json:"total"`
				Count    int     `json:"count"`
			} `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Len(t, resp.Data, 2)
		assert.Equal(t, "fuel", resp.Data[0].Category)
		assert.Equal(t, 900.0, resp.Data[0].Total)
		assert.Equal(t, "food", resp.Data[1].Category)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		mock.ExpectQuery("SELECT category, division, kind, COALESCE").
			WillReturnRows(sqlmock.NewRows([]string{"category", "division", "kind", "total", "count"}))

		req := httptest.NewRequest("GET", "/transactions/summary/categories", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []any `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.NotNil(t, resp.Data)
		assert.Len(t, resp.Data, 0)
	})
}

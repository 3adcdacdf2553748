package services

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/finledger/backend/internal/models"
	"github.com/go-redis/redis/v8"
)

// SummaryService answers the read-only aggregation queries: totals per
// period and per (category, division, kind) group. Results are cached in
// Redis when available; transaction writes invalidate the cache by bumping
// the generation counter.
type SummaryService struct {
	db    *sql.DB
	cache *SummaryCache
}

func NewSummaryService(db *sql.DB, rdb *redis.Client) *SummaryService {
	return &SummaryService{
		db:    db,
		cache: NewSummaryCache(rdb),
	}
}

// periodWindow computes the inclusive [start, end] range for a summary
// period. Explicit week numbers use the simple-offset convention: week w of
// year y is the 7-day block starting at Jan 1 + (w-1)*7 days, which may run
// past Dec 31 into the next year. Without an explicit week, the window is
// the Sunday-to-Saturday week containing now.
func periodWindow(period string, year, month, week int, now time.Time) (time.Time, time.Time, error) {
	loc := now.Location()
	if year == 0 {
		year = now.Year()
	}

	var start, end time.Time
	switch period {
	case "monthly":
		if month == 0 {
			month = int(now.Month())
		}
		start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0).Add(-time.Second)
	case "yearly":
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		end = time.Date(year, time.December, 31, 23, 59, 59, 0, loc)
	case "weekly":
		if week > 0 {
			// time.Date normalizes day overflow past the end of January.
			start = time.Date(year, time.January, (week-1)*7+1, 0, 0, 0, 0, loc)
		} else {
			sunday := now.AddDate(0, 0, -int(now.Weekday()))
			start = time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, loc)
		}
		end = start.AddDate(0, 0, 7).Add(-time.Second)
	default:
		return start, end, fmt.Errorf("%w: unknown period %q", ErrInvalidOperation, period)
	}

	return start, end, nil
}

// PeriodSummary returns aggregated totals for a time window
// @Summary Period summary
// @Description Income and expense totals for a weekly, monthly or yearly window
// @Tags summaries
// @Produce json
// @Param period query string false "weekly|monthly|yearly (default monthly)"
// @Param year query int false "Reference year (default current)"
// @Param month query int false "Reference month 1-12 (monthly only)"
// @Param week query int false "Week-of-year number (weekly only)"
// @Success 200 {object} object{success=bool,data=models.PeriodSummary}
// @Failure 400 {object} ErrorResponse
// @Router /transactions/summary/period [get]
func (ss *SummaryService) PeriodSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period := q.Get("period")
	if period == "" {
		period = "monthly"
	}

	year := parseIntParam(q.Get("year"))
	month := parseIntParam(q.Get("month"))
	week := parseIntParam(q.Get("week"))

	start, end, err := periodWindow(period, year, month, week, time.Now())
	if err != nil {
		SendErrorResponse(w, "Period must be weekly, monthly or yearly", http.StatusBadRequest, nil)
		return
	}

	cacheKey := fmt.Sprintf("period:%s:%d:%d", period, start.Unix(), end.Unix())
	var summary models.PeriodSummary
	if ss.cache.Get(r.Context(), cacheKey, &summary) {
		SendSuccessResponse(w, http.StatusOK, summary)
		return
	}

	summary, err = ss.fetchPeriodSummary(period, start, end)
	if err != nil {
		log.Printf("[SUMMARY] Failed to compute period summary: %v", err)
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	ss.cache.Set(r.Context(), cacheKey, summary)
	SendSuccessResponse(w, http.StatusOK, summary)
}

func (ss *SummaryService) fetchPeriodSummary(period string, start, end time.Time) (models.PeriodSummary, error) {
	summary := models.PeriodSummary{
		Period:    period,
		StartDate: start,
		EndDate:   end,
	}

	rows, err := ss.db.Query(`
        SELECT kind, COALESCE(SUM(amount), 0), COUNT(*)
        FROM transactions
        WHERE date >= $1 AND date <= $2
        GROUP BY kind
    `, start, end)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var total float64
		var count int
		if err := rows.Scan(&kind, &total, &count); err != nil {
			return summary, err
		}
		switch kind {
		case models.TransactionKindIncome:
			summary.Income = total
			summary.IncomeCount = count
		case models.TransactionKindExpense:
			summary.Expense = total
			summary.ExpenseCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	summary.Balance = summary.Income - summary.Expense
	return summary, nil
}

// CategorySummary returns totals grouped by category, division and kind
// @Summary Category summary
// @Description Totals per (category, division, type) group, largest first
// @Tags summaries
// @Produce json
// @Param type query string false "Filter by type (income|expense)"
// @Param division query string false "Filter by division (office|personal)"
// @Param startDate query string false "Inclusive range start"
// @Param endDate query string false "Inclusive range end"
// @Success 200 {object} object{success=bool,data=[]models.CategorySummaryRow}
// @Failure 400 {object} ErrorResponse
// @Router /transactions/summary/categories [get]
func (ss *SummaryService) CategorySummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	cacheKey := categoryCacheKey(filter)
	var summary []models.CategorySummaryRow
	if ss.cache.Get(r.Context(), cacheKey, &summary) {
		SendSuccessResponse(w, http.StatusOK, summary)
		return
	}

	summary, err = ss.fetchCategorySummary(filter)
	if err != nil {
		log.Printf("[SUMMARY] Failed to compute category summary: %v", err)
		SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	ss.cache.Set(r.Context(), cacheKey, summary)
	SendSuccessResponse(w, http.StatusOK, summary)
}

func categoryCacheKey(filter models.TransactionFilter) string {
	start, end := int64(0), int64(0)
	if filter.StartDate != nil {
		start = filter.StartDate.Unix()
	}
	if filter.EndDate != nil {
		end = filter.EndDate.Unix()
	}
	return fmt.Sprintf("categories:%s:%s:%s:%d:%d", filter.Kind, filter.Division, filter.Category, start, end)
}

func (ss *SummaryService) fetchCategorySummary(filter models.TransactionFilter) ([]models.CategorySummaryRow, error) {
	where, args := transactionWhereClause(filter)

	// Largest totals first; category name breaks ties so the order is stable.
	rows, err := ss.db.Query(`
        SELECT category, division, kind, COALESCE(SUM(amount), 0) AS total, COUNT(*)
        FROM transactions
    `+where+`
        GROUP BY category, division, kind
        ORDER BY total DESC, category ASC
    `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := []models.CategorySummaryRow{}
	for rows.Next() {
		var row models.CategorySummaryRow
		if err := rows.Scan(&row.Category, &row.Division, &row.Kind, &row.Total, &row.Count); err != nil {
			return nil, err
		}
		summary = append(summary, row)
	}

	return summary, rows.Err()
}

func parseIntParam(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/k-cafe/api/internal/database"
	"github.com/shopspring/decimal"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetDishSales(ctx context.Context, arg database.GetDishSalesParams) ([]database.GetDishSalesRow, error)
	GetPaymentSummary(ctx context.Context, arg database.GetPaymentSummaryParams) ([]database.GetPaymentSummaryRow, error)
	GetSalesTotal(ctx context.Context, arg database.GetSalesTotalParams) (pgtype.Numeric, error)
	SumWagePayments(ctx context.Context, arg database.SumWagePaymentsParams) (pgtype.Numeric, error)
	SumExpenses(ctx context.Context, arg database.SumExpensesParams) (pgtype.Numeric, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers report endpoints on the restaurant subrouter.
// The router restricts them to admins.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/daily-sales", h.DailySales)
		r.Get("/dish-sales", h.DishSales)
		r.Get("/payment-summary", h.PaymentSummary)
		r.Get("/net-profit", h.NetProfit)
	})
}

// --- Response types ---

type dailySalesResponse struct {
	Date        string `json:"date"`
	OrderCount  int64  `json:"order_count"`
	TotalAmount string `json:"total_amount"`
}

type dishSalesResponse struct {
	MenuItemName string `json:"menu_item_name"`
	QuantitySold int64  `json:"quantity_sold"`
	TotalAmount  string `json:"total_amount"`
}

type paymentSummaryResponse struct {
	Method      string `json:"method"`
	OrderCount  int64  `json:"order_count"`
	TotalAmount string `json:"total_amount"`
}

type netProfitResponse struct {
	Sales     string `json:"sales"`
	Wages     string `json:"wages"`
	Expenses  string `json:"expenses"`
	NetProfit string `json:"net_profit"`
}

// --- Handlers ---

// DailySales returns per-day closed-order totals for a date range.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		RestaurantID: restaurantID,
		StartDate:    pgtype.Timestamptz{Time: startDate, Valid: true},
		EndDate:      pgtype.Timestamptz{Time: endDate, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: get daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		date := "N/A"
		if row.Day.Valid {
			date = row.Day.Time.Format("2006-01-02")
		}
		resp[i] = dailySalesResponse{
			Date:        date,
			OrderCount:  row.OrderCount,
			TotalAmount: numericToString(row.TotalAmount),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// DishSales returns the best selling dishes by revenue.
func (h *ReportsHandler) DishSales(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetDishSales(r.Context(), database.GetDishSalesParams{
		RestaurantID: restaurantID,
		StartDate:    pgtype.Timestamptz{Time: startDate, Valid: true},
		EndDate:      pgtype.Timestamptz{Time: endDate, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: get dish sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dishSalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dishSalesResponse{
			MenuItemName: row.MenuItemName,
			QuantitySold: row.QuantitySold,
			TotalAmount:  numericToString(row.TotalAmount),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary returns the breakdown of closed orders by payment method.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), database.GetPaymentSummaryParams{
		RestaurantID: restaurantID,
		StartDate:    pgtype.Timestamptz{Time: startDate, Valid: true},
		EndDate:      pgtype.Timestamptz{Time: endDate, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: get payment summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			Method:      row.Method,
			OrderCount:  row.OrderCount,
			TotalAmount: numericToString(row.TotalAmount),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// NetProfit returns sales minus wages and expenses for a date range.
func (h *ReportsHandler) NetProfit(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := restaurantIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	salesNum, err := h.store.GetSalesTotal(r.Context(), database.GetSalesTotalParams{
		RestaurantID: restaurantID,
		StartDate:    pgtype.Timestamptz{Time: startDate, Valid: true},
		EndDate:      pgtype.Timestamptz{Time: endDate, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: get sales total: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	wagesNum, err := h.store.SumWagePayments(r.Context(), database.SumWagePaymentsParams{
		RestaurantID: restaurantID,
		StartDate:    startDate,
		EndDate:      endDate,
	})
	if err != nil {
		log.Printf("ERROR: sum wage payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Expenses carry a plain date, so the exclusive end becomes inclusive
	// of the previous day.
	expensesNum, err := h.store.SumExpenses(r.Context(), database.SumExpensesParams{
		RestaurantID: restaurantID,
		StartDate:    pgtype.Date{Time: startDate, Valid: true},
		EndDate:      pgtype.Date{Time: endDate.AddDate(0, 0, -1), Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: sum expenses: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	sales := mustDecimal(salesNum)
	wages := mustDecimal(wagesNum)
	expenses := mustDecimal(expensesNum)

	writeJSON(w, http.StatusOK, netProfitResponse{
		Sales:     sales.StringFixed(2),
		Wages:     wages.StringFixed(2),
		Expenses:  expenses.StringFixed(2),
		NetProfit: sales.Sub(wages).Sub(expenses).StringFixed(2),
	})
}

// --- Helpers ---

func mustDecimal(n pgtype.Numeric) decimal.Decimal {
	d, err := decimal.NewFromString(numericToString(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseDateRange parses start_date and end_date query params in Asia/Tashkent
// time, where the restaurants run. Defaults to the last 30 days.
// The returned end date is exclusive (next day midnight).
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	loc, err := time.LoadLocation("Asia/Tashkent")
	if err != nil {
		loc = time.FixedZone("UZT", 5*3600)
	}

	now := time.Now().In(loc)

	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -30)
	endDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		startDate = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if startDate.After(endDate) || startDate.Equal(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}

	return startDate, endDate, nil
}

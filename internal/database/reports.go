package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type GetDailySalesParams struct {
	RestaurantID uuid.UUID
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
}

type GetDailySalesRow struct {
	Day         pgtype.Date
	OrderCount  int64
	TotalAmount pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT completed_at::date AS day, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE restaurant_id = $1
		  AND status = 'closed'
		  AND completed_at >= $2
		  AND completed_at < $3
		GROUP BY day
		ORDER BY day`,
		arg.RestaurantID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetDailySalesRow
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(&i.Day, &i.OrderCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type GetDishSalesParams struct {
	RestaurantID uuid.UUID
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
}

type GetDishSalesRow struct {
	MenuItemName string
	QuantitySold int64
	TotalAmount  pgtype.Numeric
}

func (q *Queries) GetDishSales(ctx context.Context, arg GetDishSalesParams) ([]GetDishSalesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.menu_item_name, COALESCE(SUM(oi.quantity), 0), COALESCE(SUM(oi.subtotal), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.restaurant_id = $1
		  AND o.status = 'closed'
		  AND o.completed_at >= $2
		  AND o.completed_at < $3
		GROUP BY oi.menu_item_name
		ORDER BY SUM(oi.subtotal) DESC`,
		arg.RestaurantID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetDishSalesRow
	for rows.Next() {
		var i GetDishSalesRow
		if err := rows.Scan(&i.MenuItemName, &i.QuantitySold, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type GetPaymentSummaryParams struct {
	RestaurantID uuid.UUID
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
}

type GetPaymentSummaryRow struct {
	Method      string
	OrderCount  int64
	TotalAmount pgtype.Numeric
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT p.method, COUNT(DISTINCT p.order_id), COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE o.restaurant_id = $1
		  AND p.paid_at >= $2
		  AND p.paid_at < $3
		GROUP BY p.method
		ORDER BY p.method`,
		arg.RestaurantID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetPaymentSummaryRow
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(&i.Method, &i.OrderCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type GetSalesTotalParams struct {
	RestaurantID uuid.UUID
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
}

func (q *Queries) GetSalesTotal(ctx context.Context, arg GetSalesTotalParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE restaurant_id = $1
		  AND status = 'closed'
		  AND completed_at >= $2
		  AND completed_at < $3`,
		arg.RestaurantID, arg.StartDate, arg.EndDate)
	var total pgtype.Numeric
	err := row.Scan(&total)
	return total, err
}

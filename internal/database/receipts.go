package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const receiptColumns = `id, order_id, restaurant_id, items, total_amount, payment_method, completed_at, created_at`

func scanReceipt(row scanner) (OrderReceipt, error) {
	var r OrderReceipt
	err := row.Scan(&r.ID, &r.OrderID, &r.RestaurantID, &r.Items, &r.TotalAmount, &r.PaymentMethod, &r.CompletedAt, &r.CreatedAt)
	return r, err
}

type CreateOrderReceiptParams struct {
	OrderID       uuid.UUID
	RestaurantID  pgtype.UUID
	Items         []byte
	TotalAmount   pgtype.Numeric
	PaymentMethod pgtype.Text
	CompletedAt   pgtype.Timestamptz
}

func (q *Queries) CreateOrderReceipt(ctx context.Context, arg CreateOrderReceiptParams) (OrderReceipt, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_receipts (order_id, restaurant_id, items, total_amount, payment_method, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+receiptColumns,
		arg.OrderID, arg.RestaurantID, arg.Items, arg.TotalAmount, arg.PaymentMethod, arg.CompletedAt)
	return scanReceipt(row)
}

type ListOrderReceiptsParams struct {
	RestaurantID pgtype.UUID
	Limit        int32
	Offset       int32
}

func (q *Queries) ListOrderReceipts(ctx context.Context, arg ListOrderReceiptsParams) ([]OrderReceipt, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+receiptColumns+`
		FROM order_receipts
		WHERE ($1::uuid IS NULL OR restaurant_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.RestaurantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderReceipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

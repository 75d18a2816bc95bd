package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, menu_item_id, menu_item_name, quantity, unit_price, subtotal, special_requests`

func scanOrderItem(row scanner) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(
		&it.ID,
		&it.OrderID,
		&it.MenuItemID,
		&it.MenuItemName,
		&it.Quantity,
		&it.UnitPrice,
		&it.Subtotal,
		&it.SpecialRequests,
	)
	return it, err
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderItemColumns+`
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type CreateOrderItemParams struct {
	OrderID         uuid.UUID
	MenuItemID      pgtype.UUID
	MenuItemName    string
	Quantity        int32
	UnitPrice       pgtype.Numeric
	Subtotal        pgtype.Numeric
	SpecialRequests pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, menu_item_id, menu_item_name, quantity, unit_price, subtotal, special_requests)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+orderItemColumns,
		arg.OrderID, arg.MenuItemID, arg.MenuItemName, arg.Quantity, arg.UnitPrice, arg.Subtotal, arg.SpecialRequests)
	return scanOrderItem(row)
}

type DeleteOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

// DeleteOrderItem removes one line item. Returns pgx.ErrNoRows when the
// item does not exist or belongs to a different order.
func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM order_items WHERE id = $1 AND order_id = $2`,
		arg.ID, arg.OrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	return err
}

func (q *Queries) CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM order_items WHERE order_id = $1`,
		orderID).Scan(&n)
	return n, err
}

func (q *Queries) SumOrderItemSubtotals(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(subtotal), 0) FROM order_items WHERE order_id = $1`,
		orderID).Scan(&total)
	return total, err
}

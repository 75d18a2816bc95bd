package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, restaurant_id, table_id, waiter_id, status, total_amount,
	payment_status, payment_method, special_instructions, created_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.RestaurantID,
		&o.TableID,
		&o.WaiterID,
		&o.Status,
		&o.TotalAmount,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.SpecialInstructions,
		&o.CreatedAt,
		&o.CompletedAt,
	)
	return o, err
}

type GetOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
	return scanOrder(row)
}

type GetOrderForUpdateParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// GetOrderForUpdate locks the order row for the remainder of the enclosing
// transaction, serializing concurrent checkout and delete attempts.
func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderForUpdateParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND restaurant_id = $2
		FOR NO KEY UPDATE`,
		arg.ID, arg.RestaurantID)
	return scanOrder(row)
}

type ListOrdersParams struct {
	RestaurantID uuid.UUID
	Status       string
	TableID      pgtype.UUID
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
	Limit        int32
	Offset       int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE restaurant_id = $1
		  AND ($2::text = '' OR status = $2)
		  AND ($3::uuid IS NULL OR table_id = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at < $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7`,
		arg.RestaurantID, arg.Status, arg.TableID, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) ListOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE table_id = $1 AND status = 'open'
		ORDER BY created_at DESC`,
		tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) ListOpenOrdersByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE restaurant_id = $1 AND status = 'open'
		ORDER BY created_at DESC`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) CountOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE table_id = $1 AND status = 'open'`,
		tableID).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	RestaurantID        uuid.UUID
	TableID             uuid.UUID
	WaiterID            pgtype.UUID
	TotalAmount         pgtype.Numeric
	SpecialInstructions pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (restaurant_id, table_id, waiter_id, status, total_amount, payment_status, special_instructions)
		VALUES ($1, $2, $3, 'open', $4, 'unpaid', $5)
		RETURNING `+orderColumns,
		arg.RestaurantID, arg.TableID, arg.WaiterID, arg.TotalAmount, arg.SpecialInstructions)
	return scanOrder(row)
}

type UpdateOrderTotalParams struct {
	ID          uuid.UUID
	TotalAmount pgtype.Numeric
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET total_amount = $2
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.TotalAmount)
	return scanOrder(row)
}

type CloseOrderParams struct {
	ID            uuid.UUID
	PaymentMethod pgtype.Text
}

// CloseOrder flips an open order to closed/paid. The status guard in the
// WHERE clause makes a second close attempt surface as pgx.ErrNoRows.
func (q *Queries) CloseOrder(ctx context.Context, arg CloseOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'closed', payment_status = 'paid', payment_method = $2, completed_at = now()
		WHERE id = $1 AND status = 'open'
		RETURNING `+orderColumns,
		arg.ID, arg.PaymentMethod)
	return scanOrder(row)
}

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderDeletionColumns = `id, order_id, restaurant_id, deleted_by_id, deleted_by_name,
	total_amount, payment_method, completed_at, order_created_at, items, reason, deleted_at`

func scanOrderDeletion(row scanner) (OrderDeletion, error) {
	var d OrderDeletion
	err := row.Scan(
		&d.ID,
		&d.OrderID,
		&d.RestaurantID,
		&d.DeletedByID,
		&d.DeletedByName,
		&d.TotalAmount,
		&d.PaymentMethod,
		&d.CompletedAt,
		&d.OrderCreatedAt,
		&d.Items,
		&d.Reason,
		&d.DeletedAt,
	)
	return d, err
}

type CreateOrderDeletionParams struct {
	OrderID        uuid.UUID
	RestaurantID   pgtype.UUID
	DeletedByID    pgtype.UUID
	DeletedByName  string
	TotalAmount    pgtype.Numeric
	PaymentMethod  pgtype.Text
	CompletedAt    pgtype.Timestamptz
	OrderCreatedAt pgtype.Timestamptz
	Items          []byte
	Reason         string
}

func (q *Queries) CreateOrderDeletion(ctx context.Context, arg CreateOrderDeletionParams) (OrderDeletion, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_deletions (order_id, restaurant_id, deleted_by_id, deleted_by_name,
			total_amount, payment_method, completed_at, order_created_at, items, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+orderDeletionColumns,
		arg.OrderID, arg.RestaurantID, arg.DeletedByID, arg.DeletedByName,
		arg.TotalAmount, arg.PaymentMethod, arg.CompletedAt, arg.OrderCreatedAt,
		arg.Items, arg.Reason)
	return scanOrderDeletion(row)
}

func (q *Queries) GetOrderDeletionByOrder(ctx context.Context, orderID uuid.UUID) (OrderDeletion, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+orderDeletionColumns+`
		FROM order_deletions
		WHERE order_id = $1`,
		orderID)
	return scanOrderDeletion(row)
}

func (q *Queries) ListOrderDeletions(ctx context.Context, restaurantID pgtype.UUID) ([]OrderDeletion, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderDeletionColumns+`
		FROM order_deletions
		WHERE ($1::uuid IS NULL OR restaurant_id = $1)
		ORDER BY deleted_at DESC`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderDeletion
	for rows.Next() {
		d, err := scanOrderDeletion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const notificationColumns = `id, restaurant_id, type, title, message, payload, created_at`

func scanNotification(row scanner) (AdminNotification, error) {
	var n AdminNotification
	err := row.Scan(&n.ID, &n.RestaurantID, &n.Type, &n.Title, &n.Message, &n.Payload, &n.CreatedAt)
	return n, err
}

type CreateAdminNotificationParams struct {
	RestaurantID pgtype.UUID
	Type         string
	Title        string
	Message      string
	Payload      []byte
}

func (q *Queries) CreateAdminNotification(ctx context.Context, arg CreateAdminNotificationParams) (AdminNotification, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO admin_notifications (restaurant_id, type, title, message, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+notificationColumns,
		arg.RestaurantID, arg.Type, arg.Title, arg.Message, arg.Payload)
	return scanNotification(row)
}

type ListAdminNotificationsParams struct {
	RestaurantID pgtype.UUID
	Limit        int32
	Offset       int32
}

func (q *Queries) ListAdminNotifications(ctx context.Context, arg ListAdminNotificationsParams) ([]AdminNotification, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM admin_notifications
		WHERE ($1::uuid IS NULL OR restaurant_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.RestaurantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

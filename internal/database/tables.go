package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, restaurant_id, number, seats, status, current_order_id, created_at`

func scanTable(row scanner) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Seats, &t.Status, &t.CurrentOrderID, &t.CreatedAt)
	return t, err
}

func (q *Queries) ListTables(ctx context.Context, restaurantID uuid.UUID) ([]Table, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+tableColumns+`
		FROM tables
		WHERE restaurant_id = $1
		ORDER BY number`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type GetTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+tableColumns+`
		FROM tables
		WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
	return scanTable(row)
}

type CreateTableParams struct {
	RestaurantID uuid.UUID
	Number       int32
	Seats        int32
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tables (restaurant_id, number, seats, status)
		VALUES ($1, $2, $3, 'available')
		RETURNING `+tableColumns,
		arg.RestaurantID, arg.Number, arg.Seats)
	return scanTable(row)
}

type DeleteTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteTable(ctx context.Context, arg DeleteTableParams) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM tables WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type UpdateTableProjectionParams struct {
	ID             uuid.UUID
	Status         string
	CurrentOrderID pgtype.UUID
}

// UpdateTableProjection refreshes the cached occupied/available columns.
// Only the order lifecycle may call this; it is never a user-facing write.
func (q *Queries) UpdateTableProjection(ctx context.Context, arg UpdateTableProjectionParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables
		SET status = $2, current_order_id = $3
		WHERE id = $1
		RETURNING `+tableColumns,
		arg.ID, arg.Status, arg.CurrentOrderID)
	return scanTable(row)
}

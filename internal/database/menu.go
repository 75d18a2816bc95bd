package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, restaurant_id, name, description, price, category, image,
	ingredients, is_available, preparation_time, created_at, updated_at`

func scanMenuItem(row scanner) (MenuItem, error) {
	var mi MenuItem
	err := row.Scan(
		&mi.ID,
		&mi.RestaurantID,
		&mi.Name,
		&mi.Description,
		&mi.Price,
		&mi.Category,
		&mi.Image,
		&mi.Ingredients,
		&mi.IsAvailable,
		&mi.PreparationTime,
		&mi.CreatedAt,
		&mi.UpdatedAt,
	)
	return mi, err
}

func (q *Queries) ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY name`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		mi, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, mi)
	}
	return items, rows.Err()
}

type GetMenuItemForOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// GetMenuItemForOrder resolves a menu entry for price/name snapshotting.
// Unavailable items are treated the same as missing ones.
func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE id = $1 AND restaurant_id = $2 AND is_available`,
		arg.ID, arg.RestaurantID)
	return scanMenuItem(row)
}

type CreateMenuItemParams struct {
	RestaurantID    uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	Category        string
	Image           pgtype.Text
	Ingredients     []string
	IsAvailable     bool
	PreparationTime int32
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_items (restaurant_id, name, description, price, category, image, ingredients, is_available, preparation_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+menuItemColumns,
		arg.RestaurantID, arg.Name, arg.Description, arg.Price, arg.Category,
		arg.Image, arg.Ingredients, arg.IsAvailable, arg.PreparationTime)
	return scanMenuItem(row)
}

type UpdateMenuItemParams struct {
	ID              uuid.UUID
	RestaurantID    uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	Category        string
	Image           pgtype.Text
	Ingredients     []string
	IsAvailable     bool
	PreparationTime int32
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE menu_items
		SET name = $3, description = $4, price = $5, category = $6, image = $7,
		    ingredients = $8, is_available = $9, preparation_time = $10, updated_at = now()
		WHERE id = $1 AND restaurant_id = $2
		RETURNING `+menuItemColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.Description, arg.Price, arg.Category,
		arg.Image, arg.Ingredients, arg.IsAvailable, arg.PreparationTime)
	return scanMenuItem(row)
}

type DeleteMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteMenuItem(ctx context.Context, arg DeleteMenuItemParams) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM menu_items WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

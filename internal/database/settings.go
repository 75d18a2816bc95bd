package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const settingsColumns = `restaurant_id, restaurant_name, phone, address, owner_card_number, owner_qr_payload, updated_at`

func scanSettings(row scanner) (RestaurantSettings, error) {
	var s RestaurantSettings
	err := row.Scan(&s.RestaurantID, &s.RestaurantName, &s.Phone, &s.Address, &s.OwnerCardNumber, &s.OwnerQRPayload, &s.UpdatedAt)
	return s, err
}

func (q *Queries) GetRestaurantSettings(ctx context.Context, restaurantID uuid.UUID) (RestaurantSettings, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+settingsColumns+`
		FROM restaurant_settings
		WHERE restaurant_id = $1`,
		restaurantID)
	return scanSettings(row)
}

type UpsertRestaurantSettingsParams struct {
	RestaurantID    uuid.UUID
	RestaurantName  pgtype.Text
	Phone           pgtype.Text
	Address         pgtype.Text
	OwnerCardNumber pgtype.Text
	OwnerQRPayload  pgtype.Text
}

func (q *Queries) UpsertRestaurantSettings(ctx context.Context, arg UpsertRestaurantSettingsParams) (RestaurantSettings, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO restaurant_settings (restaurant_id, restaurant_name, phone, address, owner_card_number, owner_qr_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (restaurant_id) DO UPDATE
		SET restaurant_name = EXCLUDED.restaurant_name,
		    phone = EXCLUDED.phone,
		    address = EXCLUDED.address,
		    owner_card_number = EXCLUDED.owner_card_number,
		    owner_qr_payload = EXCLUDED.owner_qr_payload,
		    updated_at = now()
		RETURNING `+settingsColumns,
		arg.RestaurantID, arg.RestaurantName, arg.Phone, arg.Address, arg.OwnerCardNumber, arg.OwnerQRPayload)
	return scanSettings(row)
}

package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Table struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Number       int32
	Seats        int32
	// Status and CurrentOrderID are cached projections maintained by the
	// order lifecycle; readers recompute them from open orders.
	Status         string
	CurrentOrderID pgtype.UUID
	CreatedAt      time.Time
}

type MenuItem struct {
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
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Order struct {
	ID                  uuid.UUID
	RestaurantID        uuid.UUID
	TableID             uuid.UUID
	WaiterID            pgtype.UUID
	Status              string
	TotalAmount         pgtype.Numeric
	PaymentStatus       string
	PaymentMethod       pgtype.Text
	SpecialInstructions pgtype.Text
	CreatedAt           time.Time
	CompletedAt         pgtype.Timestamptz
}

type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	MenuItemID      pgtype.UUID
	MenuItemName    string
	Quantity        int32
	UnitPrice       pgtype.Numeric
	Subtotal        pgtype.Numeric
	SpecialRequests pgtype.Text
}

type Payment struct {
	ID      uuid.UUID
	OrderID uuid.UUID
	Method  string
	Amount  pgtype.Numeric
	ExtRef  pgtype.Text
	PaidAt  time.Time
}

// OrderReceipt is the append-only snapshot of a closed check. Items holds
// the JSON-encoded line items captured at checkout time.
type OrderReceipt struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	RestaurantID  pgtype.UUID
	Items         []byte
	TotalAmount   pgtype.Numeric
	PaymentMethod pgtype.Text
	CompletedAt   pgtype.Timestamptz
	CreatedAt     time.Time
}

// OrderDeletion is the audit record written before an order is physically
// removed. Items holds the JSON-encoded snapshot of the deleted lines.
type OrderDeletion struct {
	ID             uuid.UUID
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
	DeletedAt      time.Time
}

type AdminNotification struct {
	ID           uuid.UUID
	RestaurantID pgtype.UUID
	Type         string
	Title        string
	Message      string
	Payload      []byte
	CreatedAt    time.Time
}

type Staff struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Login        string
	Role         string
	DailyWage    pgtype.Numeric
	IsActive     bool
	CreatedAt    time.Time
}

type WagePayment struct {
	ID       uuid.UUID
	StaffID  uuid.UUID
	Amount   pgtype.Numeric
	Note     pgtype.Text
	PaidBy   string
	PaidDate time.Time
}

type Expense struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Amount       pgtype.Numeric
	ExpenseDate  pgtype.Date
	CreatedBy    string
	CreatedAt    time.Time
}

type Debtor struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Phone        pgtype.Text
	Amount       pgtype.Numeric
	DueDate      pgtype.Date
	Paid         bool
	PaidAt       pgtype.Timestamptz
	CreatedBy    pgtype.UUID
	CreatedAt    time.Time
}

type RestaurantSettings struct {
	RestaurantID    uuid.UUID
	RestaurantName  pgtype.Text
	Phone           pgtype.Text
	Address         pgtype.Text
	OwnerCardNumber pgtype.Text
	OwnerQRPayload  pgtype.Text
	UpdatedAt       time.Time
}

package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusOpen      = "open"
	OrderStatusClosed    = "closed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "admin"
	UserRoleManager = "manager"
	UserRoleWaiter  = "waiter"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
	PaymentMethodQR   = "qr"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	NotificationTypeOrderDeleted = "order_deleted"
)

// OrderDeletionReason is the fixed audit reason recorded when an admin
// deletes an order outside the normal checkout flow. Kept in Uzbek to
// match what the front office prints and displays.
const OrderDeletionReason = "Admin tomonidan chek o'chirildi"

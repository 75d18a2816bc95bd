package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/enum"
	"github.com/k-cafe/api/internal/mirror"
)

// PaymentLeg is one payment applied at checkout. Split payments send
// several legs; their amounts are recorded as given, not validated
// against the order total (cash rounding and tips happen at the till).
type PaymentLeg struct {
	Method string
	Amount string
	ExtRef string
}

// CheckoutRequest closes an order with one or more payments.
type CheckoutRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	Payments     []PaymentLeg
}

// CheckoutResult is the closed order with its recorded payments.
type CheckoutResult struct {
	Order    database.Order
	Payments []database.Payment
}

// receiptItem is the line-item shape frozen into receipts and audit rows.
type receiptItem struct {
	MenuItemName string          `json:"menu_item_name"`
	Quantity     int32           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

func itemsSnapshot(items []database.OrderItem) ([]byte, error) {
	snapshot := make([]receiptItem, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, receiptItem{
			MenuItemName: item.MenuItemName,
			Quantity:     item.Quantity,
			UnitPrice:    numericToDecimal(item.UnitPrice),
			Subtotal:     numericToDecimal(item.Subtotal),
		})
	}
	return json.Marshal(snapshot)
}

// Checkout settles an open order in a single transaction: the order row
// is locked, anything but status=open is rejected, payment rows are
// inserted, and the order flips to closed/paid. A concurrent second
// checkout blocks on the lock and then fails with ErrOrderNotOpen.
// After commit, the receipt write and the table re-projection are
// best-effort; their failure never unwinds the financial close.
// There is no mirror fallback here: when Postgres is down, checkout fails.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if len(req.Payments) == 0 {
		return nil, ErrEmptyPayments
	}

	type parsedLeg struct {
		method string
		amount decimal.Decimal
		extRef string
	}
	legs := make([]parsedLeg, 0, len(req.Payments))
	for i, leg := range req.Payments {
		if !isValidPaymentMethod(leg.Method) {
			return nil, fmt.Errorf("payment[%d]: %w", i, ErrInvalidPayMethod)
		}
		amount, err := decimal.NewFromString(leg.Amount)
		if err != nil || !amount.IsPositive() {
			return nil, fmt.Errorf("payment[%d]: %w", i, ErrInvalidPayAmount)
		}
		legs = append(legs, parsedLeg{method: leg.Method, amount: amount, extRef: leg.ExtRef})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Lock the order row ---
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{
		ID:           req.OrderID,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.OrderStatusOpen {
		return nil, ErrOrderNotOpen
	}

	// Items are read inside the transaction so the receipt snapshot and
	// the financial close cover the same state.
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	// --- Insert payment legs ---
	var payments []database.Payment
	for _, leg := range legs {
		extRef := pgtype.Text{}
		if leg.extRef != "" {
			extRef = pgtype.Text{String: leg.extRef, Valid: true}
		}
		payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID: order.ID,
			Method:  leg.method,
			Amount:  decimalToNumeric(leg.amount),
			ExtRef:  extRef,
		})
		if err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}
		payments = append(payments, payment)
	}

	// --- Flip to closed/paid (guarded on status=open) ---
	closed, err := store.CloseOrder(ctx, database.CloseOrderParams{
		ID:            order.ID,
		PaymentMethod: pgtype.Text{String: legs[0].method, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotOpen
		}
		return nil, fmt.Errorf("close order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	// Post-commit: receipt log and table projection are best-effort. The
	// checkout already succeeded; failures here are logged, the receipt
	// is mirrored locally so it is not lost.
	s.persistReceipt(ctx, closed, items)

	if err := reprojectTable(ctx, s.store, closed.TableID); err != nil {
		log.Printf("ERROR: reproject table %s after checkout: %v", closed.TableID, err)
	}

	return &CheckoutResult{Order: closed, Payments: payments}, nil
}

func (s *OrderService) persistReceipt(ctx context.Context, order database.Order, items []database.OrderItem) {
	snapshot, err := itemsSnapshot(items)
	if err != nil {
		log.Printf("ERROR: snapshot receipt items for order %s: %v", order.ID, err)
		return
	}

	_, err = s.store.CreateOrderReceipt(ctx, database.CreateOrderReceiptParams{
		OrderID:       order.ID,
		RestaurantID:  pgtype.UUID{Bytes: order.RestaurantID, Valid: true},
		Items:         snapshot,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		CompletedAt:   order.CompletedAt,
	})
	if err == nil {
		return
	}
	log.Printf("ERROR: persist receipt for order %s, mirroring locally: %v", order.ID, err)

	receipt := mirror.Receipt{
		OrderID:       order.ID,
		Items:         snapshot,
		TotalAmount:   numericToDecimal(order.TotalAmount),
		PaymentMethod: order.PaymentMethod.String,
		CompletedAt:   order.CompletedAt.Time,
	}
	if err := s.mirror.AppendReceipt(ctx, order.RestaurantID, receipt); err != nil {
		log.Printf("ERROR: mirror receipt for order %s: %v", order.ID, err)
	}
}

// ListReceipts returns the receipt log, newest first. When Postgres is
// unreachable the locally mirrored receipts are returned instead.
func (s *OrderService) ListReceipts(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]database.OrderReceipt, bool, error) {
	receipts, err := s.store.ListOrderReceipts(ctx, database.ListOrderReceiptsParams{
		RestaurantID: pgtype.UUID{Bytes: restaurantID, Valid: true},
		Limit:        limit,
		Offset:       offset,
	})
	if err == nil {
		return receipts, false, nil
	}
	if !IsConnectivityError(err) {
		return nil, false, err
	}

	log.Printf("ERROR: list receipts: database unreachable, reading local mirror: %v", err)
	mirrored, merr := s.mirror.Receipts(ctx, restaurantID)
	if merr != nil {
		return nil, false, fmt.Errorf("read mirrored receipts: %w", merr)
	}

	result := make([]database.OrderReceipt, 0, len(mirrored))
	for _, r := range mirrored {
		result = append(result, database.OrderReceipt{
			OrderID:       r.OrderID,
			RestaurantID:  pgtype.UUID{Bytes: restaurantID, Valid: true},
			Items:         r.Items,
			TotalAmount:   decimalToNumeric(r.TotalAmount),
			PaymentMethod: pgtype.Text{String: r.PaymentMethod, Valid: true},
			CompletedAt:   pgtype.Timestamptz{Time: r.CompletedAt, Valid: true},
		})
	}
	return result, true, nil
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodQR:
		return true
	}
	return false
}

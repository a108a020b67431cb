package db

import (
	"context"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

type OrderInterface interface {
	// Create inserts provisional orders of a checkout.
	//
	// All orders are inserted in one transaction, with status "pending".
	// When any of them cannot be inserted, nothing is inserted.
	//
	// # Returns
	//
	// - []domain.Order: created orders, in the order of the argument.
	//
	// - error: wraps ErrConflict when an order with the same id exists.
	Create(ctx context.Context, bodies []domain.OrderBody) ([]domain.Order, error)

	// Get orders by ids.
	//
	// Unknown ids are not in the result map, and it is not an error.
	Get(ctx context.Context, ids []string) (map[string]domain.Order, error)

	// Find orders matching the query, newest first.
	Find(ctx context.Context, query domain.OrderFindQuery) ([]domain.Order, error)

	// AttachPayment records the provider side reference of a checkout.
	//
	// Every order of the checkout gets paymentRef, and hostedURL when it is not empty.
	//
	// # Returns
	//
	// - error: ErrMissing when there are no orders in the checkout.
	AttachPayment(ctx context.Context, checkoutId string, paymentRef string, hostedURL string) error

	// SetStatus moves orders to newStatus.
	//
	// Each order is checked with domain.CanTransit under row lock.
	// When any of orders cannot transit, no orders are changed
	// and an error wrapping ErrInvalidOrderStateChanging is returned.
	//
	// ErrMissing is returned when any of orders is not found.
	SetStatus(ctx context.Context, ids []string, newStatus domain.OrderStatus) error

	// DeleteProvisional removes pending orders of the checkout
	// and releases reservations of drop items they hold.
	//
	// Orders which are not pending are kept.
	DeleteProvisional(ctx context.Context, checkoutId string) error

	// PickAndSetStatus picks an order matching the cursor and moves its status
	// to what the callback returns.
	//
	// The order is locked until the callback returns.
	// When the callback returns an error, the order is not changed.
	// When the callback returns the current status of the order, it is not changed.
	//
	// # Returns
	//
	// - domain.OrderCursor: cursor pointing the picked order.
	//
	// - bool: true if an order is picked.
	//
	// - error
	PickAndSetStatus(
		ctx context.Context, cursor domain.OrderCursor,
		task func(domain.Order) (domain.OrderStatus, error),
	) (domain.OrderCursor, bool, error)

	// PickAndNotify picks an order matching the cursor and not yet notified,
	// then marks it as notified after the callback succeeds.
	PickAndNotify(
		ctx context.Context, cursor domain.OrderCursor,
		task func(domain.Order) error,
	) (domain.OrderCursor, bool, error)

	// Cancel records the cancellation and moves the order to "cancelled" atomically.
	//
	// ErrInvalidOrderStateChanging is returned when the order cannot be cancelled.
	Cancel(ctx context.Context, cancellation domain.Cancellation) error

	// Refund records an admin refund and moves the order to newStatus atomically.
	Refund(ctx context.Context, refund domain.AdminRefund, newStatus domain.OrderStatus) error

	// Refunds lists admin refunds issued for the order.
	Refunds(ctx context.Context, orderId string) ([]domain.AdminRefund, error)

	// CountByStatus returns the number of orders per status.
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
}

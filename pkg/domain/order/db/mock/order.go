package mocks

import (
	"context"
	"errors"

	"github.com/cozyartz/etchNFT/pkg/domain"
	dbmock "github.com/cozyartz/etchNFT/pkg/domain/internal/db/mock"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/order/db"
)

type OrderInterface struct {
	Impl struct {
		Create            func(context.Context, []domain.OrderBody) ([]domain.Order, error)
		Get               func(context.Context, []string) (map[string]domain.Order, error)
		Find              func(context.Context, domain.OrderFindQuery) ([]domain.Order, error)
		AttachPayment     func(ctx context.Context, checkoutId string, paymentRef string, hostedURL string) error
		SetStatus         func(context.Context, []string, domain.OrderStatus) error
		DeleteProvisional func(ctx context.Context, checkoutId string) error
		PickAndSetStatus  func(context.Context, domain.OrderCursor, func(domain.Order) (domain.OrderStatus, error)) (domain.OrderCursor, bool, error)
		PickAndNotify     func(context.Context, domain.OrderCursor, func(domain.Order) error) (domain.OrderCursor, bool, error)
		Cancel            func(context.Context, domain.Cancellation) error
		Refund            func(context.Context, domain.AdminRefund, domain.OrderStatus) error
		Refunds           func(ctx context.Context, orderId string) ([]domain.AdminRefund, error)
		CountByStatus     func(context.Context) (map[domain.OrderStatus]int, error)
	}
	Calls struct {
		Create        dbmock.CallLog[[]domain.OrderBody]
		Get           dbmock.CallLog[[]string]
		Find          dbmock.CallLog[domain.OrderFindQuery]
		AttachPayment dbmock.CallLog[struct {
			CheckoutId string
			PaymentRef string
			HostedURL  string
		}]
		SetStatus dbmock.CallLog[struct {
			Ids       []string
			NewStatus domain.OrderStatus
		}]
		DeleteProvisional dbmock.CallLog[string]
		PickAndSetStatus  dbmock.CallLog[domain.OrderCursor]
		PickAndNotify     dbmock.CallLog[domain.OrderCursor]
		Cancel            dbmock.CallLog[domain.Cancellation]
		Refund            dbmock.CallLog[struct {
			Refund    domain.AdminRefund
			NewStatus domain.OrderStatus
		}]
		Refunds       dbmock.CallLog[string]
		CountByStatus dbmock.CallLog[struct{}]
	}
}

var _ kdb.OrderInterface = &OrderInterface{}

func NewOrderInterface() *OrderInterface {
	return &OrderInterface{}
}

var errNotImplemented = errors.New("it should not be called")

func (m *OrderInterface) Create(ctx context.Context, bodies []domain.OrderBody) ([]domain.Order, error) {
	m.Calls.Create = append(m.Calls.Create, bodies)
	if m.Impl.Create == nil {
		panic(errNotImplemented)
	}
	return m.Impl.Create(ctx, bodies)
}

func (m *OrderInterface) Get(ctx context.Context, ids []string) (map[string]domain.Order, error) {
	m.Calls.Get = append(m.Calls.Get, ids)
	if m.Impl.Get == nil {
		panic(errNotImplemented)
	}
	return m.Impl.Get(ctx, ids)
}

func (m *OrderInterface) Find(ctx context.Context, query domain.OrderFindQuery) ([]domain.Order, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		panic(errNotImplemented)
	}
	return m.Impl.Find(ctx, query)
}

func (m *OrderInterface) AttachPayment(ctx context.Context, checkoutId string, paymentRef string, hostedURL string) error {
	m.Calls.AttachPayment = append(m.Calls.AttachPayment, struct {
		CheckoutId string
		PaymentRef string
		HostedURL  string
	}{CheckoutId: checkoutId, PaymentRef: paymentRef, HostedURL: hostedURL})
	if m.Impl.AttachPayment == nil {
		panic(errNotImplemented)
	}
	return m.Impl.AttachPayment(ctx, checkoutId, paymentRef, hostedURL)
}

func (m *OrderInterface) SetStatus(ctx context.Context, ids []string, newStatus domain.OrderStatus) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		Ids       []string
		NewStatus domain.OrderStatus
	}{Ids: ids, NewStatus: newStatus})
	if m.Impl.SetStatus == nil {
		panic(errNotImplemented)
	}
	return m.Impl.SetStatus(ctx, ids, newStatus)
}

func (m *OrderInterface) DeleteProvisional(ctx context.Context, checkoutId string) error {
	m.Calls.DeleteProvisional = append(m.Calls.DeleteProvisional, checkoutId)
	if m.Impl.DeleteProvisional == nil {
		panic(errNotImplemented)
	}
	return m.Impl.DeleteProvisional(ctx, checkoutId)
}

func (m *OrderInterface) PickAndSetStatus(
	ctx context.Context, cursor domain.OrderCursor,
	task func(domain.Order) (domain.OrderStatus, error),
) (domain.OrderCursor, bool, error) {
	m.Calls.PickAndSetStatus = append(m.Calls.PickAndSetStatus, cursor)
	if m.Impl.PickAndSetStatus == nil {
		panic(errNotImplemented)
	}
	return m.Impl.PickAndSetStatus(ctx, cursor, task)
}

func (m *OrderInterface) PickAndNotify(
	ctx context.Context, cursor domain.OrderCursor,
	task func(domain.Order) error,
) (domain.OrderCursor, bool, error) {
	m.Calls.PickAndNotify = append(m.Calls.PickAndNotify, cursor)
	if m.Impl.PickAndNotify == nil {
		panic(errNotImplemented)
	}
	return m.Impl.PickAndNotify(ctx, cursor, task)
}

func (m *OrderInterface) Cancel(ctx context.Context, c domain.Cancellation) error {
	m.Calls.Cancel = append(m.Calls.Cancel, c)
	if m.Impl.Cancel == nil {
		panic(errNotImplemented)
	}
	return m.Impl.Cancel(ctx, c)
}

func (m *OrderInterface) Refund(ctx context.Context, r domain.AdminRefund, newStatus domain.OrderStatus) error {
	m.Calls.Refund = append(m.Calls.Refund, struct {
		Refund    domain.AdminRefund
		NewStatus domain.OrderStatus
	}{Refund: r, NewStatus: newStatus})
	if m.Impl.Refund == nil {
		panic(errNotImplemented)
	}
	return m.Impl.Refund(ctx, r, newStatus)
}

func (m *OrderInterface) Refunds(ctx context.Context, orderId string) ([]domain.AdminRefund, error) {
	m.Calls.Refunds = append(m.Calls.Refunds, orderId)
	if m.Impl.Refunds == nil {
		panic(errNotImplemented)
	}
	return m.Impl.Refunds(ctx, orderId)
}

func (m *OrderInterface) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	m.Calls.CountByStatus = append(m.Calls.CountByStatus, struct{}{})
	if m.Impl.CountByStatus == nil {
		panic(errNotImplemented)
	}
	return m.Impl.CountByStatus(ctx)
}

package mocks

import (
	"context"

	"github.com/cozyartz/etchNFT/pkg/domain"
	dbmock "github.com/cozyartz/etchNFT/pkg/domain/internal/db/mock"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
)

type PaymentEventInterface struct {
	Impl struct {
		Record         func(context.Context, domain.NewPaymentEvent) (domain.PaymentEvent, bool, error)
		Get            func(context.Context, int64) (domain.PaymentEvent, error)
		Find           func(context.Context, domain.EventFindQuery) ([]domain.PaymentEvent, error)
		Resolve        func(context.Context, int64, kdb.Decider) (domain.PaymentEvent, error)
		PickAndResolve func(context.Context, domain.EventCursor, kdb.Decider) (domain.EventCursor, bool, error)
		Requeue        func(context.Context, int64) (domain.PaymentEvent, error)
		CountByState   func(context.Context) (map[domain.EventState]int, error)
	}
	Calls struct {
		Record         dbmock.CallLog[domain.NewPaymentEvent]
		Get            dbmock.CallLog[int64]
		Find           dbmock.CallLog[domain.EventFindQuery]
		Resolve        dbmock.CallLog[int64]
		PickAndResolve dbmock.CallLog[domain.EventCursor]
		Requeue        dbmock.CallLog[int64]
		CountByState   dbmock.CallLog[struct{}]
	}
}

var _ kdb.PaymentEventInterface = &PaymentEventInterface{}

func NewPaymentEventInterface() *PaymentEventInterface {
	return &PaymentEventInterface{}
}

func (m *PaymentEventInterface) Record(ctx context.Context, ev domain.NewPaymentEvent) (domain.PaymentEvent, bool, error) {
	m.Calls.Record = append(m.Calls.Record, ev)
	if m.Impl.Record == nil {
		panic("it should not be called")
	}
	return m.Impl.Record(ctx, ev)
}

func (m *PaymentEventInterface) Get(ctx context.Context, id int64) (domain.PaymentEvent, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get == nil {
		panic("it should not be called")
	}
	return m.Impl.Get(ctx, id)
}

func (m *PaymentEventInterface) Find(ctx context.Context, query domain.EventFindQuery) ([]domain.PaymentEvent, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		panic("it should not be called")
	}
	return m.Impl.Find(ctx, query)
}

func (m *PaymentEventInterface) Resolve(ctx context.Context, id int64, decide kdb.Decider) (domain.PaymentEvent, error) {
	m.Calls.Resolve = append(m.Calls.Resolve, id)
	if m.Impl.Resolve == nil {
		panic("it should not be called")
	}
	return m.Impl.Resolve(ctx, id, decide)
}

func (m *PaymentEventInterface) PickAndResolve(ctx context.Context, cursor domain.EventCursor, decide kdb.Decider) (domain.EventCursor, bool, error) {
	m.Calls.PickAndResolve = append(m.Calls.PickAndResolve, cursor)
	if m.Impl.PickAndResolve == nil {
		panic("it should not be called")
	}
	return m.Impl.PickAndResolve(ctx, cursor, decide)
}

func (m *PaymentEventInterface) Requeue(ctx context.Context, id int64) (domain.PaymentEvent, error) {
	m.Calls.Requeue = append(m.Calls.Requeue, id)
	if m.Impl.Requeue == nil {
		panic("it should not be called")
	}
	return m.Impl.Requeue(ctx, id)
}

func (m *PaymentEventInterface) CountByState(ctx context.Context) (map[domain.EventState]int, error) {
	m.Calls.CountByState = append(m.Calls.CountByState, struct{}{})
	if m.Impl.CountByState == nil {
		panic("it should not be called")
	}
	return m.Impl.CountByState(ctx)
}

// Package reconcile decides how verified payment events move orders,
// and feeds events from webhooks into the payment event inbox.
package reconcile

import (
	"context"
	"fmt"

	"github.com/cozyartz/etchNFT/pkg/domain"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

// Decide is the kpayment.Decider applied to every payment event.
//
// - the signal has no target status: Ignore, whether orders match or not.
//
// - no orders match: Defer. The event may arrive before the checkout commits.
//
// - otherwise the target status is applied to every order which can move to it.
// When none can, the event is stale or regressive and is ignored.
func Decide(ev domain.PaymentEvent, orders []domain.Order) (domain.Verdict, error) {
	target, ok := ev.Signal.Target()
	if !ok {
		return domain.Verdict{
			Kind:   domain.Ignore,
			Reason: fmt.Sprintf("%s %s does not change orders", ev.Provider, ev.EventType),
		}, nil
	}

	if len(orders) == 0 {
		return domain.Verdict{
			Kind:   domain.Defer,
			Reason: fmt.Sprintf("no orders for %q (payment %q)", ev.OrderRef, ev.PaymentRef),
		}, nil
	}

	targets := []string{}
	for _, o := range orders {
		if domain.CanTransit(o.Status, target) {
			targets = append(targets, o.Id)
		}
	}
	if len(targets) == 0 {
		return domain.Verdict{
			Kind:   domain.Ignore,
			Reason: fmt.Sprintf("no orders can move to %s", target),
		}, nil
	}

	return domain.Verdict{Kind: domain.Apply, Status: target, Targets: targets}, nil
}

var _ kpayment.Decider = Decide

type Reconciler struct {
	events kpayment.PaymentEventInterface
}

func New(events kpayment.PaymentEventInterface) *Reconciler {
	return &Reconciler{events: events}
}

// Ingest records a verified event and tries to resolve it right away.
//
// A redelivered event is returned as recorded before, without resolving again.
// Events which cannot be resolved now stay in the inbox for the reconcile loop.
//
// # Returns
//
// - domain.PaymentEvent: the event, after resolution if any.
//
// - bool: true if the event is new.
//
// - error
func (r *Reconciler) Ingest(ctx context.Context, ev domain.NewPaymentEvent) (domain.PaymentEvent, bool, error) {
	recorded, isNew, err := r.events.Record(ctx, ev)
	if err != nil {
		return domain.PaymentEvent{}, false, xe.Wrap(err)
	}
	if !isNew {
		return recorded, false, nil
	}

	resolved, err := r.events.Resolve(ctx, recorded.Id, Decide)
	if err != nil {
		// recorded is durable; the loop picks it up later.
		return recorded, true, xe.Wrap(err)
	}
	return resolved, true, nil
}

// Next resolves one event due for an attempt. Used by the reconcile loop.
func (r *Reconciler) Next(ctx context.Context, cursor domain.EventCursor) (domain.EventCursor, bool, error) {
	return r.events.PickAndResolve(ctx, cursor, Decide)
}

// Requeue gives a dead or ignored event another chance.
func (r *Reconciler) Requeue(ctx context.Context, id int64) (domain.PaymentEvent, error) {
	return r.events.Requeue(ctx, id)
}

package db

import (
	"context"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

// Decider decides what an event means for the orders it refers to.
//
// Orders are locked while Decider runs. When it returns an error,
// the event is left untouched.
type Decider func(domain.PaymentEvent, []domain.Order) (domain.Verdict, error)

type PaymentEventInterface interface {
	// Record stores a verified provider event.
	//
	// Events are deduplicated by (provider, event id).
	//
	// # Returns
	//
	// - domain.PaymentEvent: the stored event. For a duplicated delivery, the event stored before.
	//
	// - bool: true if the event is new.
	//
	// - error
	Record(ctx context.Context, ev domain.NewPaymentEvent) (domain.PaymentEvent, bool, error)

	// Get an event by id.
	//
	// ErrMissing is returned when not found.
	Get(ctx context.Context, id int64) (domain.PaymentEvent, error)

	// Find events, newest first.
	Find(ctx context.Context, query domain.EventFindQuery) ([]domain.PaymentEvent, error)

	// Resolve applies the event to orders now, if it is still "received".
	//
	// The event and its orders are locked, passed to decide, and the verdict is
	// written in the same transaction:
	//
	// - Apply: targeted orders are moved to the status (guarded by domain.CanTransit),
	//   and the event becomes "applied". If no orders can be moved, "ignored".
	//
	// - Ignore: the event becomes "ignored".
	//
	// - Defer: attempts is counted up and the event is retried later.
	//   When the retry policy is exhausted, it becomes "dead".
	//
	// When the event is locked by others or is not "received", it is returned as is.
	Resolve(ctx context.Context, id int64, decide Decider) (domain.PaymentEvent, error)

	// PickAndResolve picks a "received" event due for an attempt and resolves it.
	//
	// # Returns
	//
	// - domain.EventCursor: cursor pointing the picked event.
	//
	// - bool: true if an event is picked.
	//
	// - error
	PickAndResolve(ctx context.Context, cursor domain.EventCursor, decide Decider) (domain.EventCursor, bool, error)

	// Requeue makes a "dead" or "ignored" event "received" again, with attempts reset.
	//
	// ErrMissing is returned when there are no such events to be requeued.
	Requeue(ctx context.Context, id int64) (domain.PaymentEvent, error)

	// CountByState returns the number of events per state.
	CountByState(ctx context.Context) (map[domain.EventState]int, error)
}

package reconcile

import (
	"context"

	"github.com/cozyartz/etchNFT/cmd/loops/recurring"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
	"github.com/cozyartz/etchNFT/pkg/reconcile"
)

// initial value for task
func Seed() domain.EventCursor {
	return domain.EventCursor{}
}

// Task resolves one payment event due for an attempt per run.
//
// Events which cannot be matched with orders yet are deferred by the inbox
// and picked again after their backoff.
func Task(events kpayment.PaymentEventInterface) recurring.Task[domain.EventCursor] {
	return func(ctx context.Context, cursor domain.EventCursor) (domain.EventCursor, bool, error) {
		next, picked, err := events.PickAndResolve(ctx, cursor, reconcile.Decide)
		if err != nil {
			return cursor, false, xe.Wrap(err)
		}
		return next, picked, nil
	}
}

package expire

import (
	"context"
	"time"

	"github.com/cozyartz/etchNFT/cmd/loops/recurring"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

// initial value for task.
//
// Args:
//
// - pendingTTL: orders pending longer than this are abandoned checkouts.
func Seed(pendingTTL time.Duration) domain.OrderCursor {
	return domain.OrderCursor{
		Status:    []domain.OrderStatus{domain.Pending},
		OlderThan: pendingTTL,
	}
}

// Task fails one abandoned checkout per run, and releases expired reservations of drop items.
func Task(
	orders korder.OrderInterface,
	drops kdrop.DropInterface,
	clock func() time.Time,
) recurring.Task[domain.OrderCursor] {
	return func(ctx context.Context, cursor domain.OrderCursor) (domain.OrderCursor, bool, error) {
		released, err := drops.ReleaseExpired(ctx, clock())
		if err != nil {
			return cursor, false, xe.Wrap(err)
		}

		next, picked, err := orders.PickAndSetStatus(
			ctx, cursor,
			func(o domain.Order) (domain.OrderStatus, error) {
				if o.Status != domain.Pending {
					return o.Status, nil
				}
				return domain.Failed, nil
			},
		)
		if err != nil {
			return cursor, 0 < released, xe.Wrap(err)
		}
		return next, picked || 0 < released, nil
	}
}

package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cozyartz/etchNFT/cmd/loops/hook"
	"github.com/cozyartz/etchNFT/cmd/loops/recurring"
	apiorders "github.com/cozyartz/etchNFT/pkg/api/types/orders"
	"github.com/cozyartz/etchNFT/pkg/domain"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

// initial value for task
func Seed() domain.OrderCursor {
	return domain.OrderCursor{
		Status:     []domain.OrderStatus{domain.Confirmed, domain.Paid},
		Unnotified: true,
	}
}

// Task passes one confirmed or paid order to the lifecycle hook per run.
//
// The order is marked notified only when both of Before and After succeed.
// An order whose hook fails stays unnotified, and is tried again when the cursor comes back.
func Task(
	orders korder.OrderInterface,
	h hook.Hook[apiorders.Notification, struct{}],
	clock func() time.Time,
) recurring.Task[domain.OrderCursor] {
	return func(ctx context.Context, cursor domain.OrderCursor) (domain.OrderCursor, bool, error) {
		next, picked, err := orders.PickAndNotify(
			ctx, cursor,
			func(o domain.Order) error {
				n := apiorders.ComposeNotification(o, clock())
				if _, err := h.Before(ctx, n); err != nil {
					return err
				}
				return h.After(ctx, n)
			},
		)

		if err != nil {
			if errors.Is(err, hook.ErrHookFailed) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return next, !cursor.Equal(next), nil
			}
			return next, false, xe.Wrap(err)
		}
		return next, picked, nil
	}
}

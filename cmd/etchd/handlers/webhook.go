package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	apiorders "github.com/cozyartz/etchNFT/pkg/api/types/orders"
	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/reconcile"
)

// MaxWebhookBody is the largest webhook payload accepted.
const MaxWebhookBody = 1 << 20

// Inbox takes verified payment events. It is satisfied by *reconcile.Reconciler.
type Inbox interface {
	Ingest(ctx context.Context, ev domain.NewPaymentEvent) (domain.PaymentEvent, bool, error)
}

var _ Inbox = &reconcile.Reconciler{}

// WebhookHandler verifies a delivery of the provider and puts it into the inbox.
//
// Once an event is recorded, the delivery is answered 200 even if it cannot be applied yet;
// the reconcile loop retries it. Redeliveries are answered 200 without applying again.
func WebhookHandler(hook payments.Webhook, inbox Inbox) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		body, err := io.ReadAll(io.LimitReader(req.Body, MaxWebhookBody+1))
		if err != nil {
			return apierr.BadRequest("failed to read body", err)
		}
		if MaxWebhookBody < len(body) {
			return apierr.NewErrorMessage(http.StatusRequestEntityTooLarge, "payload is too large")
		}

		ctx := req.Context()
		if err := hook.Verify(ctx, req.Header, body); err != nil {
			switch {
			case errors.Is(err, payments.ErrNotConfigured):
				return apierr.NewErrorMessage(
					http.StatusInternalServerError, "webhook secret is not configured",
					apierr.WithError(err),
				)
			case errors.Is(err, payments.ErrMissingSignature):
				return apierr.BadRequest("signature header is required", err)
			case errors.Is(err, payments.ErrInvalidSignature):
				return apierr.Unauthorized("", err)
			}
			return apierr.InternalServerError(err)
		}

		ev, err := hook.Parse(body)
		if err != nil {
			return apierr.BadRequest("unexpected payload", err)
		}

		recorded, isNew, err := inbox.Ingest(ctx, ev)
		if err != nil {
			if !isNew {
				// not recorded. the provider should deliver it again.
				return apierr.InternalServerError(err)
			}
			c.Logger().Warnf(
				"%s event %s is recorded but not applied yet: %+v",
				hook.Provider(), ev.EventId, err,
			)
		}

		return c.JSON(http.StatusOK, apiorders.WebhookAck{
			Received:  true,
			EventId:   ev.EventId,
			State:     recorded.State.String(),
			Duplicate: !isNew,
		})
	}
}

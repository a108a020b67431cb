package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apiadmin "github.com/cozyartz/etchNFT/pkg/api/types/admin"
	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	apiorders "github.com/cozyartz/etchNFT/pkg/api/types/orders"
	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/domain"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	"github.com/cozyartz/etchNFT/pkg/refund"
	"github.com/cozyartz/etchNFT/pkg/utils"
	kstrings "github.com/cozyartz/etchNFT/pkg/utils/strings"
)

// Refunder is satisfied by *refund.Service.
type Refunder interface {
	Eligibility(ctx context.Context, orderId string) (refund.Eligibility, error)
	Refund(ctx context.Context, req refund.RefundRequest) (refund.RefundResult, error)
}

var _ Refunder = &refund.Service{}

// AdminFindOrdersHandler lists orders. Query: status (comma separated), email, checkoutId, limit, offset.
func AdminFindOrdersHandler(orders korder.OrderInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset, err := page(c)
		if err != nil {
			return err
		}
		status, err := utils.MapUntilError(
			kstrings.SplitIfNotEmpty(c.QueryParam("status"), ","), domain.AsOrderStatus,
		)
		if err != nil {
			return apierr.BadRequest(`"status" should be order statuses separated by ","`, err)
		}

		found, err := orders.Find(c.Request().Context(), domain.OrderFindQuery{
			Email:      c.QueryParam("email"),
			CheckoutId: c.QueryParam("checkoutId"),
			Status:     status,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(found, apiorders.ComposeDetail))
	}
}

func EligibilityHandler(service Refunder, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		e, err := service.Eligibility(c.Request().Context(), c.Param(param))
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiorders.ComposeEligibility(e))
	}
}

// RefundHandler refunds the order by the signed in admin.
//
// When the provider fails, the order becomes refund_failed and it answers 500.
func RefundHandler(service Refunder, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apiorders.RefundRequest](c)
		if err != nil {
			return err
		}
		if req.Reason == "" {
			return apierr.BadRequest(`"reason" is required`, nil)
		}

		adminId := ""
		if p, ok := auth.PrincipalOf(c); ok {
			adminId = p.User.Id
		}
		orderId := c.Param(param)
		result, err := service.Refund(c.Request().Context(), refund.RefundRequest{
			OrderId: orderId,
			Amount:  req.Amount,
			Reason:  req.Reason,
			AdminId: adminId,
		})
		if err != nil && !errors.Is(err, refund.ErrRefundFailed) {
			return asHTTPError(err)
		}

		audited(c, auditor, "refund", "orders", orderId, map[string]any{
			"amount":       result.Amount.StringFixed(2),
			"reason":       req.Reason,
			"refundMethod": string(result.RefundMethod),
			"refundStatus": string(result.RefundState),
		})
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiorders.ComposeRefund(result))
	}
}

// fulfilment statuses admins move orders to.
var fulfilment = map[domain.OrderStatus]struct{}{
	domain.Processing:   {},
	domain.InProduction: {},
	domain.Etched:       {},
	domain.Shipped:      {},
}

func setStatus(c echo.Context, orders korder.OrderInterface, auditor *auth.Auditor, id string, status domain.OrderStatus) error {
	ctx := c.Request().Context()
	before, err := getOrder(ctx, orders, id)
	if err != nil {
		return err
	}
	if err := orders.SetStatus(ctx, []string{id}, status); err != nil {
		return asHTTPError(err)
	}
	audited(c, auditor, "update_status", "orders", id, map[string]any{
		"from": before.Status.String(),
		"to":   status.String(),
	})

	after, err := getOrder(ctx, orders, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiorders.ComposeDetail(after))
}

// StatusHandler advances fulfilment of the order: processing, in_production, etched or shipped.
func StatusHandler(orders korder.OrderInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apiorders.StatusChange](c)
		if err != nil {
			return err
		}
		status, err := domain.AsOrderStatus(req.Status)
		if _, ok := fulfilment[status]; err != nil || !ok {
			return apierr.BadRequest(
				`"status" should be one of "processing", "in_production", "etched" or "shipped"`, err,
			)
		}
		return setStatus(c, orders, auditor, c.Param(param), status)
	}
}

func MarkEtchedHandler(orders korder.OrderInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return setStatus(c, orders, auditor, c.Param(param), domain.Etched)
	}
}

// FindEventsHandler lists payment events. Query: provider, state (comma separated), orderRef, limit, offset.
func FindEventsHandler(events kpayment.PaymentEventInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset, err := page(c)
		if err != nil {
			return err
		}
		providers, err := utils.MapUntilError(
			kstrings.SplitIfNotEmpty(c.QueryParam("provider"), ","), domain.AsProvider,
		)
		if err != nil {
			return apierr.BadRequest(`"provider" should be providers separated by ","`, err)
		}
		states, err := utils.MapUntilError(
			kstrings.SplitIfNotEmpty(c.QueryParam("state"), ","), domain.AsEventState,
		)
		if err != nil {
			return apierr.BadRequest(`"state" should be "received", "applied", "ignored" or "dead"`, err)
		}

		found, err := events.Find(c.Request().Context(), domain.EventFindQuery{
			Provider: providers,
			State:    states,
			OrderRef: c.QueryParam("orderRef"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(found, apiadmin.ComposePaymentEvent))
	}
}

// Requeuer is satisfied by *reconcile.Reconciler.
type Requeuer interface {
	Requeue(ctx context.Context, id int64) (domain.PaymentEvent, error)
}

// RequeueEventHandler gives a dead or ignored event another chance.
func RequeueEventHandler(requeuer Requeuer, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Param(param)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apierr.BadRequest("event id should be an integer", err)
		}
		ev, err := requeuer.Requeue(c.Request().Context(), id)
		if err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "requeue", "payment_events", raw, map[string]any{
			"provider": ev.Provider.String(),
			"eventId":  ev.EventId,
		})
		return c.JSON(http.StatusOK, apiadmin.ComposePaymentEvent(ev))
	}
}

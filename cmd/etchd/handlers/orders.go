package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/labstack/echo/v4"

	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	apiorders "github.com/cozyartz/etchNFT/pkg/api/types/orders"
	"github.com/cozyartz/etchNFT/pkg/certificate"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	"github.com/cozyartz/etchNFT/pkg/refund"
	"github.com/cozyartz/etchNFT/pkg/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// page reads "limit" and "offset" query parameters.
func page(c echo.Context) (limit int, offset int, err error) {
	limit = defaultPageSize
	if l := c.QueryParam("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit <= 0 {
			return 0, 0, apierr.BadRequest(`"limit" should be a positive integer`, err)
		}
		if maxPageSize < limit {
			limit = maxPageSize
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		offset, err = strconv.Atoi(o)
		if err != nil || offset < 0 {
			return 0, 0, apierr.BadRequest(`"offset" should be a non-negative integer`, err)
		}
	}
	return limit, offset, nil
}

func getOrder(ctx context.Context, orders korder.OrderInterface, id string) (domain.Order, error) {
	found, err := orders.Get(ctx, []string{id})
	if err != nil {
		return domain.Order{}, apierr.InternalServerError(err)
	}
	o, ok := found[id]
	if !ok {
		return domain.Order{}, apierr.NotFound()
	}
	return o, nil
}

// FindOrdersHandler lists orders of the customer e-mail, newest first.
func FindOrdersHandler(orders korder.OrderInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		email := c.QueryParam("email")
		if _, err := mail.ParseAddress(email); email == "" || err != nil {
			return apierr.BadRequest(`"email" should be an e-mail address`, err)
		}
		limit, offset, err := page(c)
		if err != nil {
			return err
		}

		found, err := orders.Find(c.Request().Context(), domain.OrderFindQuery{
			Email: email, Limit: limit, Offset: offset,
		})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(found, apiorders.ComposeSummary))
	}
}

func GetOrderHandler(orders korder.OrderInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		o, err := getOrder(c.Request().Context(), orders, c.Param(param))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, apiorders.ComposeDetail(o))
	}
}

// Canceller is satisfied by *refund.Service.
type Canceller interface {
	Cancel(ctx context.Context, req refund.CancelRequest) (refund.CancelResult, error)
}

var _ Canceller = &refund.Service{}

// CancelOrderHandler cancels the order for the customer and starts the refund.
func CancelOrderHandler(service Canceller, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apiorders.CancelRequest](c)
		if err != nil {
			return err
		}

		result, err := service.Cancel(c.Request().Context(), refund.CancelRequest{
			OrderId: c.Param(param),
			Wallet:  req.Wallet,
			Reason:  req.Reason,
		})
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiorders.ComposeCancel(result))
	}
}

// CertHandler draws the certificate of the order.
//
// Orders not paid yet have no certificate.
func CertHandler(orders korder.OrderInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		o, err := getOrder(c.Request().Context(), orders, c.Param(param))
		if err != nil {
			return err
		}
		switch o.Status {
		case domain.Pending, domain.Failed:
			return apierr.NewErrorMessage(
				http.StatusNotFound, "not found",
				apierr.WithAdvice("certificates are issued for placed orders"),
				apierr.WithError(fmt.Errorf("%w: order %s is %s", kerr.ErrMissing, o.Id, o.Status)),
			)
		}
		c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		return c.Blob(http.StatusOK, certificate.ContentType, certificate.SVG(o))
	}
}

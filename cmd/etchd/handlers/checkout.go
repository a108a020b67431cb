package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	apiorders "github.com/cozyartz/etchNFT/pkg/api/types/orders"
	"github.com/cozyartz/etchNFT/pkg/checkout"
	"github.com/cozyartz/etchNFT/pkg/domain"
)

// Checkouter is what checkout handlers need. It is satisfied by *checkout.Service.
type Checkouter interface {
	Checkout(ctx context.Context, cart checkout.Cart, pay checkout.Payment) (checkout.Result, error)
	Capture(ctx context.Context, paypalOrderId string) (checkout.Result, error)
}

var _ Checkouter = &checkout.Service{}

// CheckoutHandler places orders of a cart and pays them by method.
//
// Card and wallet payments answer 200 with settled orders.
// PayPal and crypto payments answer 201 with the URL where the customer pays.
func CheckoutHandler(service Checkouter, method domain.PaymentMethod) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apiorders.CheckoutRequest](c)
		if err != nil {
			return err
		}
		cart, pay, err := req.Cart(method)
		if err != nil {
			return apierr.BadRequest(err.Error(), err)
		}

		result, err := service.Checkout(c.Request().Context(), cart, pay)
		if err != nil {
			return asHTTPError(err)
		}

		code := http.StatusOK
		if result.RedirectURL != "" {
			code = http.StatusCreated
		}
		return c.JSON(code, apiorders.ComposeCheckout(result))
	}
}

// CaptureHandler captures a PayPal order approved by the customer.
func CaptureHandler(service Checkouter) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apiorders.CaptureRequest](c)
		if err != nil {
			return err
		}
		if req.PayPalOrderId == "" {
			return apierr.BadRequest(`"paypalOrderId" is required`, nil)
		}

		result, err := service.Capture(c.Request().Context(), req.PayPalOrderId)
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiorders.ComposeCheckout(result))
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	"github.com/cozyartz/etchNFT/pkg/checkout"
	kerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	"github.com/cozyartz/etchNFT/pkg/nft"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/payments/web3"
	"github.com/cozyartz/etchNFT/pkg/refund"
)

// asHTTPError maps errors of services to HTTP errors.
//
// Errors not known here are 500.
func asHTTPError(err error) *echo.HTTPError {
	if he := new(echo.HTTPError); errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, kerr.ErrMissing):
		return apierr.NewErrorMessage(http.StatusNotFound, "not found", apierr.WithError(err))
	case errors.Is(err, checkout.ErrInvalidCart):
		return apierr.BadRequest(err.Error(), err)
	case errors.Is(err, web3.ErrInvalidAddress),
		errors.Is(err, nft.ErrInvalidAddress):
		return apierr.BadRequest("wallet address should be 0x followed by 40 hex digits", err)
	case errors.Is(err, web3.ErrStale):
		return apierr.BadRequest("sign the order again", err)
	case errors.Is(err, web3.ErrInvalidSignature),
		errors.Is(err, web3.ErrSignerMismatch):
		return apierr.Unauthorized("sign the order with the wallet of the customer", err)
	case errors.Is(err, payments.ErrDeclined):
		return apierr.PaymentRequired("try another payment method", err)
	case errors.Is(err, payments.ErrNotConfigured):
		return apierr.ServiceUnavailable("the payment method is not available now", err)
	case errors.Is(err, kerr.ErrNotPurchasable):
		return apierr.Conflict("the item is not purchasable", apierr.WithError(err))
	case errors.Is(err, kerr.ErrConflict):
		return apierr.Conflict("conflict", apierr.WithError(err))
	case errors.Is(err, kerr.ErrInvalidOrderStateChanging):
		return apierr.Conflict("the order cannot be changed to the status", apierr.WithError(err))
	case errors.Is(err, kerr.ErrNotOwner):
		return apierr.Forbidden("cancel with the wallet which placed the order", err)
	case errors.Is(err, kerr.ErrNotEligible):
		return apierr.BadRequest(err.Error(), err)
	case errors.Is(err, refund.ErrInvalidAmount):
		return apierr.BadRequest("amount should be more than 0 and not more than the price", err)
	case errors.Is(err, refund.ErrRefundFailed):
		return apierr.NewErrorMessage(
			http.StatusInternalServerError, "refund failed",
			apierr.WithAdvice("refund it manually at the provider"), apierr.WithError(err),
		)
	case errors.Is(err, kerr.ErrSystemRole):
		return apierr.Forbidden("system roles cannot be changed", err)
	case errors.Is(err, kerr.ErrRoleInUse):
		return apierr.Conflict("the role is granted to users", apierr.WithAdvice("revoke it first"), apierr.WithError(err))
	}
	return apierr.InternalServerError(err)
}

func bind[T any](c echo.Context) (T, error) {
	v := new(T)
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return *v, apierr.BadRequest("request body should be JSON", err)
	}
	return *v, nil
}

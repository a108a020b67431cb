// Package errors builds the error bodies of the storefront API.
//
// Every error is answered as
//
//	{"message": {"reason": "...", "advice": "..."}}
//
// where advice may be omitted. Causes are logged but never sent to clients.
package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Message ErrorMessage `json:"message"`
}

type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
	Cause  error  `json:"-"`
}

func (e ErrorMessage) Error() string {
	b := new(strings.Builder)
	b.WriteString(e.Reason)
	if e.Advice != "" {
		fmt.Fprintf(b, " (%s)", e.Advice)
	}
	if e.Cause != nil {
		fmt.Fprintf(b, ": %s", e.Cause)
	}
	return b.String()
}

func (e ErrorMessage) Unwrap() error {
	return e.Cause
}

type ErrorMessageOption func(*ErrorMessage)

// WithAdvice tells clients what to do. Empty advice is ignored.
func WithAdvice(advice string) ErrorMessageOption {
	return func(m *ErrorMessage) {
		if advice != "" {
			m.Advice = advice
		}
	}
}

// WithError records the cause for logs. Nil is ignored.
func WithError(err error) ErrorMessageOption {
	return func(m *ErrorMessage) {
		if err != nil {
			m.Cause = err
		}
	}
}

// NewErrorMessage makes an *echo.HTTPError with the API error body.
//
// The message is set as Internal, so the error handler logs its cause.
func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := ErrorMessage{Reason: reason}
	for _, opt := range opts {
		opt(&msg)
	}
	return echo.NewHTTPError(code, ErrorResponse{Message: msg}).SetInternal(msg)
}

func withReason(code int, reason string) func(advice string, err error) *echo.HTTPError {
	return func(advice string, err error) *echo.HTTPError {
		return NewErrorMessage(code, reason, WithAdvice(advice), WithError(err))
	}
}

var (
	badRequest         = withReason(http.StatusBadRequest, "bad request")
	unauthorized       = withReason(http.StatusUnauthorized, "unauthorized")
	paymentRequired    = withReason(http.StatusPaymentRequired, "payment declined")
	forbidden          = withReason(http.StatusForbidden, "forbidden")
	serviceUnavailable = withReason(http.StatusServiceUnavailable, "service unavailable temporarily")
)

func BadRequest(advice string, err error) *echo.HTTPError   { return badRequest(advice, err) }
func Unauthorized(advice string, err error) *echo.HTTPError { return unauthorized(advice, err) }
func Forbidden(advice string, err error) *echo.HTTPError    { return forbidden(advice, err) }

// PaymentRequired is for payments declined by providers.
func PaymentRequired(advice string, err error) *echo.HTTPError { return paymentRequired(advice, err) }

// ServiceUnavailable is for dependencies (database, providers) being down.
func ServiceUnavailable(advice string, err error) *echo.HTTPError {
	return serviceUnavailable(advice, err)
}

func NotFound() *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, "not found")
}

func Conflict(reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, reason, opts...)
}

// InternalServerError hides err from clients.
func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusInternalServerError, "unexpected error", WithError(err))
}

func TooManyRequests(advice string) *echo.HTTPError {
	return NewErrorMessage(http.StatusTooManyRequests, "rate limit exceeded", WithAdvice(advice))
}

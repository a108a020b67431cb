package handlers_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/checkout"
	"github.com/cozyartz/etchNFT/pkg/domain"
	rbacmock "github.com/cozyartz/etchNFT/pkg/domain/rbac/db/mock"
	"github.com/cozyartz/etchNFT/pkg/refund"
)

var sessionSecret = []byte("0123456789abcdef0123456789abcdef")

// asAdmin calls h as the user signed in with permissions, through auth.Authenticate.
func asAdmin(t *testing.T, c echo.Context, user domain.User, perms []domain.Permission, h echo.HandlerFunc) error {
	t.Helper()
	sessions := auth.NewSessions(sessionSecret, time.Hour, false)
	token, exp, err := sessions.Issue(user)
	if err != nil {
		t.Fatal(err)
	}
	c.Request().AddCookie(sessions.Cookie(token, exp))

	rbac := rbacmock.NewRBACInterface()
	rbac.Impl.User = func(context.Context, string) (domain.User, error) { return user, nil }
	rbac.Impl.PermissionsOf = func(context.Context, string) (domain.PermissionSet, error) {
		return domain.NewPermissionSet(perms...), nil
	}
	return auth.Authenticate(sessions, rbac)(h)(c)
}

var admin = domain.User{Id: "user_admin", Email: "admin@example.com", Status: domain.UserActive}

// auditLog accepts every audit entry.
func auditLog() *rbacmock.AuditInterface {
	audit := rbacmock.NewAuditInterface()
	audit.Impl.Record = func(context.Context, domain.AuditEntry) error { return nil }
	return audit
}

type fakeCheckout struct {
	checkout func(checkout.Cart, checkout.Payment) (checkout.Result, error)
	capture  func(string) (checkout.Result, error)

	carts    []checkout.Cart
	payments []checkout.Payment
}

func (f *fakeCheckout) Checkout(_ context.Context, cart checkout.Cart, pay checkout.Payment) (checkout.Result, error) {
	f.carts = append(f.carts, cart)
	f.payments = append(f.payments, pay)
	return f.checkout(cart, pay)
}

func (f *fakeCheckout) Capture(_ context.Context, id string) (checkout.Result, error) {
	return f.capture(id)
}

type fakeRefunds struct {
	cancel      func(refund.CancelRequest) (refund.CancelResult, error)
	eligibility func(string) (refund.Eligibility, error)
	refund      func(refund.RefundRequest) (refund.RefundResult, error)

	cancelled []refund.CancelRequest
	refunded  []refund.RefundRequest
}

func (f *fakeRefunds) Cancel(_ context.Context, req refund.CancelRequest) (refund.CancelResult, error) {
	f.cancelled = append(f.cancelled, req)
	return f.cancel(req)
}

func (f *fakeRefunds) Eligibility(_ context.Context, id string) (refund.Eligibility, error) {
	return f.eligibility(id)
}

func (f *fakeRefunds) Refund(_ context.Context, req refund.RefundRequest) (refund.RefundResult, error) {
	f.refunded = append(f.refunded, req)
	return f.refund(req)
}

type fakeInbox struct {
	ingest   func(domain.NewPaymentEvent) (domain.PaymentEvent, bool, error)
	ingested []domain.NewPaymentEvent
}

func (f *fakeInbox) Ingest(_ context.Context, ev domain.NewPaymentEvent) (domain.PaymentEvent, bool, error) {
	f.ingested = append(f.ingested, ev)
	return f.ingest(ev)
}

// code of the error returned by a handler.
func codeOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("error is not *echo.HTTPError: %#v", err)
	}
	return he.Code
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	v := new(T)
	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Fatalf("response is not JSON: %s (%s)", err, resp.Body.String())
	}
	return *v
}

func assertStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Errorf("status code = %d, want %d (body: %s)", resp.Code, want, resp.Body.String())
	}
}

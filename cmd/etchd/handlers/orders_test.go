package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/cmd/etchd/handlers"
	httptestutil "github.com/cozyartz/etchNFT/internal/testutils/http"
	apiorders "github.com/cozyartz/etchNFT/pkg/api/types/orders"
	"github.com/cozyartz/etchNFT/pkg/certificate"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	ordermock "github.com/cozyartz/etchNFT/pkg/domain/order/db/mock"
	"github.com/cozyartz/etchNFT/pkg/refund"
)

func paidOrder(id string, status domain.OrderStatus) domain.Order {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Order{
		OrderBody: domain.OrderBody{
			Id: id, CheckoutId: "etch_1", Method: domain.Card,
			Customer: domain.Customer{Email: "alice@example.com", Name: "Alice"},
			Item: domain.Item{
				Kind: domain.NFT, Name: "Punk #1", TokenId: "1",
				Contract: "0xb47e3cd837dDF8e4c57F05d70Ab865de6e193BBB", Chain: "ethereum",
			},
			Price: decimal.NewFromInt(45),
		},
		Status:     status,
		PaymentRef: "pay-1",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func ordersReturning(found ...domain.Order) *ordermock.OrderInterface {
	orders := ordermock.NewOrderInterface()
	orders.Impl.Get = func(_ context.Context, ids []string) (map[string]domain.Order, error) {
		ret := map[string]domain.Order{}
		for _, o := range found {
			for _, id := range ids {
				if o.Id == id {
					ret[id] = o
				}
			}
		}
		return ret, nil
	}
	return orders
}

func withParam(c echo.Context, name, value string) echo.Context {
	c.SetParamNames(name)
	c.SetParamValues(value)
	return c
}

func TestFindOrdersHandler(t *testing.T) {
	t.Run("it lists orders of the e-mail", func(t *testing.T) {
		orders := ordermock.NewOrderInterface()
		orders.Impl.Find = func(context.Context, domain.OrderFindQuery) ([]domain.Order, error) {
			return []domain.Order{paidOrder("etch_1_0", domain.Paid), paidOrder("etch_1_1", domain.Shipped)}, nil
		}

		e := echo.New()
		c, resp := httptestutil.Get(e, "/api/orders?email=alice@example.com&limit=500&offset=10")
		if err := handlers.FindOrdersHandler(orders)(c); err != nil {
			t.Fatal(err)
		}
		assertStatus(t, resp, http.StatusOK)

		q := orders.Calls.Find.Last()
		if q.Email != "alice@example.com" || q.Limit != 100 || q.Offset != 10 {
			t.Errorf("unexpected query: %+v", q)
		}
		got := decode[[]apiorders.Summary](t, resp)
		if len(got) != 2 || got[0].OrderId != "etch_1_0" || got[1].Status != "shipped" {
			t.Errorf("unexpected response: %+v", got)
		}
	})

	for name, target := range map[string]string{
		"no email":       "/api/orders",
		"broken email":   "/api/orders?email=alice",
		"negative limit": "/api/orders?email=alice@example.com&limit=-1",
		"broken offset":  "/api/orders?email=alice@example.com&offset=x",
	} {
		t.Run(name+" is 400", func(t *testing.T) {
			orders := ordermock.NewOrderInterface()
			e := echo.New()
			c, _ := httptestutil.Get(e, target)
			err := handlers.FindOrdersHandler(orders)(c)
			if got := codeOf(t, err); got != http.StatusBadRequest {
				t.Errorf("status code = %d", got)
			}
			if orders.Calls.Find.Times() != 0 {
				t.Error("Find should not be called")
			}
		})
	}
}

func TestGetOrderHandler(t *testing.T) {
	orders := ordersReturning(paidOrder("etch_1_0", domain.Paid))

	t.Run("it returns the order", func(t *testing.T) {
		e := echo.New()
		c, resp := httptestutil.Get(e, "/api/orders/etch_1_0")
		if err := handlers.GetOrderHandler(orders, "orderId")(withParam(c, "orderId", "etch_1_0")); err != nil {
			t.Fatal(err)
		}
		assertStatus(t, resp, http.StatusOK)
		got := decode[apiorders.Detail](t, resp)
		if got.OrderId != "etch_1_0" || got.Customer.Email != "alice@example.com" || got.PaymentRef != "pay-1" {
			t.Errorf("unexpected response: %+v", got)
		}
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/orders/etch_9_0")
		err := handlers.GetOrderHandler(orders, "orderId")(withParam(c, "orderId", "etch_9_0"))
		if got := codeOf(t, err); got != http.StatusNotFound {
			t.Errorf("status code = %d", got)
		}
	})
}

func TestCancelOrderHandler(t *testing.T) {
	type When struct {
		result refund.CancelResult
		err    error
	}
	type Then struct {
		code int
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			service := &fakeRefunds{
				cancel: func(refund.CancelRequest) (refund.CancelResult, error) {
					return when.result, when.err
				},
			}
			e := echo.New()
			c, resp := httptestutil.Post(
				e, "/api/orders/etch_1_0/cancel",
				strings.NewReader(`{"wallet": "0x52908400098527886E0F7030069857D2E4169EE7", "reason": "changed my mind"}`),
				httptestutil.ContentType(echo.MIMEApplicationJSON),
			)
			err := handlers.CancelOrderHandler(service, "orderId")(withParam(c, "orderId", "etch_1_0"))

			if len(service.cancelled) != 1 {
				t.Fatalf("Cancel is called %d times", len(service.cancelled))
			}
			req := service.cancelled[0]
			if req.OrderId != "etch_1_0" || req.Reason != "changed my mind" ||
				req.Wallet != "0x52908400098527886E0F7030069857D2E4169EE7" {
				t.Errorf("unexpected request: %+v", req)
			}

			if then.code != http.StatusOK {
				if got := codeOf(t, err); got != then.code {
					t.Errorf("status code = %d, want %d", got, then.code)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			assertStatus(t, resp, http.StatusOK)
			got := decode[apiorders.CancelResponse](t, resp)
			if got.Kind != string(when.result.Kind) || got.RefundMethod != string(when.result.RefundMethod) {
				t.Errorf("unexpected response: %+v", got)
			}
			if !got.Amount.Equal(when.result.Amount) {
				t.Errorf("refund amount = %s, want %s", got.Amount, when.result.Amount)
			}
		}
	}

	t.Run("a cancelled order answers the refund", theory(
		When{result: refund.CancelResult{
			Order:        paidOrder("etch_1_0", domain.Cancelled),
			Kind:         domain.StandardCancel,
			RefundMethod: domain.RefundBySquare,
			RefundRef:    "refund-1",
			RefundState:  domain.RefundStatePending,
			Amount:       decimal.NewFromInt(45),
		}},
		Then{code: http.StatusOK},
	))
	t.Run("someone else's order is 403", theory(
		When{err: fmt.Errorf("%w: etch_1_0", kerr.ErrNotOwner)},
		Then{code: http.StatusForbidden},
	))
	t.Run("an order out of the window is 400", theory(
		When{err: fmt.Errorf("%w: placed 3 days ago", kerr.ErrNotEligible)},
		Then{code: http.StatusBadRequest},
	))
	t.Run("unknown order is 404", theory(
		When{err: kerr.ErrMissing},
		Then{code: http.StatusNotFound},
	))
	t.Run("unexpected error is 500", theory(
		When{err: errors.New("fake")},
		Then{code: http.StatusInternalServerError},
	))
}

func TestCertHandler(t *testing.T) {
	orders := ordersReturning(
		paidOrder("etch_1_0", domain.Paid),
		paidOrder("etch_1_1", domain.Pending),
		paidOrder("etch_1_2", domain.Failed),
	)

	t.Run("it draws the certificate of a paid order", func(t *testing.T) {
		e := echo.New()
		c, resp := httptestutil.Get(e, "/cert/etch_1_0")
		if err := handlers.CertHandler(orders, "orderId")(withParam(c, "orderId", "etch_1_0")); err != nil {
			t.Fatal(err)
		}
		assertStatus(t, resp, http.StatusOK)
		if got := resp.Header().Get(echo.HeaderContentType); got != certificate.ContentType {
			t.Errorf("content type = %s", got)
		}
		if got := resp.Header().Get("Cache-Control"); got != "public, max-age=3600" {
			t.Errorf("cache control = %s", got)
		}
		body := resp.Body.String()
		if !strings.HasPrefix(strings.TrimSpace(body), "<svg") || !strings.Contains(body, "Punk #1") {
			t.Errorf("not a certificate: %s", body)
		}
	})

	for _, id := range []string{"etch_1_1", "etch_1_2", "etch_9_9"} {
		t.Run("no certificate for "+id, func(t *testing.T) {
			e := echo.New()
			c, _ := httptestutil.Get(e, "/cert/"+id)
			err := handlers.CertHandler(orders, "orderId")(withParam(c, "orderId", id))
			if got := codeOf(t, err); got != http.StatusNotFound {
				t.Errorf("status code = %d", got)
			}
		})
	}
}

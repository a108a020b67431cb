package paypal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/payments/paypal"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

// fakePayPal serves the OAuth token endpoint and the given routes.
func fakePayPal(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "token", "token_type": "Bearer", "expires_in": 3600}`))
	})
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestClient_CreateOrder(t *testing.T) {
	server := fakePayPal(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer token" {
				t.Errorf("unexpected authorization: %s", r.Header.Get("Authorization"))
			}
			body := struct {
				Intent        string `json:"intent"`
				PurchaseUnits []struct {
					CustomId string `json:"custom_id"`
					Amount   struct {
						Currency string `json:"currency_code"`
						Value    string `json:"value"`
					} `json:"amount"`
				} `json:"purchase_units"`
			}{}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Intent != "CAPTURE" || len(body.PurchaseUnits) != 1 ||
				body.PurchaseUnits[0].CustomId != "checkout_1" || body.PurchaseUnits[0].Amount.Value != "45.00" {
				t.Errorf("unexpected body: %+v", body)
			}
			respond(w, http.StatusCreated, `{"id": "PP-1", "status": "CREATED", "links": [
				{"href": "https://api.paypal.com/v2/checkout/orders/PP-1", "rel": "self"},
				{"href": "https://www.paypal.com/checkoutnow?token=PP-1", "rel": "approve"}]}`)
		},
	})

	testee := try.To(paypal.New(paypal.Config{ClientId: "id", Secret: "secret", BaseURL: server.URL})).OrFatal(t)
	got, err := testee.CreateOrder(context.Background(), paypal.OrderRequest{
		CheckoutId: "checkout_1", Amount: decimal.RequireFromString("45"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Id != "PP-1" || got.ApprovalURL != "https://www.paypal.com/checkoutnow?token=PP-1" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestClient_CaptureOrder(t *testing.T) {
	server := fakePayPal(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/PP-1/capture": func(w http.ResponseWriter, r *http.Request) {
			respond(w, http.StatusCreated, `{"id": "PP-1", "status": "COMPLETED", "purchase_units": [
				{"reference_id": "checkout_1", "payments": {"captures": [
					{"id": "CAP-1", "status": "COMPLETED", "amount": {"currency_code": "USD", "value": "45.00"}}]}}]}`)
		},
		"/v2/checkout/orders/PP-2/capture": func(w http.ResponseWriter, r *http.Request) {
			respond(w, http.StatusUnprocessableEntity, `{"name": "UNPROCESSABLE_ENTITY", "message": "order not approved"}`)
		},
	})
	testee := try.To(paypal.New(paypal.Config{ClientId: "id", Secret: "secret", BaseURL: server.URL})).OrFatal(t)

	t.Run("approved order is captured", func(t *testing.T) {
		got, err := testee.CaptureOrder(context.Background(), "PP-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.CaptureId != "CAP-1" || !got.Completed() || !got.Amount.Equal(decimal.RequireFromString("45")) {
			t.Errorf("unexpected capture: %+v", got)
		}
	})

	t.Run("unapproved order is declined", func(t *testing.T) {
		if _, err := testee.CaptureOrder(context.Background(), "PP-2"); !errors.Is(err, payments.ErrDeclined) {
			t.Errorf("got %v, want ErrDeclined", err)
		}
	})
}

func TestClient_RefundCapture(t *testing.T) {
	server := fakePayPal(t, map[string]http.HandlerFunc{
		"/v2/payments/captures/CAP-1/refund": func(w http.ResponseWriter, r *http.Request) {
			respond(w, http.StatusCreated, `{"id": "REF-1", "status": "COMPLETED"}`)
		},
	})
	testee := try.To(paypal.New(paypal.Config{ClientId: "id", Secret: "secret", BaseURL: server.URL})).OrFatal(t)

	got, err := testee.RefundCapture(context.Background(), "CAP-1", decimal.RequireFromString("10"), "damaged")
	if err != nil {
		t.Fatal(err)
	}
	if got.Id != "REF-1" || got.Pending() {
		t.Errorf("unexpected refund: %+v", got)
	}
}

func TestWebhook_Verify(t *testing.T) {
	signed := http.Header{}
	signed.Set("PAYPAL-TRANSMISSION-ID", "t-1")
	signed.Set("PAYPAL-TRANSMISSION-TIME", "2024-01-01T00:00:00Z")
	signed.Set("PAYPAL-TRANSMISSION-SIG", "sig")
	signed.Set("PAYPAL-CERT-ID", "cert")

	verification := "SUCCESS"
	server := fakePayPal(t, map[string]http.HandlerFunc{
		"/v1/notifications/verify-webhook-signature": func(w http.ResponseWriter, r *http.Request) {
			body := map[string]any{}
			json.NewDecoder(r.Body).Decode(&body)
			if body["webhook_id"] != "WH-1" || body["transmission_id"] != "t-1" {
				t.Errorf("unexpected verification request: %v", body)
			}
			respond(w, http.StatusOK, `{"verification_status": "`+verification+`"}`)
		},
	})

	ctx := context.Background()
	body := []byte(`{"id": "WH-EVT-1"}`)

	t.Run("headers are required", func(t *testing.T) {
		testee := try.To(paypal.New(paypal.Config{ClientId: "id", Secret: "secret", BaseURL: server.URL, WebhookId: "WH-1"})).OrFatal(t)
		header := signed.Clone()
		header.Del("PAYPAL-CERT-ID")
		if err := testee.Webhook().Verify(ctx, header, body); !errors.Is(err, payments.ErrMissingSignature) {
			t.Errorf("got %v, want ErrMissingSignature", err)
		}
	})

	t.Run("webhook id is required", func(t *testing.T) {
		testee := try.To(paypal.New(paypal.Config{ClientId: "id", Secret: "secret", BaseURL: server.URL})).OrFatal(t)
		if err := testee.Webhook().Verify(ctx, signed, body); !errors.Is(err, payments.ErrNotConfigured) {
			t.Errorf("got %v, want ErrNotConfigured", err)
		}
	})

	t.Run("verified by paypal", func(t *testing.T) {
		testee := try.To(paypal.New(paypal.Config{ClientId: "id", Secret: "secret", BaseURL: server.URL, WebhookId: "WH-1"})).OrFatal(t)
		verification = "SUCCESS"
		if err := testee.Webhook().Verify(ctx, signed, body); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		verification = "FAILURE"
		if err := testee.Webhook().Verify(ctx, signed, body); !errors.Is(err, payments.ErrInvalidSignature) {
			t.Errorf("got %v, want ErrInvalidSignature", err)
		}
	})
}

func TestWebhook_Parse(t *testing.T) {
	type Then struct {
		Signal     domain.Signal
		OrderRef   string
		PaymentRef string
	}
	theory := func(body string, then Then) func(*testing.T) {
		return func(t *testing.T) {
			testee := try.To(paypal.New(paypal.Config{ClientId: "id", Secret: "secret"})).OrFatal(t)
			got, err := testee.Webhook().Parse([]byte(body))
			if err != nil {
				t.Fatal(err)
			}
			if got.Provider != domain.PayPalProvider || got.EventId != "WH-1" {
				t.Errorf("unexpected event: %+v", got)
			}
			if got.Signal != then.Signal || got.OrderRef != then.OrderRef || got.PaymentRef != then.PaymentRef {
				t.Errorf("got (%s, %q, %q), want %+v", got.Signal, got.OrderRef, got.PaymentRef, then)
			}
		}
	}

	t.Run("CHECKOUT.ORDER.APPROVED", theory(
		`{"id": "WH-1", "event_type": "CHECKOUT.ORDER.APPROVED", "resource": {"id": "PP-1", "purchase_units": [{"custom_id": "checkout_1"}]}}`,
		Then{domain.SignalAuthorized, "checkout_1", "PP-1"},
	))
	t.Run("PAYMENT.CAPTURE.COMPLETED", theory(
		`{"id": "WH-1", "event_type": "PAYMENT.CAPTURE.COMPLETED", "resource": {"id": "CAP-1", "custom_id": "checkout_1", "amount": {"value": "45.00"}}}`,
		Then{domain.SignalCaptured, "checkout_1", "CAP-1"},
	))
	t.Run("PAYMENT.CAPTURE.DENIED", theory(
		`{"id": "WH-1", "event_type": "PAYMENT.CAPTURE.DENIED", "resource": {"id": "CAP-1", "custom_id": "checkout_1"}}`,
		Then{domain.SignalFailed, "checkout_1", "CAP-1"},
	))
	t.Run("PAYMENT.CAPTURE.REFUNDED", theory(
		`{"id": "WH-1", "event_type": "PAYMENT.CAPTURE.REFUNDED", "resource": {"id": "REF-1", "links": [
			{"href": "https://api.paypal.com/v2/payments/refunds/REF-1", "rel": "self"},
			{"href": "https://api.paypal.com/v2/payments/captures/CAP-1", "rel": "up"}]}}`,
		Then{domain.SignalRefunded, "", "CAP-1"},
	))
	t.Run("others", theory(
		`{"id": "WH-1", "event_type": "BILLING.PLAN.CREATED", "resource": {"id": "P-1"}}`,
		Then{domain.SignalNone, "", ""},
	))
}

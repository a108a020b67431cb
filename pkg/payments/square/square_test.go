package square_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/payments/square"
)

func sign(key string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(key))
	for _, p := range parts {
		mac.Write([]byte(p))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestClient_CreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/payments" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected authorization: %s", got)
		}
		body := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["idempotency_key"] != "checkout_1" || body["reference_id"] != "checkout_1" || body["location_id"] != "L1" {
			t.Errorf("unexpected body: %v", body)
		}
		if amount := body["amount_money"].(map[string]any)["amount"]; amount != float64(9000) {
			t.Errorf("amount should be in cents: %v", amount)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"payment": {"id": "pay-1", "status": "COMPLETED", "receipt_url": "https://squareup.com/r/1", "amount_money": {"amount": 9000, "currency": "USD"}}}`))
	}))
	defer server.Close()

	testee := square.New(square.Config{BaseURL: server.URL, AccessToken: "token", LocationId: "L1"})
	got, err := testee.CreatePayment(context.Background(), square.PaymentRequest{
		SourceId: "cnon:card", IdempotencyKey: "checkout_1", ReferenceId: "checkout_1",
		Amount: decimal.RequireFromString("90.00"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Id != "pay-1" || got.Signal() != domain.SignalCaptured || !got.Amount.Equal(decimal.RequireFromString("90")) {
		t.Errorf("unexpected payment: %+v", got)
	}
}

func TestClient_CreatePayment_Declined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"errors": [{"code": "CARD_DECLINED"}]}`))
	}))
	defer server.Close()

	testee := square.New(square.Config{BaseURL: server.URL, AccessToken: "token"})
	_, err := testee.CreatePayment(context.Background(), square.PaymentRequest{
		SourceId: "cnon:card", IdempotencyKey: "k", Amount: decimal.RequireFromString("1"),
	})
	if !errors.Is(err, payments.ErrDeclined) {
		t.Errorf("got %v, want ErrDeclined", err)
	}
}

func TestClient_RefundPayment(t *testing.T) {
	type Then struct {
		Pending bool
		Err     error
	}
	theory := func(status string, then Then) func(*testing.T) {
		return func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v2/refunds" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"refund": {"id": "refund-1", "status": "` + status + `"}}`))
			}))
			defer server.Close()

			testee := square.New(square.Config{BaseURL: server.URL, AccessToken: "token"})
			got, err := testee.RefundPayment(context.Background(), square.RefundRequest{
				PaymentId: "pay-1", IdempotencyKey: "k", Amount: decimal.RequireFromString("10"),
			})
			if !errors.Is(err, then.Err) {
				t.Errorf("got %v, want %v", err, then.Err)
			}
			if got.Id != "refund-1" || got.Pending() != then.Pending {
				t.Errorf("unexpected refund: %+v", got)
			}
		}
	}

	t.Run("completed", theory("COMPLETED", Then{}))
	t.Run("pending", theory("PENDING", Then{Pending: true}))
	t.Run("rejected", theory("REJECTED", Then{Err: payments.ErrDeclined}))
}

func TestWebhook_Verify(t *testing.T) {
	body := `{"event_id": "e-1"}`

	type When struct {
		Key             string
		NotificationURL string
		Signature       string
	}
	theory := func(when When, then error) func(*testing.T) {
		return func(t *testing.T) {
			testee := square.New(square.Config{
				SignatureKey: when.Key, NotificationURL: when.NotificationURL,
			}).Webhook()
			header := http.Header{}
			if when.Signature != "" {
				header.Set(square.SignatureHeader, when.Signature)
			}
			if err := testee.Verify(context.Background(), header, []byte(body)); !errors.Is(err, then) {
				t.Errorf("got %v, want %v", err, then)
			}
		}
	}

	t.Run("signed over the body", theory(
		When{Key: "key", Signature: sign("key", body)}, nil,
	))
	t.Run("signed over the notification url and the body", theory(
		When{Key: "key", NotificationURL: "https://etchnft.example/api/webhooks/square", Signature: sign("key", "https://etchnft.example/api/webhooks/square", body)}, nil,
	))
	t.Run("signed without the notification url", theory(
		When{Key: "key", NotificationURL: "https://etchnft.example/api/webhooks/square", Signature: sign("key", body)},
		payments.ErrInvalidSignature,
	))
	t.Run("signed with another key", theory(
		When{Key: "key", Signature: sign("other", body)}, payments.ErrInvalidSignature,
	))
	t.Run("without signature", theory(
		When{Key: "key"}, payments.ErrMissingSignature,
	))
	t.Run("without key", theory(
		When{Signature: sign("key", body)}, payments.ErrNotConfigured,
	))
}

func TestWebhook_Parse(t *testing.T) {
	type Then struct {
		Signal     domain.Signal
		OrderRef   string
		PaymentRef string
	}
	theory := func(body string, then Then) func(*testing.T) {
		return func(t *testing.T) {
			got, err := square.New(square.Config{}).Webhook().Parse([]byte(body))
			if err != nil {
				t.Fatal(err)
			}
			if got.Provider != domain.Square || got.EventId != "e-1" {
				t.Errorf("unexpected event: %+v", got)
			}
			if got.Signal != then.Signal || got.OrderRef != then.OrderRef || got.PaymentRef != then.PaymentRef {
				t.Errorf("got (%s, %q, %q), want %+v", got.Signal, got.OrderRef, got.PaymentRef, then)
			}
		}
	}

	payment := func(typ, status string) string {
		return `{"event_id": "e-1", "type": "` + typ + `", "created_at": "2024-01-01T00:00:00Z",
			"data": {"object": {"payment": {"id": "pay-1", "status": "` + status + `", "reference_id": "checkout_1",
			"amount_money": {"amount": 4500, "currency": "USD"}}}}}`
	}
	refund := func(status string) string {
		return `{"event_id": "e-1", "type": "refund.updated",
			"data": {"object": {"refund": {"id": "refund-1", "status": "` + status + `", "payment_id": "pay-1",
			"amount_money": {"amount": 4500, "currency": "USD"}}}}}`
	}

	t.Run("payment.created", theory(payment("payment.created", "PENDING"), Then{domain.SignalAuthorized, "checkout_1", "pay-1"}))
	t.Run("payment.updated COMPLETED", theory(payment("payment.updated", "COMPLETED"), Then{domain.SignalCaptured, "checkout_1", "pay-1"}))
	t.Run("payment.updated APPROVED", theory(payment("payment.updated", "APPROVED"), Then{domain.SignalAuthorized, "checkout_1", "pay-1"}))
	t.Run("payment.updated FAILED", theory(payment("payment.updated", "FAILED"), Then{domain.SignalFailed, "checkout_1", "pay-1"}))
	t.Run("payment.updated CANCELED", theory(payment("payment.updated", "CANCELED"), Then{domain.SignalFailed, "checkout_1", "pay-1"}))
	t.Run("payment.updated PENDING", theory(payment("payment.updated", "PENDING"), Then{domain.SignalPending, "checkout_1", "pay-1"}))
	t.Run("refund COMPLETED", theory(refund("COMPLETED"), Then{domain.SignalRefunded, "", "pay-1"}))
	t.Run("refund PENDING", theory(refund("PENDING"), Then{domain.SignalRefundPending, "", "pay-1"}))
	t.Run("refund REJECTED", theory(refund("REJECTED"), Then{domain.SignalNone, "", "pay-1"}))
	t.Run("unknown type", theory(`{"event_id": "e-1", "type": "invoice.created", "data": {}}`, Then{domain.SignalNone, "", ""}))

	t.Run("payload without event id is rejected", func(t *testing.T) {
		if _, err := square.New(square.Config{}).Webhook().Parse([]byte(`{"type": "payment.created"}`)); err == nil {
			t.Error("expected error")
		}
	})
}

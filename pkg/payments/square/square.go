// Package square talks to Square payments and verifies its webhooks.
package square

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/internal/rest"
	"github.com/cozyartz/etchNFT/pkg/payments"
)

const (
	ProductionBaseURL = "https://connect.squareup.com"
	SandboxBaseURL    = "https://connect.squareupsandbox.com"

	apiVersion = "2024-07-17"

	SignatureHeader = "X-Square-Signature"
)

type Config struct {
	BaseURL     string
	AccessToken string
	LocationId  string

	// key to verify webhook signatures.
	SignatureKey string

	// URL of the webhook endpoint registered at Square.
	// When set, signatures are computed over the URL and the body.
	NotificationURL string

	HTTP *http.Client
}

type Client struct {
	conf Config
	rest rest.Client
}

func New(conf Config) *Client {
	if conf.BaseURL == "" {
		conf.BaseURL = ProductionBaseURL
	}
	return &Client{
		conf: conf,
		rest: rest.Client{HTTP: conf.HTTP, Attempts: 3, Backoff: 500 * time.Millisecond},
	}
}

func (c *Client) header() http.Header {
	return http.Header{
		"Authorization":  {"Bearer " + c.conf.AccessToken},
		"Square-Version": {apiVersion},
	}
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func toMoney(amount decimal.Decimal) money {
	return money{Amount: amount.Shift(2).Round(0).IntPart(), Currency: "USD"}
}

func (m money) decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

type PaymentRequest struct {
	// card nonce from the web payments SDK.
	SourceId string

	// Square deduplicates payments by this key.
	IdempotencyKey string

	Amount decimal.Decimal

	// our checkout id. Webhooks refer orders by this.
	ReferenceId string

	BuyerEmail string
	Note       string
}

type Payment struct {
	Id         string
	Status     string
	ReceiptURL string
	Amount     decimal.Decimal
}

// Signal of the payment status.
//
// COMPLETED means captured, APPROVED means authorized.
// Other statuses leave orders to webhooks.
func (p Payment) Signal() domain.Signal {
	return paymentSignal(p.Status)
}

type paymentObject struct {
	Id          string `json:"id"`
	Status      string `json:"status"`
	ReceiptURL  string `json:"receipt_url"`
	ReferenceId string `json:"reference_id"`
	OrderId     string `json:"order_id"`
	AmountMoney money  `json:"amount_money"`
}

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (Payment, error) {
	in := map[string]any{
		"source_id":       req.SourceId,
		"idempotency_key": req.IdempotencyKey,
		"amount_money":    toMoney(req.Amount),
		"reference_id":    req.ReferenceId,
		"autocomplete":    true,
	}
	if c.conf.LocationId != "" {
		in["location_id"] = c.conf.LocationId
	}
	if req.BuyerEmail != "" {
		in["buyer_email_address"] = req.BuyerEmail
	}
	if req.Note != "" {
		in["note"] = req.Note
	}

	out := struct {
		Payment paymentObject `json:"payment"`
	}{}
	if err := c.rest.Do(ctx, http.MethodPost, c.conf.BaseURL+"/v2/payments", c.header(), in, &out); err != nil {
		return Payment{}, declined(err)
	}
	return Payment{
		Id:         out.Payment.Id,
		Status:     out.Payment.Status,
		ReceiptURL: out.Payment.ReceiptURL,
		Amount:     out.Payment.AmountMoney.decimal(),
	}, nil
}

type RefundRequest struct {
	PaymentId      string
	IdempotencyKey string
	Amount         decimal.Decimal
	Reason         string
}

type Refund struct {
	Id     string
	Status string
}

// Pending reports whether Square has not completed the refund yet.
func (r Refund) Pending() bool {
	return r.Status == "PENDING"
}

func (c *Client) RefundPayment(ctx context.Context, req RefundRequest) (Refund, error) {
	in := map[string]any{
		"payment_id":      req.PaymentId,
		"idempotency_key": req.IdempotencyKey,
		"amount_money":    toMoney(req.Amount),
		"reason":          req.Reason,
	}
	out := struct {
		Refund struct {
			Id     string `json:"id"`
			Status string `json:"status"`
		} `json:"refund"`
	}{}
	if err := c.rest.Do(ctx, http.MethodPost, c.conf.BaseURL+"/v2/refunds", c.header(), in, &out); err != nil {
		return Refund{}, declined(err)
	}
	if s := out.Refund.Status; s == "REJECTED" || s == "FAILED" {
		return Refund{Id: out.Refund.Id, Status: s}, fmt.Errorf("%w: refund %s", payments.ErrDeclined, s)
	}
	return Refund{Id: out.Refund.Id, Status: out.Refund.Status}, nil
}

// client errors (card declined, invalid amount) are reported by 4xx.
func declined(err error) error {
	serr := new(rest.StatusError)
	if errors.As(err, &serr) && !serr.Temporary() {
		return fmt.Errorf("%w: %w", payments.ErrDeclined, err)
	}
	return err
}

type Webhook struct {
	conf Config
}

var _ payments.Webhook = Webhook{}

func (c *Client) Webhook() Webhook {
	return Webhook{conf: c.conf}
}

func (Webhook) Provider() domain.Provider {
	return domain.Square
}

// Verify the HMAC-SHA256 signature, base64 encoded.
func (w Webhook) Verify(_ context.Context, header http.Header, body []byte) error {
	sig := header.Get(SignatureHeader)
	if sig == "" {
		return payments.ErrMissingSignature
	}
	if w.conf.SignatureKey == "" {
		return payments.ErrNotConfigured
	}

	mac := hmac.New(sha256.New, []byte(w.conf.SignatureKey))
	mac.Write([]byte(w.conf.NotificationURL))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(sig)) {
		return payments.ErrInvalidSignature
	}
	return nil
}

type notification struct {
	EventId   string    `json:"event_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      struct {
		Object struct {
			Payment *paymentObject `json:"payment"`
			Refund  *struct {
				Id          string `json:"id"`
				Status      string `json:"status"`
				PaymentId   string `json:"payment_id"`
				AmountMoney money  `json:"amount_money"`
			} `json:"refund"`
		} `json:"object"`
	} `json:"data"`
}

func paymentSignal(status string) domain.Signal {
	switch status {
	case "COMPLETED":
		return domain.SignalCaptured
	case "FAILED", "CANCELED":
		return domain.SignalFailed
	case "APPROVED":
		return domain.SignalAuthorized
	}
	return domain.SignalPending
}

func refundSignal(status string) domain.Signal {
	switch status {
	case "COMPLETED":
		return domain.SignalRefunded
	case "PENDING":
		return domain.SignalRefundPending
	}
	// a failed refund leaves the order as it is.
	return domain.SignalNone
}

func (w Webhook) Parse(body []byte) (domain.NewPaymentEvent, error) {
	n := notification{}
	if err := json.Unmarshal(body, &n); err != nil {
		return domain.NewPaymentEvent{}, fmt.Errorf("malformed square notification: %w", err)
	}
	if n.EventId == "" || n.Type == "" {
		return domain.NewPaymentEvent{}, fmt.Errorf("malformed square notification: event_id and type are required")
	}

	ev := domain.NewPaymentEvent{
		Provider:   domain.Square,
		EventId:    n.EventId,
		EventType:  n.Type,
		Signal:     domain.SignalNone,
		OccurredAt: n.CreatedAt,
		Payload:    json.RawMessage(body),
	}

	switch {
	case strings.HasPrefix(n.Type, "payment."):
		p := n.Data.Object.Payment
		if p == nil {
			return domain.NewPaymentEvent{}, fmt.Errorf("malformed square notification: %s without payment", n.Type)
		}
		ev.PaymentRef = p.Id
		ev.OrderRef = p.ReferenceId
		if ev.OrderRef == "" {
			ev.OrderRef = p.OrderId
		}
		amount := p.AmountMoney.decimal()
		ev.Amount = &amount

		if n.Type == "payment.created" {
			ev.Signal = domain.SignalAuthorized
		} else {
			ev.Signal = paymentSignal(p.Status)
		}
	case strings.HasPrefix(n.Type, "refund."):
		r := n.Data.Object.Refund
		if r == nil {
			return domain.NewPaymentEvent{}, fmt.Errorf("malformed square notification: %s without refund", n.Type)
		}
		// orders know the payment, not the refund.
		ev.PaymentRef = r.PaymentId
		amount := r.AmountMoney.decimal()
		ev.Amount = &amount
		ev.Signal = refundSignal(r.Status)
	}

	return ev, nil
}

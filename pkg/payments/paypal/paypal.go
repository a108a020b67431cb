// Package paypal adapts PayPal orders, captures, refunds and webhooks.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pp "github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/payments"
)

const (
	SandboxBaseURL = pp.APIBaseSandBox
	LiveBaseURL    = pp.APIBaseLive
)

// headers PayPal signs webhook deliveries with.
var transmissionHeaders = []string{
	"PAYPAL-TRANSMISSION-ID",
	"PAYPAL-TRANSMISSION-TIME",
	"PAYPAL-TRANSMISSION-SIG",
	"PAYPAL-CERT-ID",
}

type Config struct {
	ClientId string
	Secret   string
	BaseURL  string

	// id of the webhook registered at PayPal, used to verify deliveries.
	WebhookId string

	BrandName string
	ReturnURL string
	CancelURL string
}

type Client struct {
	conf Config
	api  *pp.Client
}

func New(conf Config) (*Client, error) {
	if conf.BaseURL == "" {
		conf.BaseURL = SandboxBaseURL
	}
	api, err := pp.NewClient(conf.ClientId, conf.Secret, conf.BaseURL)
	if err != nil {
		return nil, err
	}
	if conf.BrandName == "" {
		conf.BrandName = "EtchNFT"
	}
	return &Client{conf: conf, api: api}, nil
}

type OrderRequest struct {
	// our checkout id, sent as custom id.
	CheckoutId  string
	Amount      decimal.Decimal
	Description string
}

type Order struct {
	Id          string
	Status      string
	ApprovalURL string
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	units := []pp.PurchaseUnitRequest{
		{
			ReferenceID: req.CheckoutId,
			CustomID:    req.CheckoutId,
			Description: req.Description,
			Amount: &pp.PurchaseUnitAmount{
				Currency: "USD",
				Value:    req.Amount.StringFixed(2),
			},
		},
	}
	appctx := &pp.ApplicationContext{
		BrandName: c.conf.BrandName,
		ReturnURL: c.conf.ReturnURL,
		CancelURL: c.conf.CancelURL,
	}

	order, err := c.api.CreateOrder(ctx, "CAPTURE", units, nil, appctx)
	if err != nil {
		return Order{}, declined(err)
	}

	approval := ""
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approval = l.Href
			break
		}
	}
	return Order{Id: order.ID, Status: order.Status, ApprovalURL: approval}, nil
}

type Capture struct {
	OrderId   string
	CaptureId string

	// checkout id given as reference id of the purchase unit.
	CheckoutId string

	Status string
	Amount decimal.Decimal
}

// Completed reports whether the money is captured.
func (c Capture) Completed() bool {
	return c.Status == "COMPLETED"
}

func (c *Client) CaptureOrder(ctx context.Context, orderId string) (Capture, error) {
	resp, err := c.api.CaptureOrder(ctx, orderId, pp.CaptureOrderRequest{})
	if err != nil {
		return Capture{}, declined(err)
	}

	capture := Capture{OrderId: resp.ID, Status: resp.Status}
	for _, u := range resp.PurchaseUnits {
		if u.Payments == nil {
			continue
		}
		for _, c := range u.Payments.Captures {
			capture.CheckoutId = u.ReferenceID
			capture.CaptureId = c.ID
			capture.Status = c.Status
			if c.Amount != nil {
				if a, err := decimal.NewFromString(c.Amount.Value); err == nil {
					capture.Amount = a
				}
			}
			return capture, nil
		}
	}
	return capture, fmt.Errorf("paypal order %s has no capture (status %s)", resp.ID, resp.Status)
}

type Refund struct {
	Id     string
	Status string
}

func (r Refund) Pending() bool {
	return r.Status == "PENDING"
}

func (c *Client) RefundCapture(ctx context.Context, captureId string, amount decimal.Decimal, note string) (Refund, error) {
	resp, err := c.api.RefundCapture(ctx, captureId, pp.RefundCaptureRequest{
		Amount:      &pp.Money{Currency: "USD", Value: amount.StringFixed(2)},
		NoteToPayer: note,
	})
	if err != nil {
		return Refund{}, declined(err)
	}
	if resp.Status == "CANCELLED" || resp.Status == "FAILED" {
		return Refund{Id: resp.ID, Status: resp.Status}, fmt.Errorf("%w: refund %s", payments.ErrDeclined, resp.Status)
	}
	return Refund{Id: resp.ID, Status: resp.Status}, nil
}

func declined(err error) error {
	perr := new(pp.ErrorResponse)
	if errors.As(err, &perr) && perr.Response != nil &&
		400 <= perr.Response.StatusCode && perr.Response.StatusCode < 500 {
		return fmt.Errorf("%w: %w", payments.ErrDeclined, err)
	}
	return err
}

type Webhook struct {
	client *Client
}

var _ payments.Webhook = Webhook{}

func (c *Client) Webhook() Webhook {
	return Webhook{client: c}
}

func (Webhook) Provider() domain.Provider {
	return domain.PayPalProvider
}

// Verify asks PayPal whether the delivery is signed by it.
func (w Webhook) Verify(ctx context.Context, header http.Header, body []byte) error {
	for _, h := range transmissionHeaders {
		if header.Get(h) == "" {
			return payments.ErrMissingSignature
		}
	}
	if w.client == nil || w.client.conf.WebhookId == "" {
		return payments.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	for _, h := range append(transmissionHeaders, "PAYPAL-AUTH-ALGO", "PAYPAL-CERT-URL") {
		req.Header.Set(h, header.Get(h))
	}

	resp, err := w.client.api.VerifyWebhookSignature(ctx, req, w.client.conf.WebhookId)
	if err != nil {
		return err
	}
	if resp.VerificationStatus != "SUCCESS" {
		return payments.ErrInvalidSignature
	}
	return nil
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type notification struct {
	Id         string    `json:"id"`
	EventType  string    `json:"event_type"`
	CreateTime time.Time `json:"create_time"`
	Resource   struct {
		Id       string `json:"id"`
		Status   string `json:"status"`
		CustomId string `json:"custom_id"`
		Amount   *struct {
			Value string `json:"value"`
		} `json:"amount"`
		PurchaseUnits []struct {
			ReferenceId string `json:"reference_id"`
			CustomId    string `json:"custom_id"`
		} `json:"purchase_units"`
		Links []link `json:"links"`
	} `json:"resource"`
}

// capture id which a refund belongs to.
func upCapture(links []link) string {
	for _, l := range links {
		if l.Rel != "up" {
			continue
		}
		if i := strings.Index(l.Href, "/captures/"); 0 <= i {
			return strings.Trim(l.Href[i+len("/captures/"):], "/")
		}
	}
	return ""
}

func (Webhook) Parse(body []byte) (domain.NewPaymentEvent, error) {
	n := notification{}
	if err := json.Unmarshal(body, &n); err != nil {
		return domain.NewPaymentEvent{}, fmt.Errorf("malformed paypal notification: %w", err)
	}
	if n.Id == "" || n.EventType == "" {
		return domain.NewPaymentEvent{}, fmt.Errorf("malformed paypal notification: id and event_type are required")
	}

	ev := domain.NewPaymentEvent{
		Provider:   domain.PayPalProvider,
		EventId:    n.Id,
		EventType:  n.EventType,
		Signal:     domain.SignalNone,
		OccurredAt: n.CreateTime,
		Payload:    json.RawMessage(body),
	}
	res := n.Resource
	if res.Amount != nil {
		if a, err := decimal.NewFromString(res.Amount.Value); err == nil {
			ev.Amount = &a
		}
	}

	switch n.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		ev.Signal = domain.SignalAuthorized
		ev.PaymentRef = res.Id
		for _, u := range res.PurchaseUnits {
			if u.CustomId != "" {
				ev.OrderRef = u.CustomId
				break
			}
		}
	case "PAYMENT.CAPTURE.COMPLETED":
		ev.Signal = domain.SignalCaptured
		ev.PaymentRef = res.Id
		ev.OrderRef = res.CustomId
	case "PAYMENT.CAPTURE.DENIED":
		ev.Signal = domain.SignalFailed
		ev.PaymentRef = res.Id
		ev.OrderRef = res.CustomId
	case "PAYMENT.CAPTURE.REFUNDED":
		ev.Signal = domain.SignalRefunded
		ev.PaymentRef = upCapture(res.Links)
		if ev.PaymentRef == "" {
			ev.PaymentRef = res.Id
		}
		ev.OrderRef = res.CustomId
	}
	return ev, nil
}

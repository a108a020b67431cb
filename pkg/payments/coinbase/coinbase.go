// Package coinbase creates Coinbase Commerce charges and verifies its webhooks.
package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/internal/rest"
	"github.com/cozyartz/etchNFT/pkg/payments"
)

const (
	DefaultBaseURL = "https://api.commerce.coinbase.com"

	apiVersion = "2018-03-22"

	SignatureHeader = "X-CC-Webhook-Signature"
)

type Config struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string

	HTTP *http.Client
}

type Client struct {
	conf Config
	rest rest.Client
}

func New(conf Config) *Client {
	if conf.BaseURL == "" {
		conf.BaseURL = DefaultBaseURL
	}
	return &Client{
		conf: conf,
		rest: rest.Client{HTTP: conf.HTTP, Attempts: 2, Backoff: time.Second},
	}
}

type Metadata struct {
	OrderId       string `json:"order_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	ItemCount     int    `json:"item_count"`
}

type ChargeRequest struct {
	Name        string
	Description string
	Amount      decimal.Decimal
	Metadata    Metadata
	RedirectURL string
	CancelURL   string
}

type Charge struct {
	Id        string
	Code      string
	HostedURL string
	ExpiresAt time.Time
}

func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error) {
	if c.conf.APIKey == "" {
		return Charge{}, payments.ErrNotConfigured
	}
	in := map[string]any{
		"name":         req.Name,
		"description":  req.Description,
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   req.Amount.StringFixed(2),
			"currency": "USD",
		},
		"metadata":     req.Metadata,
		"redirect_url": req.RedirectURL,
		"cancel_url":   req.CancelURL,
	}
	out := struct {
		Data struct {
			Id        string    `json:"id"`
			Code      string    `json:"code"`
			HostedURL string    `json:"hosted_url"`
			ExpiresAt time.Time `json:"expires_at"`
		} `json:"data"`
	}{}
	header := http.Header{
		"X-CC-Api-Key": {c.conf.APIKey},
		"X-CC-Version": {apiVersion},
	}
	if err := c.rest.Do(ctx, http.MethodPost, c.conf.BaseURL+"/charges", header, in, &out); err != nil {
		return Charge{}, err
	}
	return Charge{
		Id: out.Data.Id, Code: out.Data.Code,
		HostedURL: out.Data.HostedURL, ExpiresAt: out.Data.ExpiresAt,
	}, nil
}

type Webhook struct {
	secret string
}

var _ payments.Webhook = Webhook{}

func (c *Client) Webhook() Webhook {
	return Webhook{secret: c.conf.WebhookSecret}
}

func (Webhook) Provider() domain.Provider {
	return domain.Coinbase
}

// Verify the HMAC-SHA256 signature of the body, hex encoded.
func (w Webhook) Verify(_ context.Context, header http.Header, body []byte) error {
	sig := header.Get(SignatureHeader)
	if sig == "" {
		return payments.ErrMissingSignature
	}
	if w.secret == "" {
		return payments.ErrNotConfigured
	}
	mac := hmac.New(sha256.New, []byte(w.secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return payments.ErrInvalidSignature
	}
	return nil
}

// item_count is a number in our charges, but the dashboard sends strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type delivery struct {
	Event struct {
		Id        string    `json:"id"`
		Type      string    `json:"type"`
		CreatedAt time.Time `json:"created_at"`
		Data      struct {
			Id       string `json:"id"`
			Code     string `json:"code"`
			Metadata struct {
				OrderId   string  `json:"order_id"`
				ItemCount flexInt `json:"item_count"`
			} `json:"metadata"`
			Pricing struct {
				Local struct {
					Amount string `json:"amount"`
				} `json:"local"`
			} `json:"pricing"`
		} `json:"data"`
	} `json:"event"`
}

func chargeSignal(typ string) domain.Signal {
	switch typ {
	case "charge:created", "charge:pending", "charge:delayed":
		return domain.SignalPending
	case "charge:confirmed", "charge:resolved":
		return domain.SignalCaptured
	case "charge:failed":
		return domain.SignalFailed
	}
	return domain.SignalNone
}

func (Webhook) Parse(body []byte) (domain.NewPaymentEvent, error) {
	d := delivery{}
	if err := json.Unmarshal(body, &d); err != nil {
		return domain.NewPaymentEvent{}, fmt.Errorf("malformed coinbase delivery: %w", err)
	}
	ev := d.Event
	if ev.Id == "" || ev.Type == "" {
		return domain.NewPaymentEvent{}, fmt.Errorf("malformed coinbase delivery: event.id and event.type are required")
	}

	out := domain.NewPaymentEvent{
		Provider:   domain.Coinbase,
		EventId:    ev.Id,
		EventType:  ev.Type,
		Signal:     chargeSignal(ev.Type),
		OrderRef:   ev.Data.Metadata.OrderId,
		PaymentRef: ev.Data.Id,
		OccurredAt: ev.CreatedAt,
		Payload:    json.RawMessage(body),
	}
	if a := ev.Data.Pricing.Local.Amount; a != "" {
		if amount, err := decimal.NewFromString(a); err == nil {
			out.Amount = &amount
		}
	}
	return out, nil
}

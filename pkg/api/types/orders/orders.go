package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/checkout"
	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/refund"
	"github.com/cozyartz/etchNFT/pkg/utils"
	"github.com/cozyartz/etchNFT/pkg/utils/rfctime"
)

type Item struct {
	Kind       string `json:"kind,omitempty"`
	Name       string `json:"name"`
	TokenId    string `json:"tokenId,omitempty"`
	Contract   string `json:"contract,omitempty"`
	Chain      string `json:"chain,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
	DropItemId string `json:"dropItemId,omitempty"`
	UploadId   string `json:"uploadId,omitempty"`
}

func ComposeItem(i domain.Item) Item {
	return Item{
		Kind:       string(i.Kind),
		Name:       i.Name,
		TokenId:    i.TokenId,
		Contract:   i.Contract,
		Chain:      i.Chain,
		ImageURL:   i.ImageURL,
		DropItemId: i.DropItemId,
		UploadId:   i.UploadId,
	}
}

// Domain converts the item into domain.Item.
//
// An empty kind is read as "nft".
func (i Item) Domain() (domain.Item, error) {
	kind, err := domain.AsItemKind(i.Kind)
	if err != nil {
		return domain.Item{}, err
	}
	return domain.Item{
		Kind:       kind,
		Name:       i.Name,
		TokenId:    i.TokenId,
		Contract:   i.Contract,
		Chain:      i.Chain,
		ImageURL:   i.ImageURL,
		DropItemId: i.DropItemId,
		UploadId:   i.UploadId,
	}, nil
}

type Customer struct {
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Wallet string `json:"wallet,omitempty"`
}

type Shipping struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func ComposeShipping(s domain.ShippingAddress) Shipping {
	return Shipping(s)
}

func (s Shipping) Domain() domain.ShippingAddress {
	return domain.ShippingAddress(s)
}

type Summary struct {
	OrderId    string          `json:"orderId"`
	CheckoutId string          `json:"checkoutId"`
	Status     string          `json:"status"`
	Method     string          `json:"paymentMethod"`
	Price      decimal.Decimal `json:"price"`
	Item       Item            `json:"item"`
	CreatedAt  rfctime.RFC3339 `json:"createdAt"`
	UpdatedAt  rfctime.RFC3339 `json:"updatedAt"`
}

func ComposeSummary(o domain.Order) Summary {
	return Summary{
		OrderId:    o.Id,
		CheckoutId: o.CheckoutId,
		Status:     o.Status.String(),
		Method:     o.Method.String(),
		Price:      o.Price,
		Item:       ComposeItem(o.Item),
		CreatedAt:  rfctime.RFC3339(o.CreatedAt),
		UpdatedAt:  rfctime.RFC3339(o.UpdatedAt),
	}
}

type Detail struct {
	Summary

	Customer   Customer         `json:"customer"`
	Shipping   Shipping         `json:"shipping"`
	PaymentRef string           `json:"paymentRef,omitempty"`
	HostedURL  string           `json:"hostedUrl,omitempty"`
	CertURL    string           `json:"certUrl,omitempty"`
	PriceEth   *decimal.Decimal `json:"priceEth,omitempty"`
	Network    string           `json:"network,omitempty"`
	NotifiedAt *rfctime.RFC3339 `json:"notifiedAt,omitempty"`
}

func ComposeDetail(o domain.Order) Detail {
	var notified *rfctime.RFC3339
	if o.NotifiedAt != nil {
		t := rfctime.RFC3339(*o.NotifiedAt)
		notified = &t
	}
	return Detail{
		Summary:    ComposeSummary(o),
		Customer:   Customer(o.Customer),
		Shipping:   ComposeShipping(o.Shipping),
		PaymentRef: o.PaymentRef,
		HostedURL:  o.HostedURL,
		CertURL:    o.CertURL,
		PriceEth:   o.PriceEth,
		Network:    o.Network(),
		NotifiedAt: notified,
	}
}

// Web3 is an order message signed by the customer's wallet.
type Web3 struct {
	OrderId   string          `json:"orderId"`
	Signature string          `json:"signature"`
	PriceEth  decimal.Decimal `json:"priceEth"`
	SignedAt  rfctime.RFC3339 `json:"signedAt"`
	ChainId   int64           `json:"chainId"`
	TxHash    string          `json:"txHash,omitempty"`
}

// CheckoutRequest is the body of POST /api/checkout/:method.
type CheckoutRequest struct {
	Customer Customer `json:"customer"`
	Shipping Shipping `json:"shipping"`
	Items    []Item   `json:"items"`

	// card nonce from the Square web payments form.
	SourceId string `json:"sourceId,omitempty"`

	Web3 *Web3 `json:"web3,omitempty"`
}

// Cart converts the request into a cart and a payment by method.
func (r CheckoutRequest) Cart(method domain.PaymentMethod) (checkout.Cart, checkout.Payment, error) {
	items, err := utils.MapUntilError(r.Items, Item.Domain)
	if err != nil {
		return checkout.Cart{}, checkout.Payment{}, err
	}
	cart := checkout.Cart{
		Customer: domain.Customer(r.Customer),
		Shipping: r.Shipping.Domain(),
		Items:    items,
	}
	pay := checkout.Payment{Method: method, SourceId: r.SourceId}
	if w := r.Web3; w != nil {
		pay.Web3 = &checkout.Web3Payment{
			OrderId:   w.OrderId,
			Signature: w.Signature,
			PriceEth:  w.PriceEth,
			SignedAt:  w.SignedAt.Time(),
			ChainId:   w.ChainId,
			TxHash:    w.TxHash,
		}
	}
	return cart, pay, nil
}

type CheckoutResponse struct {
	CheckoutId  string          `json:"checkoutId"`
	Orders      []Detail        `json:"orders"`
	Total       decimal.Decimal `json:"total"`
	PaymentRef  string          `json:"paymentRef,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
	ReceiptURL  string          `json:"receiptUrl,omitempty"`
}

func ComposeCheckout(r checkout.Result) CheckoutResponse {
	return CheckoutResponse{
		CheckoutId:  r.CheckoutId,
		Orders:      utils.Map(r.Orders, ComposeDetail),
		Total:       r.Total,
		PaymentRef:  r.PaymentRef,
		RedirectURL: r.RedirectURL,
		ReceiptURL:  r.ReceiptURL,
	}
}

type CaptureRequest struct {
	PayPalOrderId string `json:"paypalOrderId"`
}

type CancelRequest struct {
	Wallet string `json:"wallet,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type CancelResponse struct {
	Order         Detail          `json:"order"`
	Kind          string          `json:"cancellationType"`
	RefundMethod  string          `json:"refundMethod"`
	RefundRef     string          `json:"refundRef,omitempty"`
	RefundState   string          `json:"refundStatus"`
	Amount        decimal.Decimal `json:"refundAmount"`
	EstimatedTime string          `json:"estimatedRefundTime"`
	Note          string          `json:"note,omitempty"`
}

func ComposeCancel(r refund.CancelResult) CancelResponse {
	return CancelResponse{
		Order:         ComposeDetail(r.Order),
		Kind:          string(r.Kind),
		RefundMethod:  string(r.RefundMethod),
		RefundRef:     r.RefundRef,
		RefundState:   string(r.RefundState),
		Amount:        r.Amount,
		EstimatedTime: r.EstimatedTime,
		Note:          r.Note,
	}
}

type Eligibility struct {
	OrderId         string          `json:"orderId"`
	Status          string          `json:"status"`
	Eligible        bool            `json:"eligible"`
	AlreadyRefunded bool            `json:"alreadyRefunded"`
	MaxAmount       decimal.Decimal `json:"maxRefundAmount"`
	Method          string          `json:"paymentMethod"`
}

func ComposeEligibility(e refund.Eligibility) Eligibility {
	return Eligibility{
		OrderId:         e.Order.Id,
		Status:          e.Order.Status.String(),
		Eligible:        e.Eligible,
		AlreadyRefunded: e.AlreadyRefunded,
		MaxAmount:       e.MaxAmount,
		Method:          e.Order.Method.String(),
	}
}

type RefundRequest struct {
	// full price when omitted.
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason"`
}

type RefundResponse struct {
	Order        Detail          `json:"order"`
	Amount       decimal.Decimal `json:"amount"`
	RefundMethod string          `json:"refundMethod"`
	RefundRef    string          `json:"refundRef,omitempty"`
	RefundState  string          `json:"refundStatus"`
}

func ComposeRefund(r refund.RefundResult) RefundResponse {
	return RefundResponse{
		Order:        ComposeDetail(r.Order),
		Amount:       r.Amount,
		RefundMethod: string(r.RefundMethod),
		RefundRef:    r.RefundRef,
		RefundState:  string(r.RefundState),
	}
}

type StatusChange struct {
	Status string `json:"status"`
}

// Notification is sent to lifecycle hooks when an order is confirmed or paid.
type Notification struct {
	Order Detail          `json:"order"`
	At    rfctime.RFC3339 `json:"notifiedAt"`
}

func ComposeNotification(o domain.Order, at time.Time) Notification {
	return Notification{Order: ComposeDetail(o), At: rfctime.RFC3339(at)}
}

// WebhookAck is the answer to a provider delivering an event.
type WebhookAck struct {
	Received  bool   `json:"received"`
	EventId   string `json:"eventId"`
	State     string `json:"state"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

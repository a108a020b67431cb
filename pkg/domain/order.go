package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	// order record exists, payment has not been reported yet.
	Pending OrderStatus = "pending"

	// payment is authorized (or signed by wallet) but not captured.
	Confirmed OrderStatus = "confirmed"

	// payment is captured.
	Paid OrderStatus = "paid"

	// fulfilment steps.
	Processing   OrderStatus = "processing"
	InProduction OrderStatus = "in_production"
	Etched       OrderStatus = "etched"
	Shipped      OrderStatus = "shipped"

	// payment failed or the checkout is abandoned.
	Failed OrderStatus = "failed"

	// cancelled by the customer.
	Cancelled OrderStatus = "cancelled"

	RefundPending OrderStatus = "refund_pending"
	Refunded      OrderStatus = "refunded"
	RefundFailed  OrderStatus = "refund_failed"
)

func (s OrderStatus) String() string {
	return string(s)
}

// OrderStatuses lists every status in the order of the life of an order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		Pending, Confirmed, Paid, Processing, InProduction, Etched, Shipped,
		Failed, Cancelled, RefundPending, Refunded, RefundFailed,
	}
}

func AsOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case Pending, Confirmed, Paid, Processing, InProduction, Etched, Shipped,
		Failed, Cancelled, RefundPending, Refunded, RefundFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status: %s", s)
}

// Terminal reports whether the order can no longer change its status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case Shipped, Refunded:
		return true
	}
	return false
}

// CanTransit reports whether an order in status `from` may be moved to `to`.
//
// Every writer of order status (webhook reconciliation, checkout, cancellation,
// refunds and admin operations) goes through this table.
// A write of the current status is not a transition and returns false.
func CanTransit(from, to OrderStatus) bool {
	if from == to || from.Terminal() {
		return false
	}

	switch from {
	case Pending:
		switch to {
		case Confirmed, Paid, Failed, Cancelled:
			return true
		}
	case Confirmed:
		switch to {
		case Paid, Processing, Failed, Cancelled, RefundPending, Refunded, RefundFailed:
			return true
		}
	case Paid:
		switch to {
		case Processing, InProduction, Cancelled, RefundPending, Refunded, RefundFailed:
			return true
		}
	case Processing:
		switch to {
		case InProduction, RefundPending, Refunded, RefundFailed:
			return true
		}
	case InProduction:
		switch to {
		case Etched, RefundPending, Refunded, RefundFailed:
			return true
		}
	case Etched:
		return to == Shipped
	case Failed:
		// late captures can still arrive for a checkout deemed abandoned.
		switch to {
		case Paid, RefundPending, Refunded, RefundFailed:
			return true
		}
	case Cancelled:
		switch to {
		case RefundPending, Refunded:
			return true
		}
	case RefundPending:
		switch to {
		case Refunded, RefundFailed:
			return true
		}
	case RefundFailed:
		switch to {
		case RefundPending, Refunded:
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	Card   PaymentMethod = "card"
	PayPal PaymentMethod = "paypal"
	Crypto PaymentMethod = "crypto"
	Web3   PaymentMethod = "web3"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func AsPaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case Card, PayPal, Crypto, Web3:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method: %s", s)
}

// Provider which handles the payment method.
func (m PaymentMethod) Provider() Provider {
	switch m {
	case Card:
		return Square
	case PayPal:
		return PayPalProvider
	case Crypto:
		return Coinbase
	case Web3:
		return Wallet
	}
	return ""
}

type ItemKind string

const (
	NFT          ItemKind = "nft"
	Artwork      ItemKind = "artwork"
	DropItemKind ItemKind = "drop_item"
)

func AsItemKind(s string) (ItemKind, error) {
	switch k := ItemKind(s); k {
	case NFT, Artwork, DropItemKind:
		return k, nil
	case "":
		return NFT, nil
	}
	return "", fmt.Errorf("unknown item kind: %s", s)
}

// Item to be etched.
type Item struct {
	Kind     ItemKind
	Name     string
	TokenId  string
	Contract string
	Chain    string
	ImageURL string

	// set when Kind is DropItemKind.
	DropItemId string

	// set when Kind is Artwork and the artwork is a custom upload.
	UploadId string
}

type ShippingAddress struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type Customer struct {
	Email  string
	Name   string
	Wallet string
}

// OrderBody is the part of Order given at checkout.
type OrderBody struct {
	Id         string
	CheckoutId string
	Customer   Customer
	Item       Item
	Shipping   ShippingAddress
	Method     PaymentMethod
	Price      decimal.Decimal

	// web3 payments carry the ETH amount, the signature and the chain signed by the wallet.
	PriceEth      *decimal.Decimal
	Web3Signature string
	ChainId       int64

	CertURL string
}

type Order struct {
	OrderBody

	Status OrderStatus

	// identifier of the payment at the provider
	// (square payment id, paypal order/capture id, coinbase charge id).
	PaymentRef string

	// checkout URL at the provider, if any.
	HostedURL string

	NotifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (o Order) Provider() Provider {
	return o.Method.Provider()
}

// Network name of web3 orders.
func (o Order) Network() string {
	if o.ChainId == 0 {
		return ""
	}
	return fmt.Sprintf("ethereum-%d", o.ChainId)
}

func (o Order) Equal(other Order) bool {
	return o.Id == other.Id &&
		o.CheckoutId == other.CheckoutId &&
		o.Customer == other.Customer &&
		o.Item == other.Item &&
		o.Shipping == other.Shipping &&
		o.Method == other.Method &&
		o.Price.Equal(other.Price) &&
		o.Status == other.Status &&
		o.PaymentRef == other.PaymentRef
}

// OrderCursor points a position to pick orders in loops.
type OrderCursor struct {
	// last picked order id.
	Head string

	// statuses of orders to be picked.
	Status []OrderStatus

	// pick only orders created before now - OlderThan.
	OlderThan time.Duration

	// pick only orders not yet notified.
	Unnotified bool
}

func (c OrderCursor) Equal(other OrderCursor) bool {
	if c.Head != other.Head || c.OlderThan != other.OlderThan || c.Unnotified != other.Unnotified {
		return false
	}
	if len(c.Status) != len(other.Status) {
		return false
	}
	for i := range c.Status {
		if c.Status[i] != other.Status[i] {
			return false
		}
	}
	return true
}

type OrderFindQuery struct {
	Email      string
	CheckoutId string
	Status     []OrderStatus
	Limit      int
	Offset     int
}

type CancelKind string

const (
	StandardCancel  CancelKind = "standard"
	EmergencyCancel CancelKind = "emergency"
)

type RefundMethod string

const (
	RefundBySquare     RefundMethod = "square"
	RefundByPayPal     RefundMethod = "paypal"
	RefundByBlockchain RefundMethod = "blockchain"
	RefundManually     RefundMethod = "manual"
)

type RefundState string

const (
	RefundStatePending   RefundState = "pending"
	RefundStateCompleted RefundState = "completed"
	RefundStateFailed    RefundState = "failed"
)

// Cancellation is a record of a customer cancel.
type Cancellation struct {
	OrderId      string
	Kind         CancelKind
	Reason       string
	RefundMethod RefundMethod
	RefundRef    string
	RefundState  RefundState
	Amount       decimal.Decimal
	CreatedAt    time.Time
}

// AdminRefund is a record of a refund issued by an admin.
type AdminRefund struct {
	OrderId      string
	AdminId      string
	Amount       decimal.Decimal
	Reason       string
	RefundMethod RefundMethod
	RefundRef    string
	RefundState  RefundState
	CreatedAt    time.Time
}

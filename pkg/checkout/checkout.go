// Package checkout turns a cart into provisional orders and dispatches them to a payment provider.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"
	glog "github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	kdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	kupload "github.com/cozyartz/etchNFT/pkg/domain/upload/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/payments/coinbase"
	"github.com/cozyartz/etchNFT/pkg/payments/paypal"
	"github.com/cozyartz/etchNFT/pkg/payments/square"
	"github.com/cozyartz/etchNFT/pkg/payments/web3"
)

// ErrInvalidCart is returned when a cart or a payment is malformed.
var ErrInvalidCart = errors.New("invalid cart")

// MaxItems is the largest number of items in a cart.
const MaxItems = 20

type Cart struct {
	Customer domain.Customer
	Shipping domain.ShippingAddress
	Items    []domain.Item
}

type Payment struct {
	Method domain.PaymentMethod

	// card nonce. Only for card.
	SourceId string

	// Only for web3.
	Web3 *Web3Payment
}

// Web3Payment is an order message signed by the customer's wallet.
type Web3Payment struct {
	// order id in the signed message. It becomes the checkout id.
	OrderId   string
	Signature string
	PriceEth  decimal.Decimal
	SignedAt  time.Time
	ChainId   int64

	// hash of the payment transaction, if the wallet sent one.
	TxHash string
}

type Result struct {
	CheckoutId string

	// orders of the checkout, in the order of the cart.
	Orders []domain.Order

	Total decimal.Decimal

	// payment id at the provider.
	PaymentRef string

	// where the customer completes the payment (paypal approval, coinbase hosted page).
	RedirectURL string

	// square receipt.
	ReceiptURL string
}

// Pricing of items per payment method. Drop items are priced by their drop.
type Pricing struct {
	Card   decimal.Decimal
	PayPal decimal.Decimal
	Crypto decimal.Decimal

	// USD per ETH, for web3 orders.
	EthUSD decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		Card:   decimal.NewFromInt(45),
		PayPal: decimal.NewFromInt(45),
		Crypto: decimal.NewFromInt(45),
		EthUSD: decimal.NewFromInt(1800),
	}
}

func (p Pricing) of(method domain.PaymentMethod) decimal.Decimal {
	switch method {
	case domain.PayPal:
		return p.PayPal
	case domain.Crypto:
		return p.Crypto
	}
	return p.Card
}

type CardGateway interface {
	CreatePayment(ctx context.Context, req square.PaymentRequest) (square.Payment, error)
}

type PayPalGateway interface {
	CreateOrder(ctx context.Context, req paypal.OrderRequest) (paypal.Order, error)
	CaptureOrder(ctx context.Context, orderId string) (paypal.Capture, error)
}

type ChargeGateway interface {
	CreateCharge(ctx context.Context, req coinbase.ChargeRequest) (coinbase.Charge, error)
}

var (
	_ CardGateway   = &square.Client{}
	_ PayPalGateway = &paypal.Client{}
	_ ChargeGateway = &coinbase.Client{}
)

// Gateways of providers. A nil gateway disables its payment method.
type Gateways struct {
	Card   CardGateway
	PayPal PayPalGateway
	Crypto ChargeGateway
}

// Inbox takes payment events. It is satisfied by *reconcile.Reconciler.
type Inbox interface {
	Ingest(ctx context.Context, ev domain.NewPaymentEvent) (domain.PaymentEvent, bool, error)
}

type Service struct {
	orders   korder.OrderInterface
	drops    kdrop.DropInterface
	uploads  kupload.UploadInterface
	inbox    Inbox
	gateways Gateways

	pricing     Pricing
	redirectURL string
	cancelURL   string
	clock       func() time.Time
	newId       func() string
	logger      Logger
}

// Logger takes warnings about cleanups which failed. echo.Logger satisfies it.
type Logger interface {
	Warnf(format string, args ...any)
}

type Option func(*Service)

func WithPricing(p Pricing) Option {
	return func(s *Service) { s.pricing = p }
}

// WithRedirects sets where hosted payment pages send customers back.
func WithRedirects(success string, cancel string) Option {
	return func(s *Service) {
		s.redirectURL = success
		s.cancelURL = cancel
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithUploads lets artwork items refer custom uploads by their ids.
func WithUploads(uploads kupload.UploadInterface) Option {
	return func(s *Service) { s.uploads = uploads }
}

func WithLogger(l Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIdGenerator replaces the generator of checkout ids.
func WithIdGenerator(newId func() string) Option {
	return func(s *Service) { s.newId = newId }
}

func New(
	orders korder.OrderInterface, drops kdrop.DropInterface,
	inbox Inbox, gateways Gateways, options ...Option,
) *Service {
	s := &Service{
		orders:   orders,
		drops:    drops,
		inbox:    inbox,
		gateways: gateways,
		pricing:  DefaultPricing(),
		clock:    time.Now,
		newId:    func() string { return "etch_" + uuid.NewString() },
		logger:   glog.New("checkout"),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// CertURL is the path of the certificate of the order.
func CertURL(orderId string) string {
	return "/cert/" + orderId
}

var orderIdPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCart, fmt.Sprintf(format, args...))
}

func validate(cart Cart, pay Payment) error {
	if len(cart.Items) == 0 {
		return invalid("cart is empty")
	}
	if MaxItems < len(cart.Items) {
		return invalid("too many items (%d > %d)", len(cart.Items), MaxItems)
	}
	if _, err := mail.ParseAddress(cart.Customer.Email); err != nil {
		return invalid("email %q: %s", cart.Customer.Email, err)
	}

	for i, item := range cart.Items {
		switch item.Kind {
		case domain.NFT:
			if item.Contract == "" || item.TokenId == "" {
				return invalid("items[%d]: contract and token id are required", i)
			}
		case domain.Artwork:
			if item.ImageURL == "" && item.UploadId == "" {
				return invalid("items[%d]: image url or upload id is required", i)
			}
		case domain.DropItemKind:
			if item.DropItemId == "" {
				return invalid("items[%d]: drop item id is required", i)
			}
		default:
			return invalid("items[%d]: unknown kind %q", i, item.Kind)
		}
	}

	switch pay.Method {
	case domain.Card:
		if pay.SourceId == "" {
			return invalid("card source id is required")
		}
	case domain.PayPal, domain.Crypto:
	case domain.Web3:
		w := pay.Web3
		if w == nil || w.Signature == "" {
			return invalid("signed order message is required")
		}
		if !orderIdPattern.MatchString(w.OrderId) {
			return invalid("order id %q", w.OrderId)
		}
		if !web3.IsAddress(cart.Customer.Wallet) {
			return invalid("wallet address %q", cart.Customer.Wallet)
		}
		if len(cart.Items) != 1 {
			return invalid("a signed order covers exactly one item")
		}
		if !w.PriceEth.IsPositive() {
			return invalid("price %s ETH", w.PriceEth)
		}
	default:
		return invalid("unknown payment method %q", pay.Method)
	}
	return nil
}

func (s *Service) configured(method domain.PaymentMethod) bool {
	switch method {
	case domain.Card:
		return s.gateways.Card != nil
	case domain.PayPal:
		return s.gateways.PayPal != nil
	case domain.Crypto:
		return s.gateways.Crypto != nil
	}
	return true
}

// Checkout creates one pending order per cart item under a new checkout id,
// then dispatches the payment.
//
// - card: paid or confirmed at once when Square completes or approves the payment.
// On decline, orders are failed and drop items are released.
//
// - paypal: orders wait for Capture. The result carries the approval link.
//
// - crypto: the result carries the hosted charge page.
// When no charge is created, the orders are deleted.
//
// - web3: the signed order message is verified before anything is written,
// and the order is confirmed.
//
// Artwork items with an upload id are etched from the custom upload,
// which is marked ordered once its order is placed.
//
// # Returns
//
// - error: wraps ErrInvalidCart, payments.ErrNotConfigured, payments.ErrDeclined,
// web3 verification errors, or errors of the database
// (domerr.ErrNotPurchasable, domerr.ErrConflict, domerr.ErrMissing).
func (s *Service) Checkout(ctx context.Context, cart Cart, pay Payment) (Result, error) {
	if err := validate(cart, pay); err != nil {
		return Result{}, err
	}
	if !s.configured(pay.Method) {
		return Result{}, fmt.Errorf("%w: %s", payments.ErrNotConfigured, pay.Method)
	}
	for i, item := range cart.Items {
		if item.UploadId != "" && (item.Kind != domain.Artwork || s.uploads == nil) {
			return Result{}, invalid("items[%d]: custom uploads are not accepted", i)
		}
	}

	now := s.clock()
	checkoutId := s.newId()
	if pay.Method == domain.Web3 {
		if err := s.verifyWeb3(cart, pay.Web3, now); err != nil {
			return Result{}, err
		}
		checkoutId = pay.Web3.OrderId
	}

	bodies, reserved, err := s.prepare(ctx, checkoutId, cart, pay, now)
	if err != nil {
		return Result{}, err
	}
	orders, err := s.orders.Create(ctx, bodies)
	if err != nil {
		s.release(ctx, reserved)
		return Result{}, xe.Wrap(err)
	}
	s.markOrdered(ctx, orders)

	result := Result{CheckoutId: checkoutId, Orders: orders, Total: decimal.Zero}
	for _, o := range orders {
		result.Total = result.Total.Add(o.Price)
	}

	switch pay.Method {
	case domain.Card:
		return s.payByCard(ctx, cart, pay, result, reserved)
	case domain.PayPal:
		return s.payByPayPal(ctx, result, reserved)
	case domain.Crypto:
		return s.payByCharge(ctx, cart, result)
	default:
		return s.payByWallet(ctx, pay.Web3, result)
	}
}

func (s *Service) verifyWeb3(cart Cart, w *Web3Payment, now time.Time) error {
	item := cart.Items[0]
	m := web3.OrderMessage{
		OrderId:  w.OrderId,
		Email:    cart.Customer.Email,
		Item:     item.Name,
		TokenId:  item.TokenId,
		Contract: item.Contract,
		PriceEth: w.PriceEth,
		SignedAt: w.SignedAt,
	}
	return web3.VerifyOrder(m, w.Signature, cart.Customer.Wallet, now)
}

// prepare builds order bodies and reserves drop items.
//
// When it fails, reservations made so far are released.
func (s *Service) prepare(
	ctx context.Context, checkoutId string, cart Cart, pay Payment, now time.Time,
) ([]domain.OrderBody, []string, error) {
	bodies := make([]domain.OrderBody, 0, len(cart.Items))
	reserved := []string{}

	for i, item := range cart.Items {
		id := fmt.Sprintf("%s-%d", checkoutId, i)
		body := domain.OrderBody{
			Id:         id,
			CheckoutId: checkoutId,
			Customer:   cart.Customer,
			Item:       item,
			Shipping:   cart.Shipping,
			Method:     pay.Method,
			Price:      s.pricing.of(pay.Method),
			CertURL:    CertURL(id),
		}

		if item.Kind == domain.DropItemKind {
			drop, di, err := s.drops.Reserve(ctx, item.DropItemId, cart.Customer.Email, now, domain.ReservationTTL)
			if err != nil {
				s.release(ctx, reserved)
				return nil, nil, xe.Wrap(err)
			}
			reserved = append(reserved, di.Id)
			body.Price = drop.Price
			if body.Item.Name == "" {
				body.Item.Name = di.Name
			}
			if body.Item.TokenId == "" {
				body.Item.TokenId = di.TokenId
			}
			if body.Item.ImageURL == "" {
				body.Item.ImageURL = di.OriginalImageURL
			}
		}

		if item.UploadId != "" {
			u, err := s.uploads.Get(ctx, item.UploadId)
			if err != nil {
				s.release(ctx, reserved)
				return nil, nil, xe.Wrap(err)
			}
			if body.Item.Name == "" {
				body.Item.Name = u.Name
			}
			body.Item.TokenId = u.Id
			body.Item.ImageURL = u.ImageURL()
		}

		if w := pay.Web3; pay.Method == domain.Web3 && w != nil {
			eth := w.PriceEth
			body.PriceEth = &eth
			body.Price = eth.Mul(s.pricing.EthUSD).Round(2)
			body.Web3Signature = w.Signature
			body.ChainId = w.ChainId
		}

		bodies = append(bodies, body)
	}
	return bodies, reserved, nil
}

func (s *Service) release(ctx context.Context, itemIds []string) {
	if len(itemIds) == 0 {
		return
	}
	if err := s.drops.Release(ctx, itemIds); err != nil {
		// reservations expire by themselves.
		s.logger.Warnf("failed to release drop items %v: %+v", itemIds, err)
	}
}

// markOrdered marks custom uploads of the orders ordered.
func (s *Service) markOrdered(ctx context.Context, orders []domain.Order) {
	for _, o := range orders {
		if o.Item.UploadId == "" {
			continue
		}
		if err := s.uploads.SetStatus(ctx, o.Item.UploadId, domain.Ordered); err != nil {
			s.logger.Warnf("failed to mark upload %s ordered: %+v", o.Item.UploadId, err)
		}
	}
}

// fail marks orders failed after the provider refused them.
func (s *Service) fail(ctx context.Context, result Result, reserved []string) {
	ids := make([]string, 0, len(result.Orders))
	for _, o := range result.Orders {
		ids = append(ids, o.Id)
	}
	if err := s.orders.SetStatus(ctx, ids, domain.Failed); err != nil {
		// the expire loop fails what is left pending.
		s.logger.Warnf("failed to mark orders %v failed: %+v", ids, err)
	}
	s.release(ctx, reserved)
}

// settle feeds a result of a provider into the inbox, as webhooks do,
// and reloads the orders.
func (s *Service) settle(ctx context.Context, ev domain.NewPaymentEvent, result Result) (Result, error) {
	if _, _, err := s.inbox.Ingest(ctx, ev); err != nil {
		return result, err
	}
	return s.reload(ctx, result)
}

func (s *Service) reload(ctx context.Context, result Result) (Result, error) {
	ids := make([]string, 0, len(result.Orders))
	for _, o := range result.Orders {
		ids = append(ids, o.Id)
	}
	got, err := s.orders.Get(ctx, ids)
	if err != nil {
		return result, xe.Wrap(err)
	}
	for i, o := range result.Orders {
		if r, ok := got[o.Id]; ok {
			result.Orders[i] = r
		}
	}
	return result, nil
}

func payload(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

func (s *Service) payByCard(ctx context.Context, cart Cart, pay Payment, result Result, reserved []string) (Result, error) {
	p, err := s.gateways.Card.CreatePayment(ctx, square.PaymentRequest{
		SourceId:       pay.SourceId,
		IdempotencyKey: result.CheckoutId,
		Amount:         result.Total,
		ReferenceId:    result.CheckoutId,
		BuyerEmail:     cart.Customer.Email,
		Note:           fmt.Sprintf("EtchNFT order %s (%d items)", result.CheckoutId, len(result.Orders)),
	})
	if err != nil {
		s.fail(ctx, result, reserved)
		return Result{}, xe.Wrap(err)
	}

	result.PaymentRef = p.Id
	result.ReceiptURL = p.ReceiptURL
	if err := s.orders.AttachPayment(ctx, result.CheckoutId, p.Id, p.ReceiptURL); err != nil {
		return result, xe.Wrap(err)
	}

	amount := p.Amount
	settled, err := s.settle(ctx, domain.NewPaymentEvent{
		Provider:   domain.Square,
		EventId:    fmt.Sprintf("checkout:%s:%s", p.Id, p.Status),
		EventType:  "checkout.card",
		Signal:     p.Signal(),
		OrderRef:   result.CheckoutId,
		PaymentRef: p.Id,
		Amount:     &amount,
		OccurredAt: s.clock(),
		Payload:    payload(p),
	}, result)
	if err != nil {
		// the payment is taken. Its webhook settles the orders later.
		return s.reload(ctx, result)
	}
	return settled, nil
}

func (s *Service) payByPayPal(ctx context.Context, result Result, reserved []string) (Result, error) {
	o, err := s.gateways.PayPal.CreateOrder(ctx, paypal.OrderRequest{
		CheckoutId:  result.CheckoutId,
		Amount:      result.Total,
		Description: fmt.Sprintf("EtchNFT order (%d items)", len(result.Orders)),
	})
	if err != nil {
		s.fail(ctx, result, reserved)
		return Result{}, xe.Wrap(err)
	}
	if err := s.orders.AttachPayment(ctx, result.CheckoutId, o.Id, o.ApprovalURL); err != nil {
		return Result{}, xe.Wrap(err)
	}
	result.PaymentRef = o.Id
	result.RedirectURL = o.ApprovalURL
	return s.reload(ctx, result)
}

// Capture takes the money of a PayPal order the customer approved.
//
// Orders of the checkout become paid, and the capture id replaces the PayPal order id
// as their payment reference.
func (s *Service) Capture(ctx context.Context, paypalOrderId string) (Result, error) {
	if s.gateways.PayPal == nil {
		return Result{}, fmt.Errorf("%w: %s", payments.ErrNotConfigured, domain.PayPal)
	}
	if paypalOrderId == "" {
		return Result{}, invalid("paypal order id is required")
	}

	c, err := s.gateways.PayPal.CaptureOrder(ctx, paypalOrderId)
	if err != nil {
		return Result{}, xe.Wrap(err)
	}
	if c.CheckoutId == "" {
		return Result{}, xe.Wrap(fmt.Errorf("paypal order %s carries no checkout reference", paypalOrderId))
	}

	signal := domain.SignalPending
	if c.Completed() {
		signal = domain.SignalCaptured
	}
	amount := c.Amount
	if _, _, err := s.inbox.Ingest(ctx, domain.NewPaymentEvent{
		Provider:   domain.PayPalProvider,
		EventId:    "capture:" + c.CaptureId,
		EventType:  "checkout.capture",
		Signal:     signal,
		OrderRef:   c.CheckoutId,
		PaymentRef: c.CaptureId,
		Amount:     &amount,
		OccurredAt: s.clock(),
		Payload:    payload(c),
	}); err != nil {
		return Result{}, err
	}

	orders, err := s.orders.Find(ctx, domain.OrderFindQuery{CheckoutId: c.CheckoutId})
	if err != nil {
		return Result{}, xe.Wrap(err)
	}
	return Result{
		CheckoutId: c.CheckoutId,
		Orders:     orders,
		Total:      c.Amount,
		PaymentRef: c.CaptureId,
	}, nil
}

func (s *Service) payByCharge(ctx context.Context, cart Cart, result Result) (Result, error) {
	ch, err := s.gateways.Crypto.CreateCharge(ctx, coinbase.ChargeRequest{
		Name:        "EtchNFT Order",
		Description: fmt.Sprintf("Physical NFT etching (%d items)", len(result.Orders)),
		Amount:      result.Total,
		Metadata: coinbase.Metadata{
			OrderId:       result.CheckoutId,
			CustomerEmail: cart.Customer.Email,
			CustomerName:  cart.Customer.Name,
			ItemCount:     len(result.Orders),
		},
		RedirectURL: s.redirectURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		// orders never reached coinbase.
		if derr := s.orders.DeleteProvisional(ctx, result.CheckoutId); derr != nil {
			return Result{}, xe.Wrap(errors.Join(err, derr))
		}
		return Result{}, xe.Wrap(err)
	}

	if err := s.orders.AttachPayment(ctx, result.CheckoutId, ch.Id, ch.HostedURL); err != nil {
		return Result{}, xe.Wrap(err)
	}
	result.PaymentRef = ch.Id
	result.RedirectURL = ch.HostedURL
	return s.reload(ctx, result)
}

func (s *Service) payByWallet(ctx context.Context, w *Web3Payment, result Result) (Result, error) {
	return s.settle(ctx, domain.NewPaymentEvent{
		Provider:   domain.Wallet,
		EventId:    "signature:" + result.CheckoutId,
		EventType:  "checkout.web3",
		Signal:     domain.SignalAuthorized,
		OrderRef:   result.CheckoutId,
		PaymentRef: w.TxHash,
		OccurredAt: s.clock(),
		Payload: payload(map[string]any{
			"signature": w.Signature,
			"chainId":   w.ChainId,
			"txHash":    w.TxHash,
			"priceEth":  w.PriceEth,
		}),
	}, result)
}

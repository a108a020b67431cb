package checkout_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/checkout"
	"github.com/cozyartz/etchNFT/pkg/domain"
	dropmock "github.com/cozyartz/etchNFT/pkg/domain/drop/db/mock"
	domerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	ordermock "github.com/cozyartz/etchNFT/pkg/domain/order/db/mock"
	uploadmock "github.com/cozyartz/etchNFT/pkg/domain/upload/db/mock"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/payments/coinbase"
	"github.com/cozyartz/etchNFT/pkg/payments/paypal"
	"github.com/cozyartz/etchNFT/pkg/payments/square"
	"github.com/cozyartz/etchNFT/pkg/payments/web3"
)

type cardGateway struct {
	requests []square.PaymentRequest
	payment  square.Payment
	err      error
}

func (g *cardGateway) CreatePayment(_ context.Context, req square.PaymentRequest) (square.Payment, error) {
	g.requests = append(g.requests, req)
	return g.payment, g.err
}

type paypalGateway struct {
	orders   []paypal.OrderRequest
	order    paypal.Order
	captures []string
	capture  paypal.Capture
	err      error
}

func (g *paypalGateway) CreateOrder(_ context.Context, req paypal.OrderRequest) (paypal.Order, error) {
	g.orders = append(g.orders, req)
	return g.order, g.err
}

func (g *paypalGateway) CaptureOrder(_ context.Context, id string) (paypal.Capture, error) {
	g.captures = append(g.captures, id)
	return g.capture, g.err
}

type chargeGateway struct {
	requests []coinbase.ChargeRequest
	charge   coinbase.Charge
	err      error
}

func (g *chargeGateway) CreateCharge(_ context.Context, req coinbase.ChargeRequest) (coinbase.Charge, error) {
	g.requests = append(g.requests, req)
	return g.charge, g.err
}

type inbox struct {
	events []domain.NewPaymentEvent
	err    error
}

func (i *inbox) Ingest(_ context.Context, ev domain.NewPaymentEvent) (domain.PaymentEvent, bool, error) {
	i.events = append(i.events, ev)
	return domain.PaymentEvent{NewPaymentEvent: ev}, true, i.err
}

type warnings struct {
	logged []string
}

func (w *warnings) Warnf(format string, args ...any) {
	w.logged = append(w.logged, fmt.Sprintf(format, args...))
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const contract = "0xb47e3cd837dDF8e4c57F05d70Ab865de6e193BBB"

func nftCart(n int) checkout.Cart {
	cart := checkout.Cart{
		Customer: domain.Customer{Email: "alice@example.com", Name: "Alice"},
		Shipping: domain.ShippingAddress{Name: "Alice", Line1: "1 Main St", City: "Austin", Country: "US"},
	}
	for i := range n {
		cart.Items = append(cart.Items, domain.Item{
			Kind: domain.NFT, Name: "Punk", TokenId: string(rune('1' + i)), Contract: contract, Chain: "ethereum",
		})
	}
	return cart
}

// orderStore fakes the orders table for a checkout.
type orderStore struct {
	*ordermock.OrderInterface
	rows map[string]domain.Order
}

func newOrderStore() *orderStore {
	s := &orderStore{OrderInterface: ordermock.NewOrderInterface(), rows: map[string]domain.Order{}}
	s.Impl.Create = func(_ context.Context, bodies []domain.OrderBody) ([]domain.Order, error) {
		created := []domain.Order{}
		for _, b := range bodies {
			o := domain.Order{OrderBody: b, Status: domain.Pending, CreatedAt: now}
			s.rows[b.Id] = o
			created = append(created, o)
		}
		return created, nil
	}
	s.Impl.Get = func(_ context.Context, ids []string) (map[string]domain.Order, error) {
		got := map[string]domain.Order{}
		for _, id := range ids {
			if o, ok := s.rows[id]; ok {
				got[id] = o
			}
		}
		return got, nil
	}
	s.Impl.AttachPayment = func(_ context.Context, checkoutId string, ref string, url string) error {
		for id, o := range s.rows {
			if o.CheckoutId == checkoutId {
				o.PaymentRef = ref
				o.HostedURL = url
				s.rows[id] = o
			}
		}
		return nil
	}
	return s
}

// setAll emulates what resolving an event does to the stored orders.
func (s *orderStore) setAll(status domain.OrderStatus) {
	for id, o := range s.rows {
		o.Status = status
		s.rows[id] = o
	}
}

func TestCheckout_Invalid(t *testing.T) {
	type When struct {
		Cart    checkout.Cart
		Payment checkout.Payment
	}

	theory := func(when When) func(*testing.T) {
		return func(t *testing.T) {
			// every mock panics when called.
			testee := checkout.New(
				ordermock.NewOrderInterface(), dropmock.NewDropInterface(), &inbox{},
				checkout.Gateways{Card: &cardGateway{}, PayPal: &paypalGateway{}, Crypto: &chargeGateway{}},
			)
			_, err := testee.Checkout(context.Background(), when.Cart, when.Payment)
			if !errors.Is(err, checkout.ErrInvalidCart) {
				t.Errorf("expected ErrInvalidCart, but %v", err)
			}
		}
	}

	card := checkout.Payment{Method: domain.Card, SourceId: "cnon:ok"}

	t.Run("empty cart", theory(When{Cart: nftCart(0), Payment: card}))
	t.Run("too many items", theory(When{Cart: nftCart(checkout.MaxItems + 1), Payment: card}))

	noEmail := nftCart(1)
	noEmail.Customer.Email = "alice"
	t.Run("malformed email", theory(When{Cart: noEmail, Payment: card}))

	noToken := nftCart(1)
	noToken.Items[0].TokenId = ""
	t.Run("nft without token id", theory(When{Cart: noToken, Payment: card}))

	artwork := nftCart(1)
	artwork.Items[0] = domain.Item{Kind: domain.Artwork, Name: "my art"}
	t.Run("artwork without image", theory(When{Cart: artwork, Payment: card}))

	upload := nftCart(1)
	upload.Items[0] = domain.Item{Kind: domain.Artwork, UploadId: "upl-1"}
	t.Run("artwork upload without upload storage", theory(When{Cart: upload, Payment: card}))

	nftUpload := nftCart(1)
	nftUpload.Items[0].UploadId = "upl-1"
	t.Run("nft with upload id", theory(When{Cart: nftUpload, Payment: card}))

	drop := nftCart(1)
	drop.Items[0] = domain.Item{Kind: domain.DropItemKind}
	t.Run("drop item without id", theory(When{Cart: drop, Payment: card}))

	t.Run("card without source", theory(When{Cart: nftCart(1), Payment: checkout.Payment{Method: domain.Card}}))
	t.Run("unknown method", theory(When{Cart: nftCart(1), Payment: checkout.Payment{Method: "cash"}}))
	t.Run("web3 without signature", theory(When{Cart: nftCart(1), Payment: checkout.Payment{Method: domain.Web3}}))

	noWallet := nftCart(1)
	t.Run("web3 without wallet", theory(When{Cart: noWallet, Payment: checkout.Payment{
		Method: domain.Web3,
		Web3:   &checkout.Web3Payment{OrderId: "web3_1", Signature: "0x00", PriceEth: decimal.RequireFromString("0.05")},
	}}))

	twoItems := nftCart(2)
	twoItems.Customer.Wallet = contract
	t.Run("web3 with several items", theory(When{Cart: twoItems, Payment: checkout.Payment{
		Method: domain.Web3,
		Web3:   &checkout.Web3Payment{OrderId: "web3_1", Signature: "0x00", PriceEth: decimal.RequireFromString("0.05")},
	}}))
}

func TestCheckout_NotConfigured(t *testing.T) {
	testee := checkout.New(
		ordermock.NewOrderInterface(), dropmock.NewDropInterface(), &inbox{}, checkout.Gateways{},
	)
	for _, method := range []domain.PaymentMethod{domain.Card, domain.PayPal, domain.Crypto} {
		_, err := testee.Checkout(
			context.Background(), nftCart(1),
			checkout.Payment{Method: method, SourceId: "cnon:ok"},
		)
		if !errors.Is(err, payments.ErrNotConfigured) {
			t.Errorf("%s: expected ErrNotConfigured, but %v", method, err)
		}
	}
}

func options() []checkout.Option {
	return []checkout.Option{
		checkout.WithClock(func() time.Time { return now }),
		checkout.WithIdGenerator(func() string { return "etch_test" }),
	}
}

func TestCheckout_Card(t *testing.T) {
	t.Run("it settles orders when square completes the payment", func(t *testing.T) {
		ctx := context.Background()
		orders := newOrderStore()
		events := &inbox{}
		card := &cardGateway{payment: square.Payment{
			Id: "pay-1", Status: "COMPLETED", ReceiptURL: "https://squareup.com/receipt/pay-1",
			Amount: decimal.RequireFromString("90.00"),
		}}

		testee := checkout.New(orders, dropmock.NewDropInterface(), events, checkout.Gateways{Card: card}, options()...)
		orders.Impl.Get = func(_ context.Context, ids []string) (map[string]domain.Order, error) {
			orders.setAll(domain.Paid)
			got := map[string]domain.Order{}
			for _, id := range ids {
				got[id] = orders.rows[id]
			}
			return got, nil
		}

		result, err := testee.Checkout(ctx, nftCart(2), checkout.Payment{Method: domain.Card, SourceId: "cnon:ok"})
		if err != nil {
			t.Fatal(err)
		}

		bodies := orders.Calls.Create.Last()
		if len(bodies) != 2 {
			t.Fatalf("one order per item should be created: %+v", bodies)
		}
		for i, b := range bodies {
			wantId := []string{"etch_test-0", "etch_test-1"}[i]
			if b.Id != wantId || b.CheckoutId != "etch_test" || b.CertURL != "/cert/"+wantId {
				t.Errorf("unexpected body: %+v", b)
			}
			if !b.Price.Equal(decimal.NewFromInt(45)) {
				t.Errorf("price: got %s, want 45", b.Price)
			}
		}

		req := card.requests[0]
		if req.IdempotencyKey != "etch_test" || req.ReferenceId != "etch_test" || !req.Amount.Equal(decimal.NewFromInt(90)) {
			t.Errorf("unexpected payment request: %+v", req)
		}

		if len(events.events) != 1 {
			t.Fatalf("one event should be ingested: %+v", events.events)
		}
		ev := events.events[0]
		if ev.Provider != domain.Square || ev.Signal != domain.SignalCaptured ||
			ev.OrderRef != "etch_test" || ev.PaymentRef != "pay-1" {
			t.Errorf("unexpected event: %+v", ev)
		}

		if result.PaymentRef != "pay-1" || result.ReceiptURL == "" || !result.Total.Equal(decimal.NewFromInt(90)) {
			t.Errorf("unexpected result: %+v", result)
		}
		for _, o := range result.Orders {
			if o.Status != domain.Paid {
				t.Errorf("%s: status %s, want paid", o.Id, o.Status)
			}
		}
	})

	t.Run("it fails orders and releases drop items when square declines", func(t *testing.T) {
		ctx := context.Background()
		orders := newOrderStore()
		orders.Impl.SetStatus = func(context.Context, []string, domain.OrderStatus) error { return nil }

		drops := dropmock.NewDropInterface()
		drops.Impl.Reserve = func(_ context.Context, itemId string, _ string, _ time.Time, _ time.Duration) (domain.Drop, domain.DropItem, error) {
			return domain.Drop{Id: "drop-1", Price: decimal.RequireFromString("120.00")},
				domain.DropItem{Id: itemId, Name: "Genesis #1", OriginalImageURL: "https://example.com/1.png"},
				nil
		}
		drops.Impl.Release = func(context.Context, []string) error { return nil }

		card := &cardGateway{err: payments.ErrDeclined}
		testee := checkout.New(orders, drops, &inbox{}, checkout.Gateways{Card: card}, options()...)

		cart := nftCart(0)
		cart.Items = []domain.Item{{Kind: domain.DropItemKind, DropItemId: "item-1"}}
		_, err := testee.Checkout(ctx, cart, checkout.Payment{Method: domain.Card, SourceId: "cnon:declined"})
		if !errors.Is(err, payments.ErrDeclined) {
			t.Fatalf("expected ErrDeclined, but %v", err)
		}

		reserve := drops.Calls.Reserve.Last()
		if reserve.ItemId != "item-1" || reserve.Email != "alice@example.com" ||
			!reserve.Now.Equal(now) || reserve.TTL != domain.ReservationTTL {
			t.Errorf("unexpected reservation: %+v", reserve)
		}

		body := orders.Calls.Create.Last()[0]
		if !body.Price.Equal(decimal.NewFromInt(120)) || body.Item.Name != "Genesis #1" {
			t.Errorf("drop item should be priced by its drop: %+v", body)
		}
		if !card.requests[0].Amount.Equal(decimal.NewFromInt(120)) {
			t.Errorf("amount: %s", card.requests[0].Amount)
		}

		set := orders.Calls.SetStatus.Last()
		if set.NewStatus != domain.Failed || !slices.Equal(set.Ids, []string{"etch_test-0"}) {
			t.Errorf("orders should be failed: %+v", set)
		}
		if got := drops.Calls.Release.Last(); !slices.Equal(got, []string{"item-1"}) {
			t.Errorf("reservation should be released: %v", got)
		}
	})

	t.Run("it logs cleanups which failed after square declines", func(t *testing.T) {
		ctx := context.Background()
		orders := newOrderStore()
		orders.Impl.SetStatus = func(context.Context, []string, domain.OrderStatus) error {
			return errors.New("connection reset")
		}
		drops := dropmock.NewDropInterface()
		drops.Impl.Reserve = func(_ context.Context, itemId string, _ string, _ time.Time, _ time.Duration) (domain.Drop, domain.DropItem, error) {
			return domain.Drop{Price: decimal.NewFromInt(100)}, domain.DropItem{Id: itemId}, nil
		}
		drops.Impl.Release = func(context.Context, []string) error { return errors.New("deadlock") }

		logger := &warnings{}
		testee := checkout.New(
			orders, drops, &inbox{}, checkout.Gateways{Card: &cardGateway{err: payments.ErrDeclined}},
			append(options(), checkout.WithLogger(logger))...,
		)

		cart := nftCart(0)
		cart.Items = []domain.Item{{Kind: domain.DropItemKind, DropItemId: "item-1"}}
		_, err := testee.Checkout(ctx, cart, checkout.Payment{Method: domain.Card, SourceId: "cnon:declined"})
		if !errors.Is(err, payments.ErrDeclined) {
			t.Fatalf("expected ErrDeclined, but %v", err)
		}

		if len(logger.logged) != 2 {
			t.Fatalf("unexpected warnings: %q", logger.logged)
		}
		if !strings.Contains(logger.logged[0], "etch_test-0") || !strings.Contains(logger.logged[0], "connection reset") {
			t.Errorf("failing orders is not logged: %q", logger.logged[0])
		}
		if !strings.Contains(logger.logged[1], "item-1") || !strings.Contains(logger.logged[1], "deadlock") {
			t.Errorf("releasing items is not logged: %q", logger.logged[1])
		}
	})

	t.Run("it releases reservations when a later item cannot be reserved", func(t *testing.T) {
		ctx := context.Background()
		drops := dropmock.NewDropInterface()
		drops.Impl.Reserve = func(_ context.Context, itemId string, _ string, _ time.Time, _ time.Duration) (domain.Drop, domain.DropItem, error) {
			if itemId == "item-2" {
				return domain.Drop{}, domain.DropItem{}, domerr.ErrNotPurchasable
			}
			return domain.Drop{Price: decimal.NewFromInt(100)}, domain.DropItem{Id: itemId}, nil
		}
		drops.Impl.Release = func(context.Context, []string) error { return nil }

		// orders are never created.
		testee := checkout.New(
			ordermock.NewOrderInterface(), drops, &inbox{},
			checkout.Gateways{Card: &cardGateway{}}, options()...,
		)

		cart := nftCart(0)
		cart.Items = []domain.Item{
			{Kind: domain.DropItemKind, DropItemId: "item-1"},
			{Kind: domain.DropItemKind, DropItemId: "item-2"},
		}
		_, err := testee.Checkout(ctx, cart, checkout.Payment{Method: domain.Card, SourceId: "cnon:ok"})
		if !errors.Is(err, domerr.ErrNotPurchasable) {
			t.Fatalf("expected ErrNotPurchasable, but %v", err)
		}
		if got := drops.Calls.Release.Last(); !slices.Equal(got, []string{"item-1"}) {
			t.Errorf("reservation should be released: %v", got)
		}
	})
}

func TestCheckout_CustomUpload(t *testing.T) {
	uploadCart := func() checkout.Cart {
		cart := nftCart(0)
		cart.Items = []domain.Item{{Kind: domain.Artwork, UploadId: "upl-1"}}
		return cart
	}

	t.Run("it etches the upload and marks it ordered", func(t *testing.T) {
		ctx := context.Background()
		orders := newOrderStore()
		uploads := uploadmock.NewUploadInterface()
		uploads.Impl.Get = func(_ context.Context, id string) (domain.Upload, error) {
			return domain.Upload{Id: id, Name: "My Ape", Email: "alice@example.com", Status: domain.Uploaded}, nil
		}
		uploads.Impl.SetStatus = func(context.Context, string, domain.UploadStatus) error { return nil }
		gateway := &paypalGateway{order: paypal.Order{Id: "PP-1", ApprovalURL: "https://www.paypal.com/checkoutnow?token=PP-1"}}

		testee := checkout.New(
			orders, dropmock.NewDropInterface(), &inbox{}, checkout.Gateways{PayPal: gateway},
			append(options(), checkout.WithUploads(uploads))...,
		)
		result, err := testee.Checkout(ctx, uploadCart(), checkout.Payment{Method: domain.PayPal})
		if err != nil {
			t.Fatal(err)
		}

		body := orders.Calls.Create.Last()[0]
		want := domain.Item{
			Kind: domain.Artwork, Name: "My Ape", TokenId: "upl-1",
			ImageURL: "/api/uploads/upl-1/image", UploadId: "upl-1",
		}
		if body.Item != want {
			t.Errorf("item:\n===actual===\n%+v\n===expected===\n%+v", body.Item, want)
		}
		if !body.Price.Equal(decimal.NewFromInt(45)) {
			t.Errorf("price: %s", body.Price)
		}
		set := uploads.Calls.SetStatus.Last()
		if set.Id != "upl-1" || set.Status != domain.Ordered {
			t.Errorf("upload should be ordered: %+v", set)
		}
		if result.RedirectURL == "" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("unknown uploads are missing and no order is placed", func(t *testing.T) {
		uploads := uploadmock.NewUploadInterface()
		uploads.Impl.Get = func(context.Context, string) (domain.Upload, error) {
			return domain.Upload{}, domerr.ErrMissing
		}
		// orders are never created.
		testee := checkout.New(
			ordermock.NewOrderInterface(), dropmock.NewDropInterface(), &inbox{},
			checkout.Gateways{PayPal: &paypalGateway{}},
			append(options(), checkout.WithUploads(uploads))...,
		)
		_, err := testee.Checkout(context.Background(), uploadCart(), checkout.Payment{Method: domain.PayPal})
		if !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("expected ErrMissing, but %v", err)
		}
	})
}

func TestCheckout_PayPal(t *testing.T) {
	ctx := context.Background()
	orders := newOrderStore()
	events := &inbox{}
	gateway := &paypalGateway{order: paypal.Order{
		Id: "PP-1", Status: "CREATED", ApprovalURL: "https://www.paypal.com/checkoutnow?token=PP-1",
	}}
	testee := checkout.New(orders, dropmock.NewDropInterface(), events, checkout.Gateways{PayPal: gateway}, options()...)

	result, err := testee.Checkout(ctx, nftCart(1), checkout.Payment{Method: domain.PayPal})
	if err != nil {
		t.Fatal(err)
	}
	if req := gateway.orders[0]; req.CheckoutId != "etch_test" || !req.Amount.Equal(decimal.NewFromInt(45)) {
		t.Errorf("unexpected paypal order: %+v", req)
	}
	if result.PaymentRef != "PP-1" || result.RedirectURL != gateway.order.ApprovalURL {
		t.Errorf("unexpected result: %+v", result)
	}
	if o := result.Orders[0]; o.Status != domain.Pending || o.PaymentRef != "PP-1" {
		t.Errorf("order should wait for capture: %+v", o)
	}
	if len(events.events) != 0 {
		t.Errorf("nothing is settled before capture: %+v", events.events)
	}

	t.Run("capture settles the checkout", func(t *testing.T) {
		gateway.capture = paypal.Capture{
			OrderId: "PP-1", CheckoutId: "etch_test", CaptureId: "CAP-1",
			Status: "COMPLETED", Amount: decimal.NewFromInt(45),
		}
		orders.Impl.Find = func(_ context.Context, q domain.OrderFindQuery) ([]domain.Order, error) {
			orders.setAll(domain.Paid)
			return []domain.Order{orders.rows["etch_test-0"]}, nil
		}

		captured, err := testee.Capture(ctx, "PP-1")
		if err != nil {
			t.Fatal(err)
		}
		ev := events.events[len(events.events)-1]
		if ev.Provider != domain.PayPalProvider || ev.Signal != domain.SignalCaptured ||
			ev.OrderRef != "etch_test" || ev.PaymentRef != "CAP-1" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if q := orders.Calls.Find.Last(); q.CheckoutId != "etch_test" {
			t.Errorf("unexpected query: %+v", q)
		}
		if captured.PaymentRef != "CAP-1" || captured.Orders[0].Status != domain.Paid {
			t.Errorf("unexpected result: %+v", captured)
		}
	})

	t.Run("capture without checkout reference is an error", func(t *testing.T) {
		gateway.capture = paypal.Capture{OrderId: "PP-2", CaptureId: "CAP-2", Status: "COMPLETED"}
		before := len(events.events)
		if _, err := testee.Capture(ctx, "PP-2"); err == nil {
			t.Error("expected error")
		}
		if len(events.events) != before {
			t.Error("no events should be ingested")
		}
	})
}

func TestCheckout_Crypto(t *testing.T) {
	t.Run("it returns the hosted charge page", func(t *testing.T) {
		ctx := context.Background()
		orders := newOrderStore()
		gateway := &chargeGateway{charge: coinbase.Charge{
			Id: "charge-1", Code: "ABCD", HostedURL: "https://commerce.coinbase.com/charges/ABCD",
		}}
		testee := checkout.New(
			orders, dropmock.NewDropInterface(), &inbox{}, checkout.Gateways{Crypto: gateway},
			append(options(), checkout.WithRedirects("https://etchnft.com/success", "https://etchnft.com/cancel"))...,
		)

		result, err := testee.Checkout(ctx, nftCart(3), checkout.Payment{Method: domain.Crypto})
		if err != nil {
			t.Fatal(err)
		}
		req := gateway.requests[0]
		if req.Metadata.OrderId != "etch_test" || req.Metadata.ItemCount != 3 ||
			req.Metadata.CustomerEmail != "alice@example.com" || !req.Amount.Equal(decimal.NewFromInt(135)) {
			t.Errorf("unexpected charge: %+v", req)
		}
		if req.RedirectURL != "https://etchnft.com/success" || req.CancelURL != "https://etchnft.com/cancel" {
			t.Errorf("unexpected redirects: %+v", req)
		}
		if result.RedirectURL != gateway.charge.HostedURL || result.PaymentRef != "charge-1" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("it deletes provisional orders when no charge is created", func(t *testing.T) {
		ctx := context.Background()
		orders := newOrderStore()
		orders.Impl.DeleteProvisional = func(context.Context, string) error { return nil }
		fault := errors.New("coinbase is down")
		testee := checkout.New(
			orders, dropmock.NewDropInterface(), &inbox{},
			checkout.Gateways{Crypto: &chargeGateway{err: fault}}, options()...,
		)

		if _, err := testee.Checkout(ctx, nftCart(1), checkout.Payment{Method: domain.Crypto}); !errors.Is(err, fault) {
			t.Fatalf("expected fault, but %v", err)
		}
		if got := orders.Calls.DeleteProvisional.Last(); got != "etch_test" {
			t.Errorf("checkout should be deleted: %s", got)
		}
		if orders.Calls.AttachPayment.Times() != 0 {
			t.Error("no payment should be attached")
		}
	})
}

func signOrder(t *testing.T, m web3.OrderMessage) (signature string, wallet string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(m.String())), key)
	if err != nil {
		t.Fatal(err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestCheckout_Web3(t *testing.T) {
	price := decimal.RequireFromString("0.05")
	message := func(signedAt time.Time) web3.OrderMessage {
		return web3.OrderMessage{
			OrderId: "web3_1714564800000", Email: "alice@example.com", Item: "Punk", TokenId: "1",
			Contract: contract, PriceEth: price, SignedAt: signedAt,
		}
	}

	t.Run("it confirms an order signed by the wallet", func(t *testing.T) {
		ctx := context.Background()
		signedAt := now.Add(-2 * time.Minute)
		sig, wallet := signOrder(t, message(signedAt))

		orders := newOrderStore()
		orders.Impl.Get = func(_ context.Context, ids []string) (map[string]domain.Order, error) {
			orders.setAll(domain.Confirmed)
			return map[string]domain.Order{ids[0]: orders.rows[ids[0]]}, nil
		}
		events := &inbox{}
		testee := checkout.New(orders, dropmock.NewDropInterface(), events, checkout.Gateways{}, options()...)

		cart := nftCart(1)
		cart.Customer.Wallet = wallet
		result, err := testee.Checkout(ctx, cart, checkout.Payment{
			Method: domain.Web3,
			Web3: &checkout.Web3Payment{
				OrderId: "web3_1714564800000", Signature: sig, PriceEth: price, SignedAt: signedAt, ChainId: 1,
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		body := orders.Calls.Create.Last()[0]
		if body.Id != "web3_1714564800000-0" || body.CheckoutId != "web3_1714564800000" {
			t.Errorf("signed order id should be the checkout id: %+v", body)
		}
		if !body.Price.Equal(decimal.NewFromInt(90)) || body.PriceEth == nil || !body.PriceEth.Equal(price) {
			t.Errorf("unexpected price: %s (%v ETH)", body.Price, body.PriceEth)
		}
		if body.Web3Signature != sig || body.ChainId != 1 || body.Customer.Wallet != wallet {
			t.Errorf("signature should be stored: %+v", body)
		}

		ev := events.events[0]
		if ev.Provider != domain.Wallet || ev.Signal != domain.SignalAuthorized || ev.OrderRef != "web3_1714564800000" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if o := result.Orders[0]; o.Status != domain.Confirmed || o.Network() != "ethereum-1" {
			t.Errorf("unexpected order: %+v", o)
		}
	})

	t.Run("it rejects stale signatures before writing anything", func(t *testing.T) {
		signedAt := now.Add(-web3.MaxAge - time.Second)
		sig, wallet := signOrder(t, message(signedAt))

		testee := checkout.New(
			ordermock.NewOrderInterface(), dropmock.NewDropInterface(), &inbox{}, checkout.Gateways{}, options()...,
		)
		cart := nftCart(1)
		cart.Customer.Wallet = wallet
		_, err := testee.Checkout(context.Background(), cart, checkout.Payment{
			Method: domain.Web3,
			Web3: &checkout.Web3Payment{
				OrderId: "web3_1714564800000", Signature: sig, PriceEth: price, SignedAt: signedAt, ChainId: 1,
			},
		})
		if !errors.Is(err, web3.ErrStale) {
			t.Errorf("expected ErrStale, but %v", err)
		}
	})

	t.Run("it rejects messages signed by another wallet", func(t *testing.T) {
		signedAt := now.Add(-time.Minute)
		sig, _ := signOrder(t, message(signedAt))

		testee := checkout.New(
			ordermock.NewOrderInterface(), dropmock.NewDropInterface(), &inbox{}, checkout.Gateways{}, options()...,
		)
		cart := nftCart(1)
		cart.Customer.Wallet = contract
		_, err := testee.Checkout(context.Background(), cart, checkout.Payment{
			Method: domain.Web3,
			Web3: &checkout.Web3Payment{
				OrderId: "web3_1714564800000", Signature: sig, PriceEth: price, SignedAt: signedAt, ChainId: 1,
			},
		})
		if !errors.Is(err, web3.ErrSignerMismatch) {
			t.Errorf("expected ErrSignerMismatch, but %v", err)
		}
	})
}

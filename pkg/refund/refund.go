// Package refund cancels orders for customers and refunds them for admins.
package refund

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	domerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/payments/paypal"
	"github.com/cozyartz/etchNFT/pkg/payments/square"
)

var (
	// ErrInvalidAmount is returned when a refund amount is not in (0, price].
	ErrInvalidAmount = errors.New("invalid refund amount")

	// ErrRefundFailed is returned when the provider does not refund.
	// The order is moved to refund_failed.
	ErrRefundFailed = errors.New("refund failed")
)

const (
	// customers cancel freely within this window after ordering.
	CancelWindow = 24 * time.Hour

	// orders older than this can be cancelled as an emergency.
	EmergencyAfter = 30 * 24 * time.Hour
)

type CardRefunder interface {
	RefundPayment(ctx context.Context, req square.RefundRequest) (square.Refund, error)
}

type PayPalRefunder interface {
	RefundCapture(ctx context.Context, captureId string, amount decimal.Decimal, note string) (paypal.Refund, error)
}

var (
	_ CardRefunder   = &square.Client{}
	_ PayPalRefunder = &paypal.Client{}
)

type Service struct {
	orders korder.OrderInterface
	card   CardRefunder
	paypal PayPalRefunder
	clock  func() time.Time
}

type Option func(*Service)

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New returns the service. A nil refunder makes refunds of its method manual for cancels
// and failed for admin refunds.
func New(orders korder.OrderInterface, card CardRefunder, paypal PayPalRefunder, options ...Option) *Service {
	s := &Service{orders: orders, card: card, paypal: paypal, clock: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Service) get(ctx context.Context, orderId string) (domain.Order, error) {
	got, err := s.orders.Get(ctx, []string{orderId})
	if err != nil {
		return domain.Order{}, xe.Wrap(err)
	}
	o, ok := got[orderId]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %s", domerr.ErrMissing, orderId)
	}
	return o, nil
}

// issued is what a provider did for a refund request.
type issued struct {
	Method domain.RefundMethod
	Ref    string
	State  domain.RefundState
}

// issue asks the provider of the order to refund amount.
func (s *Service) issue(ctx context.Context, o domain.Order, key string, amount decimal.Decimal, reason string) (issued, error) {
	switch o.Method {
	case domain.Card:
		if s.card == nil {
			return issued{Method: domain.RefundBySquare}, payments.ErrNotConfigured
		}
		if o.PaymentRef == "" {
			return issued{Method: domain.RefundBySquare}, fmt.Errorf("order %s has no square payment", o.Id)
		}
		r, err := s.card.RefundPayment(ctx, square.RefundRequest{
			PaymentId:      o.PaymentRef,
			IdempotencyKey: key,
			Amount:         amount,
			Reason:         reason,
		})
		if err != nil {
			return issued{Method: domain.RefundBySquare, Ref: r.Id}, err
		}
		state := domain.RefundStateCompleted
		if r.Pending() {
			state = domain.RefundStatePending
		}
		return issued{Method: domain.RefundBySquare, Ref: r.Id, State: state}, nil

	case domain.PayPal:
		if s.paypal == nil {
			return issued{Method: domain.RefundByPayPal}, payments.ErrNotConfigured
		}
		if o.PaymentRef == "" {
			return issued{Method: domain.RefundByPayPal}, fmt.Errorf("order %s has no paypal capture", o.Id)
		}
		r, err := s.paypal.RefundCapture(ctx, o.PaymentRef, amount, reason)
		if err != nil {
			return issued{Method: domain.RefundByPayPal, Ref: r.Id}, err
		}
		state := domain.RefundStateCompleted
		if r.Pending() {
			state = domain.RefundStatePending
		}
		return issued{Method: domain.RefundByPayPal, Ref: r.Id, State: state}, nil

	case domain.Web3:
		return issued{Method: domain.RefundByBlockchain, State: domain.RefundStatePending}, nil
	}
	return issued{Method: domain.RefundManually, State: domain.RefundStatePending}, nil
}

// EstimatedTime tells customers when the money comes back.
func EstimatedTime(method domain.RefundMethod) string {
	if method == domain.RefundByBlockchain {
		return "15-30 minutes (depending on network congestion)"
	}
	return "5-10 business days"
}

type CancelRequest struct {
	OrderId string

	// wallet of the requester. Required when the order has a wallet.
	Wallet string
	Reason string
}

type CancelResult struct {
	Order        domain.Order
	Kind         domain.CancelKind
	RefundMethod domain.RefundMethod
	RefundRef    string
	RefundState  domain.RefundState
	Amount       decimal.Decimal

	// why the refund falls back to manual processing, if it does.
	Note          string
	EstimatedTime string
}

func cancellable(s domain.OrderStatus) bool {
	switch s {
	case domain.Pending, domain.Confirmed, domain.Paid:
		return true
	}
	return false
}

// CancelKindAt decides how an order created at createdAt can be cancelled at now.
//
// It returns false when now is between the cancel window and the emergency period.
func CancelKindAt(createdAt time.Time, now time.Time) (domain.CancelKind, bool) {
	elapsed := now.Sub(createdAt)
	switch {
	case elapsed <= CancelWindow:
		return domain.StandardCancel, true
	case EmergencyAfter < elapsed:
		return domain.EmergencyCancel, true
	}
	return "", false
}

// Cancel cancels an order on behalf of the customer and refunds the price.
//
// A refund the provider refuses falls back to manual processing; the order is cancelled anyway.
//
// # Returns
//
// - error: domerr.ErrMissing, domerr.ErrNotOwner or domerr.ErrNotEligible.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (CancelResult, error) {
	o, err := s.get(ctx, req.OrderId)
	if err != nil {
		return CancelResult{}, err
	}
	if o.Customer.Wallet != "" && !strings.EqualFold(o.Customer.Wallet, req.Wallet) {
		return CancelResult{}, fmt.Errorf("%w: %s", domerr.ErrNotOwner, o.Id)
	}
	if !cancellable(o.Status) {
		return CancelResult{}, fmt.Errorf("%w: cannot cancel order with status %s", domerr.ErrNotEligible, o.Status)
	}

	now := s.clock()
	kind, ok := CancelKindAt(o.CreatedAt, now)
	if !ok {
		return CancelResult{}, fmt.Errorf(
			"%w: order can only be cancelled within 24 hours or after 30 days for emergency refund (%d hours elapsed)",
			domerr.ErrNotEligible, int(now.Sub(o.CreatedAt).Round(time.Hour).Hours()),
		)
	}

	reason := req.Reason
	if reason == "" {
		reason = "No reason provided"
	}

	result := CancelResult{Kind: kind, Amount: o.Price}
	is, err := s.issue(ctx, o, "cancel-"+o.Id, o.Price, reason)
	if err != nil {
		is = issued{Method: domain.RefundManually, State: domain.RefundStatePending}
		result.Note = fmt.Sprintf("automatic refund failed, will be processed manually: %s", err)
	}
	result.RefundMethod = is.Method
	result.RefundRef = is.Ref
	result.RefundState = is.State
	result.EstimatedTime = EstimatedTime(is.Method)

	if err := s.orders.Cancel(ctx, domain.Cancellation{
		OrderId:      o.Id,
		Kind:         kind,
		Reason:       reason,
		RefundMethod: is.Method,
		RefundRef:    is.Ref,
		RefundState:  is.State,
		Amount:       o.Price,
		CreatedAt:    now,
	}); err != nil {
		return CancelResult{}, xe.Wrap(err)
	}

	o.Status = domain.Cancelled
	result.Order = o
	return result, nil
}

type Eligibility struct {
	Order           domain.Order
	Eligible        bool
	AlreadyRefunded bool
	MaxAmount       decimal.Decimal
}

func refundable(s domain.OrderStatus) bool {
	switch s {
	case domain.Paid, domain.Confirmed, domain.InProduction, domain.Failed:
		return true
	}
	return false
}

func refundedAlready(s domain.OrderStatus) bool {
	switch s {
	case domain.Refunded, domain.Cancelled, domain.RefundFailed:
		return true
	}
	return false
}

// Eligibility tells admins whether the order can be refunded.
func (s *Service) Eligibility(ctx context.Context, orderId string) (Eligibility, error) {
	o, err := s.get(ctx, orderId)
	if err != nil {
		return Eligibility{}, err
	}
	return Eligibility{
		Order:           o,
		Eligible:        refundable(o.Status),
		AlreadyRefunded: refundedAlready(o.Status),
		MaxAmount:       o.Price,
	}, nil
}

type RefundRequest struct {
	OrderId string

	// full price when nil.
	Amount *decimal.Decimal
	Reason string

	// admin issuing the refund.
	AdminId string
}

type RefundResult struct {
	Order        domain.Order
	Amount       decimal.Decimal
	RefundMethod domain.RefundMethod
	RefundRef    string
	RefundState  domain.RefundState
}

// Refund refunds an order on behalf of an admin.
//
// The order moves to refunded, or refund_pending while the provider processes it.
// Methods without an automated refund are recorded as manual refunds.
//
// # Returns
//
// - RefundResult: the refund. It is returned with ErrRefundFailed, too.
//
// - error: domerr.ErrMissing, domerr.ErrNotEligible, ErrInvalidAmount, or
// ErrRefundFailed when the provider refuses. Then the order is moved to refund_failed.
func (s *Service) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	o, err := s.get(ctx, req.OrderId)
	if err != nil {
		return RefundResult{}, err
	}
	if !refundable(o.Status) {
		return RefundResult{}, fmt.Errorf("%w: order with status %s is not eligible for refund", domerr.ErrNotEligible, o.Status)
	}

	amount := o.Price
	if req.Amount != nil {
		amount = *req.Amount
	}
	if !amount.IsPositive() || amount.GreaterThan(o.Price) {
		return RefundResult{}, fmt.Errorf("%w: %s (price %s)", ErrInvalidAmount, amount.StringFixed(2), o.Price.StringFixed(2))
	}

	reason := req.Reason
	if reason == "" {
		reason = "Admin initiated refund"
	}

	// a retried refund gets a new idempotency key.
	prior, err := s.orders.Refunds(ctx, o.Id)
	if err != nil {
		return RefundResult{}, xe.Wrap(err)
	}
	key := fmt.Sprintf("refund-%s-%d", o.Id, len(prior)+1)

	is, issueErr := s.issue(ctx, o, key, amount, reason)
	newStatus := domain.Refunded
	switch {
	case issueErr != nil:
		is.State = domain.RefundStateFailed
		newStatus = domain.RefundFailed
	case is.State == domain.RefundStatePending && is.Method != domain.RefundManually && is.Method != domain.RefundByBlockchain:
		newStatus = domain.RefundPending
	}

	if err := s.orders.Refund(ctx, domain.AdminRefund{
		OrderId:      o.Id,
		AdminId:      req.AdminId,
		Amount:       amount,
		Reason:       reason,
		RefundMethod: is.Method,
		RefundRef:    is.Ref,
		RefundState:  is.State,
		CreatedAt:    s.clock(),
	}, newStatus); err != nil {
		return RefundResult{}, xe.Wrap(err)
	}

	o.Status = newStatus
	result := RefundResult{
		Order: o, Amount: amount,
		RefundMethod: is.Method, RefundRef: is.Ref, RefundState: is.State,
	}
	if issueErr != nil {
		return result, fmt.Errorf("%w: %w", ErrRefundFailed, issueErr)
	}
	return result, nil
}

package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Provider string

const (
	Square         Provider = "square"
	PayPalProvider Provider = "paypal"
	Coinbase       Provider = "coinbase"
	Wallet         Provider = "wallet"
)

func (p Provider) String() string {
	return string(p)
}

func AsProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case Square, PayPalProvider, Coinbase, Wallet:
		return p, nil
	}
	return "", fmt.Errorf("unknown payment provider: %s", s)
}

// Signal is a provider-independent meaning of a payment event.
type Signal string

const (
	SignalNone          Signal = "none"
	SignalPending       Signal = "pending"
	SignalAuthorized    Signal = "authorized"
	SignalCaptured      Signal = "captured"
	SignalFailed        Signal = "failed"
	SignalRefundPending Signal = "refund_pending"
	SignalRefunded      Signal = "refunded"
)

func (s Signal) String() string {
	return string(s)
}

func AsSignal(s string) (Signal, error) {
	switch sig := Signal(s); sig {
	case SignalNone, SignalPending, SignalAuthorized, SignalCaptured,
		SignalFailed, SignalRefundPending, SignalRefunded:
		return sig, nil
	}
	return "", fmt.Errorf("unknown signal: %s", s)
}

// Target returns the order status the signal drives orders to.
//
// SignalNone and SignalPending have no target; pending is where orders start.
func (s Signal) Target() (OrderStatus, bool) {
	switch s {
	case SignalAuthorized:
		return Confirmed, true
	case SignalCaptured:
		return Paid, true
	case SignalFailed:
		return Failed, true
	case SignalRefundPending:
		return RefundPending, true
	case SignalRefunded:
		return Refunded, true
	}
	return "", false
}

type EventState string

const (
	// recorded, waiting to be applied.
	EventReceived EventState = "received"

	// applied onto orders.
	EventApplied EventState = "applied"

	// nothing to apply (stale, regressive or informational event).
	EventIgnored EventState = "ignored"

	// gave up after retries.
	EventDead EventState = "dead"
)

func (s EventState) String() string {
	return string(s)
}

func EventStates() []EventState {
	return []EventState{EventReceived, EventApplied, EventIgnored, EventDead}
}

func AsEventState(s string) (EventState, error) {
	switch st := EventState(s); st {
	case EventReceived, EventApplied, EventIgnored, EventDead:
		return st, nil
	}
	return "", fmt.Errorf("unknown event state: %s", s)
}

// NewPaymentEvent is a normalized webhook/callback payload from a provider.
type NewPaymentEvent struct {
	Provider Provider

	// event id given by the provider. Unique per provider.
	EventId   string
	EventType string
	Signal    Signal

	// our reference to orders: checkout id or order id.
	OrderRef string

	// provider's reference to the payment (payment id, capture id, charge id).
	PaymentRef string

	Amount *decimal.Decimal

	OccurredAt time.Time
	Payload    json.RawMessage
}

type PaymentEvent struct {
	NewPaymentEvent

	Id            int64
	State         EventState
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
}

// EventCursor points a position to pick payment events in the reconcile loop.
type EventCursor struct {
	// last picked event id.
	Head int64
}

type EventFindQuery struct {
	Provider []Provider
	State    []EventState
	OrderRef string
	Limit    int
	Offset   int
}

type VerdictKind string

const (
	// apply Verdict.Status onto orders.
	Apply VerdictKind = "apply"

	// mark the event as ignored.
	Ignore VerdictKind = "ignore"

	// try again later, orders are not ready (or not found) yet.
	Defer VerdictKind = "defer"
)

// Verdict is the decision how a payment event changes orders.
type Verdict struct {
	Kind VerdictKind

	// new status of orders in Targets. Only for Apply.
	Status OrderStatus

	// ids of orders to be changed. Only for Apply.
	Targets []string

	// human readable reason, recorded with the event.
	Reason string
}

// RetryPolicy decides when deferred events are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Factor         float64
}

// Backoff returns delay before the next attempt, after `attempts` failures.
func (r RetryPolicy) Backoff(attempts int) time.Duration {
	d := float64(r.InitialBackoff)
	for i := 1; i < attempts; i++ {
		d *= r.Factor
	}
	return time.Duration(d)
}

// Exhausted reports whether an event has no more attempts.
func (r RetryPolicy) Exhausted(attempts int) bool {
	return r.MaxAttempts <= attempts
}

// DefaultRetryPolicy retries a deferred event 8 times, from 30 seconds up to about an hour.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 8, InitialBackoff: 30 * time.Second, Factor: 2}
}

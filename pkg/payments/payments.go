// Package payments holds what payment provider adapters share.
package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

var (
	// ErrMissingSignature is returned when a webhook request lacks signature headers.
	ErrMissingSignature = errors.New("signature is missing")

	// ErrNotConfigured is returned when credentials or secrets of a provider are not configured.
	ErrNotConfigured = errors.New("provider is not configured")

	// ErrInvalidSignature is returned when a webhook signature does not match.
	ErrInvalidSignature = errors.New("signature mismatch")

	// ErrDeclined is returned when a provider refuses a payment or a refund.
	ErrDeclined = errors.New("declined by provider")
)

// Webhook verifies and normalizes webhook deliveries of a provider.
type Webhook interface {
	// Provider sending the webhook.
	Provider() domain.Provider

	// Verify checks the delivery came from the provider.
	//
	// It returns ErrMissingSignature, ErrNotConfigured or ErrInvalidSignature.
	Verify(ctx context.Context, header http.Header, body []byte) error

	// Parse normalizes the payload into an event.
	Parse(body []byte) (domain.NewPaymentEvent, error)
}

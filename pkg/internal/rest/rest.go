// Package rest calls JSON APIs of payment providers and indexers.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cozyartz/etchNFT/pkg/utils/retry"
)

// StatusError is an unexpected response from a provider.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Temporary reports whether the request may succeed on retry.
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || 500 <= e.Status
}

type Client struct {
	HTTP *http.Client

	// Attempts per request. Requests are retried on 429, 5xx and transport errors.
	Attempts int

	// Backoff before the second attempt. It doubles for each attempt.
	Backoff time.Duration
}

func (c Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

// Do sends a JSON request and decodes the JSON response into out.
//
// in and out can be nil.
func (c Client) Do(
	ctx context.Context, method string, url string, header http.Header, in any, out any,
) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = b
	}

	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.Attempts(attempts, retry.ExponentialBackoff(c.Backoff, 2))

	_, err := retry.Blocking(ctx, backoff, func() (struct{}, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return struct{}{}, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return struct{}{}, err
			}
			return struct{}{}, errors.Join(retry.ErrRetry, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return struct{}{}, errors.Join(retry.ErrRetry, err)
		}

		if resp.StatusCode < 200 || 300 <= resp.StatusCode {
			serr := &StatusError{Method: method, URL: url, Status: resp.StatusCode, Body: string(raw)}
			if serr.Temporary() {
				return struct{}{}, errors.Join(retry.ErrRetry, serr)
			}
			return struct{}{}, serr
		}

		if out == nil || len(raw) == 0 {
			return struct{}{}, nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return struct{}{}, fmt.Errorf("%s %s: unexpected response: %w", method, url, err)
		}
		return struct{}{}, nil
	})
	return err
}

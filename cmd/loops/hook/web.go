package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	cfg_hook "github.com/cozyartz/etchNFT/pkg/configs/hook"
)

// Web is a hook posting the value T as JSON to URLs.
//
// URLs are called one by one. The hook fails at the first URL answering other than 2xx.
type Web[T any, R any] struct {
	BeforeURL []*url.URL
	AfterURL  []*url.URL

	// Merge combines JSON responses of before hooks. Non-JSON responses are not merged.
	Merge func(a, b R) R

	// Client sends requests. http.DefaultClient if nil.
	Client *http.Client
}

// Build makes a web hook from the lifecycle hook config.
func Build[T any, R any](cfg cfg_hook.WebHook, merge func(a, b R) R) Web[T, R] {
	return Web[T, R]{
		BeforeURL: cfg.Before,
		AfterURL:  cfg.After,
		Merge:     merge,
	}
}

func (w Web[T, R]) client() *http.Client {
	if w.Client == nil {
		return http.DefaultClient
	}
	return w.Client
}

func isJSON(ctype string) bool {
	mt, _, err := mime.ParseMediaType(ctype)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func (w Web[T, R]) send(ctx context.Context, u string, payload []byte) (R, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return *new(R), false, errors.Join(err, ErrHookFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client().Do(req)
	if err != nil {
		return *new(R), false, errors.Join(err, ErrHookFailed)
	}
	defer resp.Body.Close()

	ctype := resp.Header.Get("Content-Type")
	if 200 <= resp.StatusCode && resp.StatusCode < 300 {
		if !isJSON(ctype) {
			return *new(R), false, nil
		}
		r := new(R)
		if err := json.NewDecoder(resp.Body).Decode(r); err != nil && !errors.Is(err, io.EOF) {
			return *r, false, errors.Join(err, ErrHookFailed)
		}
		return *r, true, nil
	}

	if !strings.HasPrefix(ctype, "text/") && !isJSON(ctype) {
		return *new(R), false, fmt.Errorf(
			"%w (%s %d, Content-Type: %s)", ErrHookFailed, u, resp.StatusCode, ctype,
		)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return *new(R), false, fmt.Errorf(
		"%w (%s %d, Content-Type: %s): %s", ErrHookFailed, u, resp.StatusCode, ctype, string(body),
	)
}

func (w Web[T, R]) hook(ctx context.Context, value T, urls []*url.URL) (R, error) {
	ret := *new(R)
	if len(urls) == 0 {
		return ret, nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return ret, err
	}

	merged := false
	for _, u := range urls {
		r, ok, err := w.send(ctx, u.String(), payload)
		if err != nil {
			return *new(R), err
		}
		if !ok {
			continue
		}
		if merged && w.Merge != nil {
			ret = w.Merge(ret, r)
		} else {
			ret = r
		}
		merged = true
	}
	return ret, nil
}

func (w Web[T, R]) Before(ctx context.Context, value T) (R, error) {
	return w.hook(ctx, value, w.BeforeURL)
}

func (w Web[T, R]) After(ctx context.Context, value T) error {
	_, err := w.hook(ctx, value, w.AfterURL)
	return err
}

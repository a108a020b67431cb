// Package http builds echo contexts for handler tests.
package http

import (
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
)

type RequestOption func(req *http.Request)

func WithHeader(key string, value string, values ...string) RequestOption {
	return func(req *http.Request) {
		for _, v := range append([]string{value}, values...) {
			req.Header.Add(key, v)
		}
	}
}

func WithCookie(cookie *http.Cookie) RequestOption {
	return func(req *http.Request) {
		req.AddCookie(cookie)
	}
}

// ContentType is WithHeader("Content-Type", ctype).
func ContentType(ctype string) RequestOption {
	return WithHeader(echo.HeaderContentType, ctype)
}

func request(
	e *echo.Echo, method string, target string, body io.Reader, opts []RequestOption,
) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, body)
	for _, opt := range opts {
		opt(req)
	}
	resp := httptest.NewRecorder()
	return e.NewContext(req, resp), resp
}

func Get(e *echo.Echo, target string, opts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	return request(e, http.MethodGet, target, nil, opts)
}

func Post(e *echo.Echo, target string, body io.Reader, opts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	return request(e, http.MethodPost, target, body, opts)
}

func Put(e *echo.Echo, target string, body io.Reader, opts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	return request(e, http.MethodPut, target, body, opts)
}

func Delete(e *echo.Echo, target string, opts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	return request(e, http.MethodDelete, target, nil, opts)
}

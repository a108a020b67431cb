package echoutil

import (
	"net"
	"strings"

	"github.com/labstack/echo/v4"
)

// ClientIP finds the address of the client behind proxies.
//
// It looks CF-Connecting-IP, the first of X-Forwarded-For, X-Real-IP and the remote address in order.
func ClientIP(c echo.Context) string {
	req := c.Request()
	if ip := strings.TrimSpace(req.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(req.Header.Get(echo.HeaderXRealIP)); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

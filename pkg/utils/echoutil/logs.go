package echoutil

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// LogHandlerFunc logs each request when it arrives and when it is answered.
//
// Query strings are left out: checkout and callback URLs carry tokens.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		req := c.Request()
		method, path, client := req.Method, req.URL.Path, ClientIP(c)
		began := time.Now()
		c.Logger().Infof("< %s %s from %s", method, path, client)

		defer func() {
			c.Logger().Infof(
				"> %s %s from %s: %d in %s (error: %v)",
				method, path, client, c.Response().Status, time.Since(began), err,
			)
		}()
		return next(c)
	}
}

var levels = map[string]log.Lvl{
	"debug": log.DEBUG,
	"info":  log.INFO,
	"warn":  log.WARN,
	"":      log.WARN,
	"error": log.ERROR,
	"off":   log.OFF,
}

// SetLevel sets the level of e.Logger by name. Unknown names fall back to warn.
func SetLevel(e *echo.Echo, loglevel string) {
	lvl, ok := levels[strings.ToLower(loglevel)]
	if !ok {
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s. falls back to warn", loglevel)
		return
	}
	e.Logger.SetLevel(lvl)
}

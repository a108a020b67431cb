// Package ratelimit counts requests per client in fixed windows.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
	"github.com/cozyartz/etchNFT/pkg/utils/echoutil"
)

// Decision is the state of a window after counting a request.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	// Allow counts a request for key and decides whether it is allowed.
	Allow(ctx context.Context, key string, limit int) (Decision, error)
}

func decide(count int64, limit int, resetAt time.Time) Decision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

type window struct {
	count   int64
	resetAt time.Time
}

// InMemory is a Limiter for a single process.
type InMemory struct {
	window time.Duration
	clock  func() time.Time

	m       sync.Mutex
	windows map[string]*window
}

type Option func(*InMemory)

func WithClock(clock func() time.Time) Option {
	return func(l *InMemory) { l.clock = clock }
}

func NewInMemory(size time.Duration, options ...Option) *InMemory {
	l := &InMemory{window: size, clock: time.Now, windows: map[string]*window{}}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *InMemory) Allow(_ context.Context, key string, limit int) (Decision, error) {
	l.m.Lock()
	defer l.m.Unlock()

	now := l.clock()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count += 1
	return decide(w.count, limit, w.resetAt), nil
}

// Sweep forgets windows which have been closed.
func (l *InMemory) Sweep() int {
	l.m.Lock()
	defer l.m.Unlock()

	now := l.clock()
	n := 0
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
			n += 1
		}
	}
	return n
}

// Redis is a Limiter shared by processes.
type Redis struct {
	client *redis.Client
	window time.Duration
	prefix string
}

func NewRedis(client *redis.Client, size time.Duration) *Redis {
	return &Redis{client: client, window: size, prefix: "etchnft:ratelimit:"}
}

func (l *Redis) Allow(ctx context.Context, key string, limit int) (Decision, error) {
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, xe.Wrap(err)
	}
	if count == 1 {
		// the window starts now.
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, xe.Wrap(err)
		}
		return decide(count, limit, time.Now().Add(l.window)), nil
	}

	rest, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, xe.Wrap(err)
	}
	if rest < 0 {
		// expiry is lost. set it again not to block the key forever.
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, xe.Wrap(err)
		}
		rest = l.window
	}
	return decide(count, limit, time.Now().Add(rest)), nil
}

// Middleware limits requests by client ip and user agent.
//
// When the limiter fails, requests are allowed.
func Middleware(l Limiter, limit int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := echoutil.ClientIP(c) + ":" + c.Request().UserAgent()
			d, err := l.Allow(c.Request().Context(), key, limit)
			if err != nil {
				c.Logger().Warnf("rate limiter is unavailable: %+v", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				retryAfter := int(time.Until(d.ResetAt).Round(time.Second).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				return apierr.TooManyRequests("retry after " + strconv.Itoa(retryAfter) + " seconds")
			}
			return next(c)
		}
	}
}

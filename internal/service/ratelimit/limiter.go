// Package ratelimit throttles analysis requests per client key.
package ratelimit

import (
	"sync"

	apphttp "QuantLab/pkg/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{m: make(map[string]*rate.Limiter), rps: rate.Limit(rps), burst: burst}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.m[key]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.m[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return apphttp.TooManyRequestsResponse(c)
			}
			return next(c)
		}
	}
}

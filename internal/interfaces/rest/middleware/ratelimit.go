package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/metrics"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitOption per client limits of a route group
type RateLimitOption struct {
	Group           string // metric label
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration // how often idle clients are forgotten
	Now             func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter token buckets keyed by client address
type ClientLimiter struct {
	option *RateLimitOption

	mu          sync.Mutex
	visitors    map[string]*visitor
	lastCleanup time.Time
}

// NewClientLimiter ...
func NewClientLimiter(option *RateLimitOption) *ClientLimiter {
	if option.CleanupInterval <= 0 {
		option.CleanupInterval = 5 * time.Minute
	}
	if option.Now == nil {
		option.Now = time.Now
	}
	return &ClientLimiter{
		option:      option,
		visitors:    make(map[string]*visitor),
		lastCleanup: option.Now(),
	}
}

// Allow consumes one token of client
func (cl *ClientLimiter) Allow(client string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.option.Now()
	v, ok := cl.visitors[client]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(cl.option.Rate, cl.option.Burst)}
		cl.visitors[client] = v
	}
	v.lastSeen = now

	if now.Sub(cl.lastCleanup) > cl.option.CleanupInterval {
		for key, item := range cl.visitors {
			if now.Sub(item.lastSeen) > cl.option.CleanupInterval {
				delete(cl.visitors, key)
			}
		}
		cl.lastCleanup = now
	}
	return v.limiter.AllowN(now, 1)
}

// RateLimit rejects clients exceeding the limiter with 429
func RateLimit(cl *ClientLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cl.Allow(c.RealIP()) {
				metrics.RateLimited.WithLabelValues(cl.option.Group).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, slow down")
			}
			return next(c)
		}
	}
}

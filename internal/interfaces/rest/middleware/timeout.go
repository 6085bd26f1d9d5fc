package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// AbortRequestOption ...
type AbortRequestOption struct {
	Skipper middleware.Skipper
	Timeout time.Duration
}

// AbortRequest cancels the request context once Timeout elapsed, a zero Timeout disables it
func AbortRequest(options ...*AbortRequestOption) echo.MiddlewareFunc {
	cfg := &AbortRequestOption{
		Skipper: middleware.DefaultSkipper,
	}
	if len(options) > 0 {
		option := options[0]
		if option.Skipper != nil {
			cfg.Skipper = option.Skipper
		}
		cfg.Timeout = option.Timeout
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Timeout <= 0 || cfg.Skipper(c) {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/pscheid92/decept/internal/platform/errors"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter throttles request bursts per client IP. The daily game caps
// are enforced separately by the use cases. echo's limiter hands handler
// errors to c.Error instead of returning them, so both handlers write the
// structured response themselves.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		ErrorHandler: func(c echo.Context, err error) error {
			return writeError(c, apperrors.InternalError("failed to identify client", err))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return writeError(c, apperrors.RateLimitedError("rate limit exceeded"))
		},
	})
}

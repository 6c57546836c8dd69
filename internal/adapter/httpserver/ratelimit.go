package httpserver

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	apperrors "github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/errors"
)

const rateLimiterExpiry = 5 * time.Minute

// rateLimitKey buckets requests per client and call session, so one busy
// call does not use up the budget of other calls behind the same address.
func rateLimitKey(c echo.Context) string {
	return c.RealIP() + "|" + c.Param("sessionId")
}

// retryAfterSeconds is how long a throttled client waits for one token.
func retryAfterSeconds(perSecond float64) int {
	if perSecond <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/perSecond)))
}

func newRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: rateLimiterExpiry,
	})
	retryAfter := strconv.Itoa(retryAfterSeconds(perSecond))

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return rateLimitKey(c), nil
		},
		// The limiter hands DenyHandler's result to c.Error, which bypasses
		// ErrorHandlingMiddleware, so the response is written here.
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			c.Response().Header().Set(echo.HeaderRetryAfter, retryAfter)
			e := apperrors.RateLimitedError("rate limit exceeded")
			if err := c.JSON(e.HTTPStatus(), e.ToResponse()); err != nil {
				return fmt.Errorf("failed to send rate limit response: %w", err)
			}
			return nil
		},
	})
}

package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit limits requests per client IP. formatted uses the limiter
// notation, e.g. "300-M" for 300 requests per minute.
func RateLimit(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}

	instance := limiter.New(memory.NewStore(), rate)

	return func(c *gin.Context) {
		result, err := instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Fail open; the store is in-process
			log.Printf("[ratelimit] Rate limiter error: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))

		if result.Reached {
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please slow down")
			return
		}

		c.Next()
	}, nil
}

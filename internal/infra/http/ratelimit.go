package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edhedges/receive-kit/internal/domain"
)

// rateLimit throttles submissions per client IP with a fixed window. A
// limiter outage fails open unless configured otherwise.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || s.cfg.RateLimitRequests <= 0 {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.cfg.RateLimitRequests, s.cfg.RateLimitWindow())
		if err != nil {
			if s.cfg.RateLimitFailClosed {
				writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
				c.Abort()
				return
			}
			s.log.Warn().Err(err).Msg("rate limiter unavailable, failing open")
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if decision.ResetAt.IsZero() {
		return
	}
	c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	if !decision.Allowed {
		retryAfter := int64(time.Until(decision.ResetAt).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/V-25K/Guess-sub004/internal/ratelimit"
)

// userIDHeader carries the platform-authenticated user id. Authentication
// itself happens upstream of this service; requests without the header are
// limited per client IP instead.
const userIDHeader = "X-User-ID"

// Policy is the quota applied to one endpoint/role combination.
type Policy struct {
	Limit         int
	WindowSeconds int
}

// RateLimit enforces a sliding-window quota per caller for one endpoint.
// The check result is always exposed through X-RateLimit-* headers; over
// quota requests are rejected with 429. A limiter that cannot reach its
// store admits the request (fail open).
func RateLimit(limiter *ratelimit.Limiter, endpoint string, policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := endpoint + ":" + CallerIdentity(c)

		result, err := limiter.Check(c.Request.Context(), key, policy.Limit, policy.WindowSeconds)
		if err != nil {
			// Invalid policy is a programming error in the route table;
			// don't take traffic down for it.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(policy.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CallerIdentity identifies the caller for rate limiting: the platform user
// id when present and valid, otherwise the client IP.
func CallerIdentity(c *gin.Context) string {
	if id, ok := UserID(c); ok {
		return id.String()
	}
	return c.ClientIP()
}

// UserID returns the platform user id from the request, if present.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(userIDHeader)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

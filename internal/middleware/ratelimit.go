package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a moderator's limiter survives without a
// request before the cleanup loop drops it.
const limiterIdleTTL = 10 * time.Minute

type moderatorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	limiters map[uuid.UUID]*moderatorLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(rps int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[uuid.UUID]*moderatorLimiter),
		rate:     rate.Limit(rps),
		burst:    rps * 2,
	}
}

func (rl *RateLimiter) getLimiter(moderatorID uuid.UUID) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[moderatorID]
	if !exists {
		entry = &moderatorLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[moderatorID] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter
}

// evictIdle drops limiters that have not seen a request within the TTL.
// Active moderators keep their token buckets across cleanup passes.
func (rl *RateLimiter) evictIdle(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for id, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, id)
			evicted++
		}
	}
	return evicted
}

// Cleanup periodically evicts idle limiters so the map cannot grow without
// bound
func (rl *RateLimiter) Cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for range ticker.C {
			rl.evictIdle(time.Now().Add(-limiterIdleTTL))
		}
	}()
}

// RateLimitMiddleware limits requests per authenticated moderator
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		moderatorID, exists := c.Get("user_id")
		if !exists {
			c.Next()
			return
		}

		id, ok := moderatorID.(uuid.UUID)
		if !ok {
			c.Next()
			return
		}

		limiter := rl.getLimiter(id)
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

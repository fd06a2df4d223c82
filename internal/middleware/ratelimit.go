package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit caps requests per client IP and route within a fixed window. State
// lives in process memory, which is enough for a single API instance; the
// shared-store variant in ratelimit_store.go covers multi-instance setups.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	type bucket struct {
		hits     int
		resetsAt time.Time
	}

	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)

	// Sweep stale buckets so the map does not grow with every unique client.
	sweeper := time.NewTicker(window)
	go func() {
		for range sweeper.C {
			now := time.Now()
			mu.Lock()
			for key, b := range buckets {
				if now.After(b.resetsAt) {
					delete(buckets, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		if maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP() + "|" + c.FullPath()
		now := time.Now()

		mu.Lock()
		b, ok := buckets[key]
		if !ok || now.After(b.resetsAt) {
			b = &bucket{resetsAt: now.Add(window)}
			buckets[key] = b
		}
		b.hits++
		hits := b.hits
		resetIn := time.Until(b.resetsAt)
		mu.Unlock()

		remaining := maxRequests - hits
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if hits > maxRequests {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		c.Next()
	}
}

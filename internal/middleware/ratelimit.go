package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 300
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "mooddrop:ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "mooddrop:blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = time.Hour

	redisLimitTimeout = time.Second
)

// RedisRateLimit is a fixed-window per-IP limit shared by every instance.
// An IP that exceeds it is blocked for BlockedIPDuration. Redis errors fail
// open.
func RedisRateLimit(client *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.RealClientIP(r)
			ctx, cancel := context.WithTimeout(r.Context(), redisLimitTimeout)
			defer cancel()

			blocked, err := IsIPBlocked(ctx, client, ip)
			if err == nil && blocked {
				tooManyRequests(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
				return
			}

			key := RateLimitKeyPrefix + ip
			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				slog.Warn("ratelimit: redis unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				// first request of the window
				client.Expire(ctx, key, RateLimitWindow)
			}

			if count > RateLimitMaxRequests {
				if err := client.Set(ctx, BlockedIPKeyPrefix+ip, "1", BlockedIPDuration).Err(); err != nil {
					slog.Warn("ratelimit: failed to block ip", "ip", ip, "error", err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.","retry_after":%d}`, int(BlockedIPDuration.Seconds()))))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(RateLimitMaxRequests-count, 0), 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(RateLimitWindow).Unix(), 10))
			next.ServeHTTP(w, r)
		})
	}
}

// UnblockIP removes an IP from the blocked list
func UnblockIP(ctx context.Context, client *redis.Client, ipAddress string) error {
	return client.Del(ctx, BlockedIPKeyPrefix+ipAddress).Err()
}

// IsIPBlocked checks if an IP is currently blocked
func IsIPBlocked(ctx context.Context, client *redis.Client, ipAddress string) (bool, error) {
	count, err := client.Exists(ctx, BlockedIPKeyPrefix+ipAddress).Result()
	return count > 0, err
}

package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ms-coupons/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Limiter implements fixed-window rate limiting on Redis counters. It is
// advisory abuse mitigation, not a correctness mechanism, so it fails open
// when Redis is unavailable.
type Limiter struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewLimiter(client *redis.Client, log *logger.Logger) *Limiter {
	return &Limiter{Client: client, Logger: log}
}

// Allow increments the counter for key and reports whether the caller is
// still inside the window's budget.
func (l *Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, error) {
	count, err := l.Client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}

	if count == 1 {
		if err := l.Client.Expire(ctx, key, window).Err(); err != nil {
			return true, err
		}
	}

	return count <= int64(max), nil
}

// Limit is chi middleware bounding requests per client IP for one endpoint
// purpose (issue, validate, confirm).
func (l *Limiter) Limit(purpose string, max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s:%s", purpose, clientIP(r))

			allowed, err := l.Allow(r.Context(), key, window, max)
			if err != nil {
				// Fail open: a Redis outage must not block redemptions.
				l.Logger.Warn("RATELIMIT", fmt.Sprintf("rate limit check failed: %v", err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				l.Logger.LogSecurity("RATE_LIMITED", fmt.Sprintf("%s exceeded %s limit", clientIP(r), purpose))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":"too many requests"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/platinummonkey/critique/pkg/httputil"
	"github.com/platinummonkey/critique/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
	// MaxKeys bounds the number of tracked clients; least recently seen are evicted
	MaxKeys int
	// TrustForwardedFor keys anonymous clients by X-Forwarded-For when behind a proxy
	TrustForwardedFor bool
}

// DefaultRateLimitConfig returns settings suited to the signup and token endpoints
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 20,
		WindowDuration:    time.Minute,
		BurstSize:         5,
		MaxKeys:           10000,
	}
}

// Limiter decides whether the client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter is an in-process token bucket limiter keyed by client
type RateLimiter struct {
	config   *RateLimitConfig
	limit    rate.Limit
	limiters *lru.Cache[string, *rate.Limiter]
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	maxKeys := config.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultRateLimitConfig().MaxKeys
	}

	// lru.New only fails for a non-positive size
	cache, _ := lru.New[string, *rate.Limiter](maxKeys)

	return &RateLimiter{
		config:   config,
		limit:    rate.Every(config.WindowDuration / time.Duration(max(config.RequestsPerWindow, 1))),
		limiters: cache,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, max(rl.config.BurstSize, 1))
		rl.limiters.Add(key, limiter)
	}
	return limiter
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return rl.getLimiter(key).Allow(), nil
}

// Remaining returns the number of whole tokens left for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	limiter, ok := rl.limiters.Peek(key)
	rl.mu.Unlock()

	if !ok {
		return max(rl.config.BurstSize, 1)
	}
	return int(math.Max(0, math.Floor(limiter.Tokens())))
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	return rl.limiters.Len()
}

// RateLimitMiddleware provides HTTP rate limiting over any Limiter
type RateLimitMiddleware struct {
	limiter  Limiter
	config   *RateLimitConfig
	failOpen bool
}

// NewRateLimitMiddleware creates a new rate limit middleware.
// With failOpen, limiter errors let the request through.
func NewRateLimitMiddleware(limiter Limiter, config *RateLimitConfig, failOpen bool) *RateLimitMiddleware {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimitMiddleware{
		limiter:  limiter,
		config:   config,
		failOpen: failOpen,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.clientKey(r)

		allowed, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("Rate limiter unavailable")
			if m.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "service temporarily unavailable")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.config.RequestsPerWindow))
		if !allowed {
			retryAfter := m.config.WindowDuration / time.Duration(max(m.config.RequestsPerWindow, 1))
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(retryAfter.Seconds())))
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) clientKey(r *http.Request) string {
	if user := Actor(r); user != nil {
		return fmt.Sprintf("user:%d", user.ID)
	}
	return "ip:" + clientIP(r, m.config.TrustForwardedFor)
}

func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		// Check X-Forwarded-For header (if behind proxy)
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			return strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

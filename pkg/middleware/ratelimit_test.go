package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/contextkeys"
)

func testRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Hour,
		BurstSize:         3,
		MaxKeys:           100,
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(testRateLimitConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i)
	}

	ok, err := rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "burst exhausted")

	ok, _ = rl.Allow(ctx, "ip:5.6.7.8")
	assert.True(t, ok, "other clients are independent")
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(testRateLimitConfig())

	assert.Equal(t, 3, rl.Remaining("k"))
	rl.Allow(context.Background(), "k")
	assert.Equal(t, 2, rl.Remaining("k"))
}

func TestRateLimiter_EvictsLeastRecent(t *testing.T) {
	cfg := testRateLimitConfig()
	cfg.MaxKeys = 2
	rl := NewRateLimiter(cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rl.Allow(ctx, "exhausted")
	}
	rl.Allow(ctx, "b")
	rl.Allow(ctx, "c")

	assert.Equal(t, 2, rl.Len())
	ok, _ := rl.Allow(ctx, "exhausted")
	assert.True(t, ok, "evicted client starts a fresh bucket")
}

func TestNewRateLimiter_NilConfig(t *testing.T) {
	rl := NewRateLimiter(nil)
	require.NotNil(t, rl)
	assert.Equal(t, DefaultRateLimitConfig(), rl.config)
}

func TestRateLimiter_Concurrency(t *testing.T) {
	cfg := testRateLimitConfig()
	cfg.BurstSize = 50
	rl := NewRateLimiter(cfg)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := rl.Allow(context.Background(), "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name           string
		remoteAddr     string
		headers        map[string]string
		trustForwarded bool
		want           string
	}{
		{"remote addr", "10.0.0.1:5555", nil, false, "10.0.0.1"},
		{"forwarded ignored", "10.0.0.1:5555", map[string]string{"X-Forwarded-For": "1.1.1.1"}, false, "10.0.0.1"},
		{"forwarded trusted", "10.0.0.1:5555", map[string]string{"X-Forwarded-For": "1.1.1.1, 10.0.0.2"}, true, "1.1.1.1"},
		{"real ip trusted", "10.0.0.1:5555", map[string]string{"X-Real-IP": "2.2.2.2"}, true, "2.2.2.2"},
		{"no port", "10.0.0.1", nil, false, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r, tt.trustForwarded))
		})
	}
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func TestRateLimitMiddleware_Handler(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("anonymous keyed by ip", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true}
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", nil)
		r.RemoteAddr = "9.9.9.9:1234"

		w := serve(NewRateLimitMiddleware(limiter, nil, true).Handler(ok), r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"ip:9.9.9.9"}, limiter.keys)
		assert.Equal(t, "20", w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("authenticated keyed by user", func(t *testing.T) {
		limiter := &stubLimiter{allowed: true}
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r = r.WithContext(contextkeys.WithAuth(r.Context(), &auth.AuthContext{User: &auth.User{ID: 42}}))

		serve(NewRateLimitMiddleware(limiter, nil, true).Handler(ok), r)

		assert.Equal(t, []string{"user:42"}, limiter.keys)
	})

	t.Run("exceeded", func(t *testing.T) {
		cfg := testRateLimitConfig()
		w := serve(NewRateLimitMiddleware(&stubLimiter{}, cfg, true).Handler(ok),
			httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, fmt.Sprint(int(time.Hour.Seconds())), w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate limit exceeded")
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		w := serve(NewRateLimitMiddleware(&stubLimiter{err: errors.New("redis down")}, nil, true).Handler(ok),
			httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("limiter error fails closed", func(t *testing.T) {
		w := serve(NewRateLimitMiddleware(&stubLimiter{err: errors.New("redis down")}, nil, false).Handler(ok),
			httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("in-memory limiter end to end", func(t *testing.T) {
		cfg := testRateLimitConfig()
		handler := NewRateLimitMiddleware(NewRateLimiter(cfg), cfg, true).Handler(ok)

		codes := make([]int, 0, 4)
		for i := 0; i < 4; i++ {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = "3.3.3.3:1"
			codes = append(codes, serve(handler, r).Code)
		}
		assert.Equal(t, []int{200, 200, 200, 429}, codes)
	})
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/taskhub/pkg/util"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter(2, 60)
	now := time.Date(2026, 10, 15, 9, 0, 10, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, time.Date(2026, 10, 15, 9, 1, 0, 0, time.UTC), d.Reset)

	d, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, d.Allowed)

	// other clients have their own budget
	d, _ = limiter.Allow(ctx, "10.0.0.2")
	assert.True(t, d.Allowed)

	now = now.Add(time.Minute)
	d, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, d.Allowed, "a new window starts from zero")
}

func TestRateLimit_Middleware(t *testing.T) {
	handler := RateLimit(NewMemoryLimiter(1, 60), nil, util.DiscardLogger())(okHandler())

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.RemoteAddr = "192.0.2.1:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis: connection refused")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	handler := RateLimit(brokenLimiter{}, nil, util.DiscardLogger())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/tasks", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestGetClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.5"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		proxies *TrustedProxies
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote_addr", nil, nil, "192.0.2.1:1234", "192.0.2.1"},
		{"remote_addr_ipv6", nil, nil, "[2001:db8::1]:1234", "2001:db8::1"},
		{"untrusted_forwarded_for", nil, map[string]string{"X-Forwarded-For": "203.0.113.9"}, "192.0.2.1:80", "192.0.2.1"},
		{"untrusted_real_ip", proxies, map[string]string{"X-Real-IP": "203.0.113.7"}, "192.0.2.1:80", "192.0.2.1"},
		{"trusted_forwarded_for", proxies, map[string]string{"X-Forwarded-For": "203.0.113.9"}, "10.0.0.1:80", "203.0.113.9"},
		{"spoofed_left_hop", proxies, map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.9, 10.0.0.2"}, "10.0.0.1:80", "203.0.113.9"},
		{"trusted_single_address", proxies, map[string]string{"X-Forwarded-For": "203.0.113.9"}, "192.168.1.5:80", "203.0.113.9"},
		{"trusted_real_ip", proxies, map[string]string{"X-Real-IP": "203.0.113.7"}, "10.0.0.1:80", "203.0.113.7"},
		{"trusted_garbage_header", proxies, map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.1:80", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req, tt.proxies))
		})
	}
}

func TestRateLimit_IgnoresForwardedForFromClients(t *testing.T) {
	handler := RateLimit(NewMemoryLimiter(1, 60), nil, util.DiscardLogger())(okHandler())

	for i, xff := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest("GET", "/api/tasks", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		req.Header.Set("X-Forwarded-For", xff)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code, "a new header must not buy a new budget")
		}
	}
}

func TestParseTrustedProxies(t *testing.T) {
	tp, err := ParseTrustedProxies(nil)
	require.NoError(t, err)
	assert.Nil(t, tp)

	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)

	tp, err = ParseTrustedProxies([]string{"::1"})
	require.NoError(t, err)
	assert.True(t, tp.contains("::1"))
	assert.False(t, tp.contains("::2"))
}

// Runs against a real server when TEST_REDIS_ADDR is set, e.g. localhost:6379
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	limiter := NewRedisLimiter(client, 2, 60)
	limiter.prefix = "taskhub:test:" + uuid.NewString() + ":"

	for i, want := range []bool{true, true, false} {
		d, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.Equal(t, want, d.Allowed, "request %d", i+1)
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hugh/taskhub/internal/api/dto"
	"github.com/redis/go-redis/v9"
)

// Limiter counts requests per key in fixed windows
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

func newDecision(count int64, limit int, reset time.Time) Decision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
	}
}

func normalize(requests, windowSeconds int) (int, time.Duration) {
	if requests <= 0 {
		requests = 100 // Default
	}
	if windowSeconds <= 0 {
		windowSeconds = 60 // Default
	}
	return requests, time.Duration(windowSeconds) * time.Second
}

// RedisLimiter shares counters between every server instance. Each window is
// one key that expires with it.
type RedisLimiter struct {
	client   redis.Cmdable
	requests int
	window   time.Duration
	prefix   string
	now      func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, requests, windowSeconds int) *RedisLimiter {
	requests, window := normalize(requests, windowSeconds)
	return &RedisLimiter{
		client:   client,
		requests: requests,
		window:   window,
		prefix:   "taskhub:ratelimit:",
		now:      time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	start := l.now().Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, start.Unix())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	return newDecision(incr.Val(), l.requests, start.Add(l.window)), nil
}

// MemoryLimiter is the single-process fallback when Redis is not configured
type MemoryLimiter struct {
	requests int
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	start   time.Time
	clients map[string]int64
}

func NewMemoryLimiter(requests, windowSeconds int) *MemoryLimiter {
	requests, window := normalize(requests, windowSeconds)
	return &MemoryLimiter{
		requests: requests,
		window:   window,
		now:      time.Now,
		clients:  make(map[string]int64),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	start := l.now().Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	// A new window forgets every counter at once
	if !start.Equal(l.start) {
		l.start = start
		l.clients = make(map[string]int64)
	}
	l.clients[key]++

	return newDecision(l.clients[key], l.requests, start.Add(l.window)), nil
}

// RateLimit rejects clients over their budget with 429. When the limiter
// itself fails the request is let through.
func RateLimit(limiter Limiter, proxies *TrustedProxies, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.Allow(r.Context(), getClientIP(r, proxies))
			if err != nil {
				logger.Warn("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			// Set rate limit headers
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(d.Reset).Seconds())+1, 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "Rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TrustedProxies is the set of peers allowed to report the client address
// through X-Forwarded-For or X-Real-IP. A nil set trusts no one.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies accepts CIDR ranges and single addresses
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	tp := &TrustedProxies{}
	for _, e := range entries {
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("invalid proxy address %q", e)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			tp.nets = append(tp.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy range %q: %w", e, err)
		}
		tp.nets = append(tp.nets, n)
	}
	return tp, nil
}

func (tp *TrustedProxies) contains(addr string) bool {
	if tp == nil {
		return false
	}
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	for _, n := range tp.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// getClientIP keys requests by the connecting peer. Forwarding headers are
// only read when that peer is a trusted proxy; X-Forwarded-For is walked from
// the right, skipping further trusted hops.
func getClientIP(r *http.Request, proxies *TrustedProxies) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if !proxies.contains(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			if !proxies.contains(hop) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	return remote
}

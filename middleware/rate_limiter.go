package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/deukmosi-create/task-earning-platform/utils"
)

// slidingWindow counts hits per key over a trailing window.
type slidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   map[string][]int64 // unix nanos
}

func newSlidingWindow(window time.Duration) *slidingWindow {
	return &slidingWindow{window: window, hits: make(map[string][]int64)}
}

// hit records a request for key and returns the number of hits in the window
// including this one, and when the oldest of them expires.
func (s *slidingWindow) hit(key string, now time.Time) (int, time.Duration) {
	ns := now.UnixNano()
	cutoff := ns - int64(s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.hits[key][:0]
	for _, ts := range s.hits[key] {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, ns)
	s.hits[key] = kept
	retry := time.Duration(kept[0] + int64(s.window) - ns)
	if retry < time.Second {
		retry = time.Second
	}
	return len(kept), retry
}

func (s *slidingWindow) sweep(now time.Time) {
	cutoff := now.UnixNano() - int64(s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, arr := range s.hits {
		if len(arr) == 0 || arr[len(arr)-1] < cutoff {
			delete(s.hits, k)
		}
	}
}

func sweepLoop(stop <-chan struct{}, every time.Duration, fn func(time.Time)) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-tick.C:
			fn(now)
		}
	}
}

func tooManyRequests(w http.ResponseWriter, retry time.Duration) {
	secs := int(retry.Seconds())
	w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
		Success: false,
		Message: "Too many requests, try again later",
		Data:    map[string]interface{}{"retry_after_seconds": secs},
	})
}

// IPRateLimiter limits requests per client IP.
type IPRateLimiter struct {
	limit   int
	trusted []string
	win     *slidingWindow
	stop    chan struct{}
}

// NewIPRateLimiter allows limit requests per window. X-Forwarded-For is only
// honoured when the peer is one of trustedProxies (IPs or CIDRs).
func NewIPRateLimiter(limit int, window time.Duration, trustedProxies []string) *IPRateLimiter {
	l := &IPRateLimiter{limit: limit, trusted: trustedProxies, win: newSlidingWindow(window), stop: make(chan struct{})}
	go sweepLoop(l.stop, time.Minute, l.win.sweep)
	return l
}

func (l *IPRateLimiter) Stop() { close(l.stop) }

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, retry := l.win.hit(clientIPGeneric(r, l.trusted), time.Now())
		remaining := l.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		if count > l.limit {
			tooManyRequests(w, retry)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIPGeneric returns the client IP string. X-Forwarded-For / X-Real-IP
// are honoured only when the remote address is inside trustedCIDR.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteHost = r.RemoteAddr
	}
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" || remoteIP == nil {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil && ipnet.Contains(remoteIP) {
				trusted = true
				break
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	return remoteHost
}

// UserLimits are per-minute request budgets by route category.
type UserLimits struct {
	API    int
	Submit int
	Admin  int
}

// UserRateLimiter limits authenticated users per route category, with
// escalating lockouts for repeat offenders.
type UserRateLimiter struct {
	limits  UserLimits
	win     *slidingWindow
	mu      sync.Mutex
	penalty map[string]penaltyInfo
	stop    chan struct{}
}

type penaltyInfo struct {
	Level int
	Until time.Time
}

func NewUserRateLimiter(limits UserLimits) *UserRateLimiter {
	if limits.API <= 0 {
		limits.API = 100
	}
	if limits.Submit <= 0 {
		limits.Submit = 10
	}
	if limits.Admin <= 0 {
		limits.Admin = 500
	}
	l := &UserRateLimiter{limits: limits, win: newSlidingWindow(time.Minute), penalty: make(map[string]penaltyInfo), stop: make(chan struct{})}
	go sweepLoop(l.stop, time.Minute, l.sweep)
	return l
}

func (l *UserRateLimiter) Stop() { close(l.stop) }

func routeCategory(r *http.Request) string {
	switch {
	case strings.Contains(r.URL.Path, "/admin/"):
		return "admin"
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/submit"):
		return "submit"
	}
	return "api"
}

func (l *UserRateLimiter) limitFor(cat string) int {
	switch cat {
	case "admin":
		return l.limits.Admin
	case "submit":
		return l.limits.Submit
	}
	return l.limits.API
}

// penaltyFor escalates 1m, 5m, 15m then 30m.
func penaltyFor(level int) time.Duration {
	switch level {
	case 1:
		return time.Minute
	case 2:
		return 5 * time.Minute
	case 3:
		return 15 * time.Minute
	}
	return 30 * time.Minute
}

func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := utils.GetUserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		cat := routeCategory(r)
		key := fmt.Sprintf("u:%d:%s", uid, cat)
		now := time.Now()

		l.mu.Lock()
		pi := l.penalty[key]
		if pi.Until.After(now) {
			l.mu.Unlock()
			tooManyRequests(w, pi.Until.Sub(now))
			return
		}
		limit := l.limitFor(cat)
		count, _ := l.win.hit(key, now)
		if count > limit {
			pi.Level++
			pi.Until = now.Add(penaltyFor(pi.Level))
			l.penalty[key] = pi
			l.mu.Unlock()
			tooManyRequests(w, penaltyFor(pi.Level))
			return
		}
		l.mu.Unlock()

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limit-count))
		next.ServeHTTP(w, r)
	})
}

func (l *UserRateLimiter) sweep(now time.Time) {
	l.win.sweep(now)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, p := range l.penalty {
		if p.Until.Before(now) {
			delete(l.penalty, k)
		}
	}
}

const loginFreeAttempts = 3

// LoginGuard locks an account out after failed logins. Redis keeps the state
// shared across instances; without Redis it is process local.
type LoginGuard struct {
	redis  *redis.Client
	mu     sync.Mutex
	failed map[string]int
	locked map[string]time.Time
}

func NewLoginGuard(rc *redis.Client) *LoginGuard {
	return &LoginGuard{redis: rc, failed: make(map[string]int), locked: make(map[string]time.Time)}
}

func (g *LoginGuard) Locked(ctx context.Context, account string) (bool, time.Duration) {
	if g.redis != nil {
		ttl, err := g.redis.TTL(ctx, "login:lock:"+account).Result()
		if err == nil && ttl > 0 {
			return true, ttl
		}
		return false, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.locked[account]
	if !ok {
		return false, 0
	}
	if left := time.Until(until); left > 0 {
		return true, left
	}
	delete(g.locked, account)
	return false, 0
}

func (g *LoginGuard) Fail(ctx context.Context, account string) {
	if g.redis != nil {
		failKey := "login:fail:" + account
		failures, err := g.redis.Incr(ctx, failKey).Result()
		if err == nil {
			_ = g.redis.Expire(ctx, failKey, 30*time.Minute).Err()
			if failures >= loginFreeAttempts {
				_ = g.redis.Set(ctx, "login:lock:"+account, "1", penaltyFor(int(failures)-loginFreeAttempts+1)).Err()
			}
			return
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed[account]++
	if n := g.failed[account]; n >= loginFreeAttempts {
		g.locked[account] = time.Now().Add(penaltyFor(n - loginFreeAttempts + 1))
	}
}

func (g *LoginGuard) Reset(ctx context.Context, account string) {
	if g.redis != nil {
		_ = g.redis.Del(ctx, "login:fail:"+account, "login:lock:"+account).Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failed, account)
	delete(g.locked, account)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deukmosi-create/task-earning-platform/utils"
)

func TestClientIPGeneric_DirectRemote(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	ip := clientIPGeneric(req, nil)
	if ip != "203.0.113.5" {
		t.Fatalf("expected direct remote IP, got %s", ip)
	}
}

func TestClientIPGeneric_TrustedProxyXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.10:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.10")
	// trustedCIDR contains the remote IP
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "203.0.113.7" {
		t.Fatalf("expected X-Forwarded-For first value, got %s", ip)
	}
}

func TestClientIPGeneric_UntrustedProxyIgnoresXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.11:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 198.51.100.11")
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "198.51.100.11" {
		t.Fatalf("expected remote IP when proxy untrusted, got %s", ip)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPRateLimiterBlocksOverLimit(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute, nil)
	defer l.Stop()
	h := l.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/v1/tasks", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		h.ServeHTTP(rec, req)
		want := http.StatusOK
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}

	// other clients keep their own budget
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/tasks", nil)
	req.RemoteAddr = "203.0.113.10:1000"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected other IP to pass, got %d", rec.Code)
	}
}

func TestUserRateLimiterPenalises(t *testing.T) {
	l := NewUserRateLimiter(UserLimits{API: 1})
	defer l.Stop()
	h := l.Middleware(okHandler())

	do := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/v1/tasks", nil)
		req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, uint(7)))
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("expected penalty to hold, got %d", code)
	}
}

func TestRouteCategory(t *testing.T) {
	cases := map[string]string{
		"GET /v1/admin/tasks":              "admin",
		"POST /v1/assignments/3/submit":    "submit",
		"GET /v1/assignments/3/submit":     "api",
		"GET /v1/wallet":                   "api",
	}
	for in, want := range cases {
		parts := strings.SplitN(in, " ", 2)
		req := httptest.NewRequest(parts[0], parts[1], nil)
		if got := routeCategory(req); got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}

func TestLoginGuardInMemory(t *testing.T) {
	g := NewLoginGuard(nil)
	ctx := context.Background()
	for i := 0; i < loginFreeAttempts-1; i++ {
		g.Fail(ctx, "a@example.com")
	}
	if locked, _ := g.Locked(ctx, "a@example.com"); locked {
		t.Fatalf("expected no lock before %d failures", loginFreeAttempts)
	}
	g.Fail(ctx, "a@example.com")
	locked, left := g.Locked(ctx, "a@example.com")
	if !locked || left <= 0 || left > time.Minute {
		t.Fatalf("expected a one minute lock, got locked=%v left=%s", locked, left)
	}
	g.Reset(ctx, "a@example.com")
	if locked, _ := g.Locked(ctx, "a@example.com"); locked {
		t.Fatalf("expected reset to clear the lock")
	}
}

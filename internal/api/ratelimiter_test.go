package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type staticLimiter struct {
	allow bool
	wait  time.Duration
}

func (s *staticLimiter) Allow() bool {
	return s.allow
}

func (s *staticLimiter) RetryAfter() time.Duration {
	return s.wait
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	limiter := &staticLimiter{allow: false, wait: 2500 * time.Millisecond}
	middleware := rateLimitMiddleware(limiter, zaptest.NewLogger(t), http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "3" {
		t.Fatalf("expected Retry-After rounded up to 3, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"message"`) {
		t.Fatalf("expected message body, got %s", rec.Body.String())
	}
}

func TestRateLimitMiddlewarePassesWhenLimiterAllows(t *testing.T) {
	var called bool
	middleware := rateLimitMiddleware(&staticLimiter{allow: true}, zaptest.NewLogger(t), http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
}

func TestNewTokenBucketLimiterUsesDefaults(t *testing.T) {
	limiter := newTokenBucketLimiter(0, 0)
	if !limiter.Allow() {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow() {
		t.Fatalf("expected burst of one")
	}
	if got := limiter.RetryAfter(); got != time.Second {
		t.Fatalf("expected one second refill at 1 rps, got %v", got)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]string{
		0:                       "1",
		40 * time.Millisecond:   "1",
		time.Second:             "1",
		1001 * time.Millisecond: "2",
		10 * time.Second:        "10",
	}
	for d, want := range cases {
		if got := retryAfterSeconds(d); got != want {
			t.Fatalf("retryAfterSeconds(%v): expected %s, got %s", d, want, got)
		}
	}
}

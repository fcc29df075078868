package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eugenenazirov/box-estimator/internal/logging"
)

// rateLimiter admits inbound requests. RetryAfter is the wait a rejected
// client is told to observe.
type rateLimiter interface {
	Allow() bool
	RetryAfter() time.Duration
}

// WithRateLimit builds a token bucket limiter for inbound requests. A zero
// rate or burst disables inbound rate limiting.
func WithRateLimit(ratePerSecond float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		if ratePerSecond <= 0 || burst <= 0 {
			cfg.rateLimiter = nil
			return
		}
		cfg.rateLimiter = newTokenBucketLimiter(ratePerSecond, burst)
	}
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) *tokenBucket {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &tokenBucket{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (b *tokenBucket) Allow() bool {
	return b.limiter.Allow()
}

// RetryAfter is the time one token takes to refill.
func (b *tokenBucket) RetryAfter() time.Duration {
	return time.Duration(float64(time.Second) / float64(b.limiter.Limit()))
}

// retryAfterSeconds renders d for the Retry-After header, which only carries
// whole seconds. It never advertises less than one second.
func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(d.Seconds()))))
}

func rateLimitMiddleware(limiter rateLimiter, logger *zap.Logger, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		logging.For(r.Context(), logger).Debug("request rate limited",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		w.Header().Set("Retry-After", retryAfterSeconds(limiter.RetryAfter()))
		writeError(w, http.StatusTooManyRequests, "Too many requests, please retry shortly")
	})
}

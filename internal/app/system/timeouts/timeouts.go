// Package timeouts holds the context deadlines used across the service.
//
// Tiers:
//   - Ping: health checks
//   - Short: single-document reads and the one conditional write behind a
//     claim, link or removal
//   - Medium: whole API requests, list queries and the purchase fan-out of a
//     progress read
//   - Long: history queries and schema reconciliation at startup
//
// Values are configured once at startup via Configure.
package timeouts

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

// Config holds timeout configuration values. Zero values are ignored.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

var defaults = Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Long: DefaultLong}

var (
	mu  sync.RWMutex
	cur = defaults
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

// Ping returns the timeout for health checks.
func Ping() time.Duration { return get(func(c Config) time.Duration { return c.Ping }) }

// Short returns the timeout for single-document operations.
func Short() time.Duration { return get(func(c Config) time.Duration { return c.Short }) }

// Medium returns the per-request timeout of the API.
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }

// Long returns the timeout for history queries and startup work.
func Long() time.Duration { return get(func(c Config) time.Duration { return c.Long }) }

// Configure overrides timeouts. Zero values keep the current value.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, f := range []struct {
		dst *time.Duration
		v   time.Duration
	}{
		{&cur.Ping, cfg.Ping},
		{&cur.Short, cfg.Short},
		{&cur.Medium, cfg.Medium},
		{&cur.Long, cfg.Long},
	} {
		if f.v > 0 {
			*f.dst = f.v
		}
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the operation ran out of time.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "event history")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}

// Middleware bounds every request with the duration returned by tier, read
// per request so Configure takes effect without rebuilding the router.
// Handlers that need longer deadlines derive them from context.WithoutCancel.
func Middleware(tier func() time.Duration, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := WithTimeout(r.Context(), tier(), log, r.Method+" "+r.URL.Path)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

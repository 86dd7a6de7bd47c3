package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/api/transport"
	"github.com/fastygo/taskflow/repository"
)

type RateLimitConfig struct {
	Max       int
	Window    time.Duration
	SkipPaths []string
}

// RateLimit is a fixed-window limiter keyed by client IP. Counter errors fail
// open so a Redis outage does not take the API down.
func RateLimit(counter repository.RateCounter, cfg RateLimitConfig, metrics *Metrics, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	limit := strconv.Itoa(cfg.Max)

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if _, ok := skip[string(ctx.Path())]; ok || ctx.IsOptions() {
				next(ctx)
				return
			}

			hitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			count, err := counter.Hit(hitCtx, ctx.RemoteIP().String(), cfg.Window)
			cancel()
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
				metrics.rateLimitError()
				ctx.Response.Header.Set("X-RateLimit-Error", "counter-error")
				next(ctx)
				return
			}

			remaining := int64(cfg.Max) - count
			if remaining < 0 {
				remaining = 0
			}
			ctx.Response.Header.Set("X-RateLimit-Limit", limit)
			ctx.Response.Header.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Max) {
				metrics.rateLimitBlocked()
				ctx.Response.Header.Set(fasthttp.HeaderRetryAfter, strconv.Itoa(int(cfg.Window.Seconds())))
				writeJSON(ctx, fasthttp.StatusTooManyRequests, transport.ErrorResponse{
					Error: "too many requests from this IP, please try again later",
					Code:  "RATE_LIMITED",
				})
				return
			}

			metrics.rateLimitAllowed()
			next(ctx)
		}
	}
}

type window struct {
	start time.Time
	count int64
}

// MemoryCounter is the in-process RateCounter used when Redis is not
// configured. Counts are per instance.
type MemoryCounter struct {
	mu        sync.Mutex
	windows   map[string]*window
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, span time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now, span)

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= span {
		w = &window{start: now}
		m.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// sweep drops expired windows at most once per span.
func (m *MemoryCounter) sweep(now time.Time, span time.Duration) {
	if now.Sub(m.lastSweep) < span {
		return
	}
	m.lastSweep = now
	for key, w := range m.windows {
		if now.Sub(w.start) >= span {
			delete(m.windows, key)
		}
	}
}

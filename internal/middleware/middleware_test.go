package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/httpcontext"
)

type stubAuthenticator struct {
	actor domain.Actor
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (domain.Actor, error) {
	if s.err != nil {
		return domain.Actor{}, s.err
	}
	return s.actor, nil
}

func newRequest(method, path string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	return &ctx
}

func okHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
}

func TestAuthStatuses(t *testing.T) {
	actor := domain.Actor{ID: "u1", Role: domain.RoleUser}
	cases := []struct {
		name   string
		header string
		auth   stubAuthenticator
		want   int
	}{
		{"missing header", "", stubAuthenticator{actor: actor}, fasthttp.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubAuthenticator{actor: actor}, fasthttp.StatusUnauthorized},
		{"invalid token", "Bearer nope", stubAuthenticator{err: domain.ErrInvalidToken}, fasthttp.StatusForbidden},
		{"valid token", "Bearer good", stubAuthenticator{actor: actor}, fasthttp.StatusOK},
	}
	for _, tc := range cases {
		ctx := newRequest("GET", "/api/tasks")
		if tc.header != "" {
			ctx.Request.Header.Set("Authorization", tc.header)
		}
		var seen domain.Actor
		Auth(tc.auth, nil)(func(ctx *fasthttp.RequestCtx) {
			seen, _ = httpcontext.ActorFromRequest(ctx)
			okHandler(ctx)
		})(ctx)
		if got := ctx.Response.StatusCode(); got != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, got, tc.want)
		}
		if tc.want == fasthttp.StatusOK && seen.ID != "u1" {
			t.Fatalf("%s: actor not stored, got %#v", tc.name, seen)
		}
		if tc.want != fasthttp.StatusOK && !strings.Contains(string(ctx.Response.Body()), `"error"`) {
			t.Fatalf("%s: expected error body, got %s", tc.name, ctx.Response.Body())
		}
	}
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(domain.RoleManager, domain.RoleAdmin)(okHandler)

	ctx := newRequest("POST", "/api/tasks")
	guard(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Fatalf("no actor: status = %d", ctx.Response.StatusCode())
	}

	ctx = newRequest("POST", "/api/tasks")
	httpcontext.SetActor(ctx, domain.Actor{ID: "u1", Role: domain.RoleUser})
	guard(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusForbidden {
		t.Fatalf("user: status = %d", ctx.Response.StatusCode())
	}

	ctx = newRequest("POST", "/api/tasks")
	httpcontext.SetActor(ctx, domain.Actor{ID: "u2", Role: domain.RoleManager})
	guard(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("manager: status = %d", ctx.Response.StatusCode())
	}
}

func TestRateLimitBlocksAfterMax(t *testing.T) {
	metrics := NewMetrics()
	handler := RateLimit(NewMemoryCounter(), RateLimitConfig{Max: 2, Window: time.Minute, SkipPaths: []string{"/health"}}, metrics, nil)(okHandler)

	for i := 0; i < 2; i++ {
		ctx := newRequest("GET", "/api/tasks")
		handler(ctx)
		if ctx.Response.StatusCode() != fasthttp.StatusOK {
			t.Fatalf("request %d: status = %d", i, ctx.Response.StatusCode())
		}
	}
	ctx := newRequest("GET", "/api/tasks")
	handler(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusTooManyRequests {
		t.Fatalf("third request: status = %d", ctx.Response.StatusCode())
	}
	if got := string(ctx.Response.Header.Peek("X-RateLimit-Remaining")); got != "0" {
		t.Fatalf("remaining = %q", got)
	}

	health := newRequest("GET", "/health")
	handler(health)
	if health.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("skipped path should pass, got %d", health.Response.StatusCode())
	}

	if got := testutil.ToFloat64(metrics.rlBlocked); got != 1 {
		t.Fatalf("blocked counter = %v", got)
	}
	if got := testutil.ToFloat64(metrics.rlAllowed); got != 2 {
		t.Fatalf("allowed counter = %v", got)
	}
}

type failingCounter struct{}

func (failingCounter) Hit(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	handler := RateLimit(failingCounter{}, RateLimitConfig{Max: 1, Window: time.Minute}, nil, nil)(okHandler)
	for i := 0; i < 3; i++ {
		ctx := newRequest("GET", "/api/tasks")
		handler(ctx)
		if ctx.Response.StatusCode() != fasthttp.StatusOK {
			t.Fatalf("request %d: status = %d", i, ctx.Response.StatusCode())
		}
	}
}

func TestMemoryCounterWindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	counter := NewMemoryCounter()
	counter.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		if got, _ := counter.Hit(context.Background(), "ip", time.Minute); got != want {
			t.Fatalf("Hit() = %d, want %d", got, want)
		}
	}
	if got, _ := counter.Hit(context.Background(), "other", time.Minute); got != 1 {
		t.Fatalf("keys must be independent, got %d", got)
	}

	now = now.Add(time.Minute)
	if got, _ := counter.Hit(context.Background(), "ip", time.Minute); got != 1 {
		t.Fatalf("window should reset, got %d", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS([]string{"https://app.example"})(okHandler)

	ctx := newRequest("OPTIONS", "/api/tasks")
	ctx.Request.Header.Set("Origin", "https://app.example")
	ctx.Request.Header.Set("Access-Control-Request-Method", "POST")
	handler(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusNoContent {
		t.Fatalf("preflight status = %d", ctx.Response.StatusCode())
	}
	if got := string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")); got != "https://app.example" {
		t.Fatalf("allow origin = %q", got)
	}

	ctx = newRequest("GET", "/api/tasks")
	ctx.Request.Header.Set("Origin", "https://evil.example")
	handler(ctx)
	if got := ctx.Response.Header.Peek("Access-Control-Allow-Origin"); len(got) != 0 {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestRecoverAndRequestID(t *testing.T) {
	handler := Chain(func(*fasthttp.RequestCtx) { panic("boom") }, RequestID(), Recover(nil))

	ctx := newRequest("GET", "/api/tasks")
	handler(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusInternalServerError {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
	if len(ctx.Response.Header.Peek("X-Request-ID")) == 0 {
		t.Fatalf("expected X-Request-ID header")
	}
	if strings.Contains(string(ctx.Response.Body()), "boom") {
		t.Fatalf("panic value leaked: %s", ctx.Response.Body())
	}
}

func TestMetricsMiddlewareCounts(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(okHandler)
	handler(newRequest("GET", "/nowhere"))

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues("GET", "unmatched", "200")); got != 1 {
		t.Fatalf("requests counter = %v", got)
	}

	scrape := newRequest("GET", "/metrics")
	metrics.Handler()(scrape)
	if !strings.Contains(string(scrape.Response.Body()), "http_requests_total") {
		t.Fatalf("exposition missing counter")
	}
}

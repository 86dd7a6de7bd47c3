package httpcontext

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskflow/domain"
	appLogger "github.com/fastygo/taskflow/pkg/logger"
)

func TestAttachCarriesRequestMetadata(t *testing.T) {
	var reqCtx fasthttp.RequestCtx
	reqCtx.Request.Header.Set(HeaderRequestID, "abc")
	reqCtx.Request.Header.SetUserAgent("tests")
	SetActor(&reqCtx, domain.Actor{ID: "u1", Role: domain.RoleManager})

	ctx, cancel := NewAdapter(time.Second).Attach(&reqCtx)
	defer cancel()

	if _, ok := ctx.Deadline(); !ok {
		t.Fatalf("expected a deadline")
	}
	if got := appLogger.RequestID(ctx); got != "abc" {
		t.Fatalf("request id = %q", got)
	}
	if got := string(reqCtx.Response.Header.Peek(HeaderRequestID)); got != "abc" {
		t.Fatalf("response header = %q", got)
	}
	if ua, _ := ctx.Value(KeyUserAgent).(string); ua != "tests" {
		t.Fatalf("user agent = %q", ua)
	}
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ID != "u1" || actor.Role != domain.RoleManager {
		t.Fatalf("actor = %#v, %v", actor, ok)
	}
}

func TestRequestIDIsGeneratedOnce(t *testing.T) {
	var reqCtx fasthttp.RequestCtx
	first := RequestID(&reqCtx)
	if first == "" {
		t.Fatalf("expected generated id")
	}
	if second := RequestID(&reqCtx); second != first {
		t.Fatalf("request id changed: %q then %q", first, second)
	}
}

func TestActorFromRequestRequiresID(t *testing.T) {
	var reqCtx fasthttp.RequestCtx
	if _, ok := ActorFromRequest(&reqCtx); ok {
		t.Fatalf("expected no actor")
	}
	SetActor(&reqCtx, domain.Actor{})
	if _, ok := ActorFromRequest(&reqCtx); ok {
		t.Fatalf("empty actor should not count")
	}
}

package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskflow/domain"
	appLogger "github.com/fastygo/taskflow/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
	KeyActor      Key = "actor"
)

// User value names set on fasthttp.RequestCtx by the middleware chain.
const (
	UserValueActor     = "taskflow.actor"
	UserValueRequestID = "taskflow.request_id"
)

const HeaderRequestID = "X-Request-ID"

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// Attach creates a context with timeout derived from the adapter and enriches
// it with the request id, client metadata and the authenticated actor.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	stdCtx = appLogger.ContextWithRequestID(stdCtx, RequestID(ctx))

	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}
	if actor, ok := ActorFromRequest(ctx); ok {
		stdCtx = ContextWithActor(stdCtx, actor)
	}

	return stdCtx, cancel
}

// RequestID returns the id assigned to this request, creating and echoing one
// when no middleware has done so yet.
func RequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if id, ok := ctx.UserValue(UserValueRequestID).(string); ok && id != "" {
		return id
	}
	id := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderRequestID)))
	if id == "" {
		id = uuid.NewString()
	}
	ctx.SetUserValue(UserValueRequestID, id)
	ctx.Response.Header.Set(HeaderRequestID, id)
	return id
}

// SetActor stores the authenticated actor on the request.
func SetActor(ctx *fasthttp.RequestCtx, actor domain.Actor) {
	ctx.SetUserValue(UserValueActor, actor)
}

// ActorFromRequest returns the actor stored by the auth middleware.
func ActorFromRequest(ctx *fasthttp.RequestCtx) (domain.Actor, bool) {
	actor, ok := ctx.UserValue(UserValueActor).(domain.Actor)
	return actor, ok && actor.ID != ""
}

func ContextWithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, KeyActor, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(KeyActor).(domain.Actor)
	return actor, ok && actor.ID != ""
}

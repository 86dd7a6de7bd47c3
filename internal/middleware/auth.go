package middleware

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/api/transport"
	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/httpcontext"
)

// Middleware wraps a fasthttp handler.
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Chain applies middlewares so that the first one is outermost.
func Chain(h fasthttp.RequestHandler, mws ...Middleware) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// Authenticator resolves a bearer token into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Actor, error)
}

// Auth rejects requests without a token (401) or with an invalid one (403)
// and stores the actor on the request for downstream handlers.
func Auth(authenticator Authenticator, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				writeError(ctx, fasthttp.StatusUnauthorized, domain.ErrUnauthorized)
				return
			}

			actor, err := authenticator.Authenticate(ctx, tokenString)
			if err != nil {
				logger.Debug("token rejected", zap.Error(err), zap.String("request_id", httpcontext.RequestID(ctx)))
				writeError(ctx, fasthttp.StatusForbidden, domain.ErrInvalidToken)
				return
			}

			httpcontext.SetActor(ctx, actor)
			next(ctx)
		}
	}
}

// RequireRole lets the request through only when the authenticated actor holds
// one of roles. It must run after Auth.
func RequireRole(roles ...domain.Role) Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			actor, ok := httpcontext.ActorFromRequest(ctx)
			if !ok {
				writeError(ctx, fasthttp.StatusUnauthorized, domain.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next(ctx)
					return
				}
			}
			writeError(ctx, fasthttp.StatusForbidden, domain.ErrForbidden)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)))
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(ctx *fasthttp.RequestCtx, status int, err *domain.Error) {
	writeJSON(ctx, status, transport.NewError(err.Code, err.Message))
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, payload any) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

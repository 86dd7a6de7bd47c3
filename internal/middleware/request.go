package middleware

import (
	"fmt"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/api/transport"
	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/httpcontext"
)

// RequestID assigns every request an id, reusing X-Request-ID when the client
// sends one, and echoes it on the response.
func RequestID() Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			httpcontext.RequestID(ctx)
			next(ctx)
		}
	}
}

// Recover turns handler panics into a 500 response.
func Recover(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic in handler",
						zap.String("request_id", httpcontext.RequestID(ctx)),
						zap.ByteString("path", ctx.Path()),
						zap.Error(fmt.Errorf("%v", rec)),
						zap.Stack("stack"),
					)
					ctx.ResetBody()
					writeJSON(ctx, fasthttp.StatusInternalServerError, transport.NewError(domain.ErrCodeInternal, "internal server error"))
				}
			}()
			next(ctx)
		}
	}
}

package middleware

import (
	"github.com/valyala/fasthttp"
)

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, X-Request-ID"
)

// CORS answers preflight requests and sets allow headers. A "*" entry allows
// any origin.
func CORS(origins []string) Middleware {
	allowAll := false
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			origin := string(ctx.Request.Header.Peek(fasthttp.HeaderOrigin))
			if origin != "" {
				if _, ok := allowed[origin]; ok || allowAll {
					if allowAll {
						ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowOrigin, "*")
					} else {
						ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowOrigin, origin)
						ctx.Response.Header.Add(fasthttp.HeaderVary, fasthttp.HeaderOrigin)
					}
					ctx.Response.Header.Set(fasthttp.HeaderAccessControlExposeHeaders, "X-Request-ID")
				}
			}

			if ctx.IsOptions() && len(ctx.Request.Header.Peek(fasthttp.HeaderAccessControlRequestMethod)) > 0 {
				ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowMethods, corsAllowMethods)
				ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowHeaders, corsAllowHeaders)
				ctx.Response.Header.Set(fasthttp.HeaderAccessControlMaxAge, "600")
				ctx.SetStatusCode(fasthttp.StatusNoContent)
				return
			}

			next(ctx)
		}
	}
}

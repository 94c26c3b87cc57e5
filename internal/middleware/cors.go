package middleware

import "github.com/valyala/fasthttp"

var corsHeaders = [][2]string{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS"},
	{"Access-Control-Allow-Headers", "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token,X-Amz-User-Agent,X-Requested-With"},
	{"Access-Control-Allow-Credentials", "true"},
	{"Access-Control-Max-Age", "600"},
}

// CORS adds the cross-origin headers to every response and answers preflight requests with 200.
func CORS(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		for _, h := range corsHeaders {
			ctx.Response.Header.Set(h[0], h[1])
		}
		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusOK)
			return
		}
		next(ctx)
	}
}

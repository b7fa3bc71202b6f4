package session

import "github.com/valyala/fasthttp"

// Exchange is the request/response cookie context a session operation works on.
type Exchange interface {
	// Cookie returns the current value of the named cookie, or "" when absent.
	Cookie(name string) string
	// SetCookie queues a cookie on the response.
	SetCookie(cookie *fasthttp.Cookie)
}

type requestExchange struct {
	ctx *fasthttp.RequestCtx
}

// FromRequestCtx adapts a fasthttp request. Reads observe cookies already
// written to the response during the same request.
func FromRequestCtx(ctx *fasthttp.RequestCtx) Exchange {
	return requestExchange{ctx: ctx}
}

func (e requestExchange) Cookie(name string) string {
	pending := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(pending)
	pending.SetKey(name)
	if e.ctx.Response.Header.Cookie(pending) {
		return string(pending.Value())
	}
	return string(e.ctx.Request.Header.Cookie(name))
}

func (e requestExchange) SetCookie(cookie *fasthttp.Cookie) {
	e.ctx.Response.Header.SetCookie(cookie)
}

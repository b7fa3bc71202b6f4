package middleware

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/api/transport"
	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/session"
)

// UserValueSession is the RequestCtx user value holding the active *domain.Claims.
const UserValueSession = "session"

// SlidingSession extends a valid session on every request before the handler runs.
// It never blocks a request: a missing or broken cookie just passes through.
func SlidingSession(manager *session.Manager, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if outcome := manager.Refresh(session.FromRequestCtx(ctx)); outcome == session.Invalid {
				logger.Debug("ignoring invalid session cookie", zap.ByteString("path", ctx.Path()))
			}
			next(ctx)
		}
	}
}

// RequireSession rejects requests without an active session with 401 and
// otherwise exposes the claims through SessionFromCtx.
func RequireSession(manager *session.Manager) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			claims, ok := manager.Current(session.FromRequestCtx(ctx))
			if !ok {
				body := transport.NewError(fasthttp.StatusUnauthorized, domain.ErrNoSession.Message, nil)
				ctx.Response.Header.SetContentType("application/json")
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString(body.String())
				return
			}
			ctx.SetUserValue(UserValueSession, claims)
			next(ctx)
		}
	}
}

// SessionFromCtx returns the claims stored by RequireSession.
func SessionFromCtx(ctx *fasthttp.RequestCtx) (*domain.Claims, bool) {
	claims, ok := ctx.UserValue(UserValueSession).(*domain.Claims)
	return claims, ok && claims != nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/api/transport"
	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/middleware"
	"github.com/fastygo/mudai/internal/session"
	"github.com/fastygo/mudai/pkg/httpcontext"
	appLogger "github.com/fastygo/mudai/pkg/logger"
)

type baseHandler struct {
	adapter  *httpcontext.Adapter
	sessions *session.Manager
	logger   *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, sessions *session.Manager, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, sessions: sessions, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	var (
		stdCtx context.Context
		cancel context.CancelFunc
	)
	if h.adapter != nil {
		stdCtx, cancel = h.adapter.Attach(ctx)
	} else {
		stdCtx, cancel = context.WithCancel(context.Background())
	}
	if claims, ok := middleware.SessionFromCtx(ctx); ok {
		stdCtx = appLogger.ContextWithUsername(stdCtx, claims.User.Username)
	}
	return stdCtx, cancel
}

func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) error {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidPayload.Message, err)
	}
	return nil
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, message string, data interface{}) {
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(http.StatusOK, message, data))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", httpcontext.RequestID(ctx)),
			zap.ByteString("path", ctx.Path()),
			zap.Error(err))
	}
	h.respondJSON(ctx, status, transport.NewError(status, domain.MessageOf(err), nil))
}

// sessionView never includes the password.
func sessionView(claims *domain.Claims) transport.SessionView {
	if claims == nil {
		return transport.SessionView{}
	}
	expires := claims.Expires
	return transport.SessionView{
		Authenticated: true,
		Username:      claims.User.Username,
		UCode:         claims.User.UCode,
		Expires:       &expires,
	}
}

func statusOf(err error) int {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return http.StatusConflict
	case domain.IsDomainError(err, domain.ErrCodeTooManyRequests):
		return http.StatusTooManyRequests
	case domain.IsDomainError(err, domain.ErrCodeUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/api/transport"
	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/session"
	"github.com/fastygo/mudai/pkg/httpcontext"
	authUC "github.com/fastygo/mudai/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	uc *authUC.UseCase
}

func NewAuthHandler(uc *authUC.UseCase, sessions *session.Manager, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, sessions, logger),
		uc:          uc,
	}
}

// @Summary Sign up or log in, then issue the session cookie
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.LoginRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	out, err := h.uc.Login(stdCtx, domain.Identity{
		Username: req.Username,
		Password: req.Password,
		UCode:    req.UCode,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	claims, err := h.sessions.Establish(session.FromRequestCtx(ctx), out.Identity)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.uc.SessionEstablished(stdCtx, claims.User)

	message := out.Message
	if message == "" {
		message = "logged in"
	}
	h.respondSuccess(ctx, message, sessionView(claims))
}

// @Summary Clear the session cookie
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	ex := session.FromRequestCtx(ctx)
	if claims, ok := h.sessions.Current(ex); ok {
		stdCtx, cancel := h.requestContext(ctx)
		h.uc.Logout(stdCtx, claims.User.Username)
		cancel()
	}
	h.sessions.Destroy(ex)
	h.respondSuccess(ctx, "logged out", transport.SessionView{})
}

// @Summary Describe the current session
// @Tags auth
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) Session(ctx *fasthttp.RequestCtx) {
	claims, ok := h.sessions.Current(session.FromRequestCtx(ctx))
	if !ok {
		h.respondSuccess(ctx, "no active session", transport.SessionView{})
		return
	}
	h.respondSuccess(ctx, "active session", sessionView(claims))
}

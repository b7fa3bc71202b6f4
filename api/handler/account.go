package handler

import (
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/api/transport"
	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/middleware"
	"github.com/fastygo/mudai/internal/session"
	"github.com/fastygo/mudai/pkg/httpcontext"
	accountUC "github.com/fastygo/mudai/usecase/account"
)

type AccountHandler struct {
	baseHandler
	uc *accountUC.UseCase
}

func NewAccountHandler(uc *accountUC.UseCase, sessions *session.Manager, adapter *httpcontext.Adapter, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		baseHandler: newBaseHandler(adapter, sessions, logger),
		uc:          uc,
	}
}

// @Summary Rename the account and re-issue the session
// @Tags account
// @Router /api/v1/account/username [put]
func (h *AccountHandler) UpdateUsername(ctx *fasthttp.RequestCtx) {
	claims, ok := middleware.SessionFromCtx(ctx)
	if !ok {
		h.respondError(ctx, domain.ErrNoSession)
		return
	}
	var req transport.UpdateUsernameRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	name, err := h.uc.UpdateUsername(stdCtx, claims.User.Username, req.NewUsername)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	renewed, err := h.sessions.Establish(session.FromRequestCtx(ctx), domain.Identity{
		Username: name,
		UCode:    claims.User.UCode,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, "username updated", sessionView(renewed))
}

// @Summary Issue a new API key
// @Tags account
// @Router /api/v1/account/api-key [post]
func (h *AccountHandler) IssueAPIKey(ctx *fasthttp.RequestCtx) {
	claims, ok := middleware.SessionFromCtx(ctx)
	if !ok {
		h.respondError(ctx, domain.ErrNoSession)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	key, err := h.uc.IssueAPIKey(stdCtx, claims.User.Username)
	if err != nil {
		if wait := accountUC.RetryAfterSeconds(err); wait > 0 {
			ctx.Response.Header.Set("Retry-After", strconv.Itoa(wait))
		}
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, "api key generated", transport.APIKeyResponse{Key: key})
}

// @Summary List recent account activity
// @Tags account
// @Router /api/v1/account/activity [get]
func (h *AccountHandler) Activity(ctx *fasthttp.RequestCtx) {
	claims, ok := middleware.SessionFromCtx(ctx)
	if !ok {
		h.respondError(ctx, domain.ErrNoSession)
		return
	}
	limit, _ := ctx.QueryArgs().GetUint("limit")

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.uc.Activity(stdCtx, claims.User.Username, limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, "ok", events)
}

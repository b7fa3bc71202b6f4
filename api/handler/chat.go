package handler

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/api/transport"
	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/middleware"
	"github.com/fastygo/mudai/internal/session"
	"github.com/fastygo/mudai/pkg/httpcontext"
	chatUC "github.com/fastygo/mudai/usecase/chat"
)

type ChatHandler struct {
	baseHandler
	uc *chatUC.UseCase
}

func NewChatHandler(uc *chatUC.UseCase, sessions *session.Manager, adapter *httpcontext.Adapter, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		baseHandler: newBaseHandler(adapter, sessions, logger),
		uc:          uc,
	}
}

// @Summary Send a chat prompt
// @Tags chat
// @Router /api/v1/chat [post]
func (h *ChatHandler) Send(ctx *fasthttp.RequestCtx) {
	claims, ok := middleware.SessionFromCtx(ctx)
	if !ok {
		h.respondError(ctx, domain.ErrNoSession)
		return
	}
	var req transport.ChatRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reply, err := h.uc.Send(stdCtx, claims.User.Username, req.Prompt)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, reply.Message, rawData(reply.Data))
}

// @Summary Load chat history
// @Tags chat
// @Router /api/v1/chat [get]
func (h *ChatHandler) History(ctx *fasthttp.RequestCtx) {
	claims, ok := middleware.SessionFromCtx(ctx)
	if !ok {
		h.respondError(ctx, domain.ErrNoSession)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reply, err := h.uc.History(stdCtx, claims.User.Username)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, reply.Message, rawData(reply.Data))
}

func rawData(data json.RawMessage) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}

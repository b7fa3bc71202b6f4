package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/api/transport"
	"github.com/fastygo/mudai/pkg/httpcontext"
	contactUC "github.com/fastygo/mudai/usecase/contact"
)

type ContactHandler struct {
	baseHandler
	uc *contactUC.UseCase
}

func NewContactHandler(uc *contactUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		baseHandler: newBaseHandler(adapter, nil, logger),
		uc:          uc,
	}
}

// @Summary Submit the contact form
// @Tags contact
// @Router /api/v1/connect [post]
func (h *ContactHandler) Submit(ctx *fasthttp.RequestCtx) {
	var req transport.ContactRequest
	if err := h.decode(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	message, err := h.uc.Submit(stdCtx, req.Email, req.Message)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if message == "" {
		message = "message sent"
	}
	h.respondSuccess(ctx, message, nil)
}

package chat

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/usecase"
)

// Reply is the remote answer to a chat turn or history request. Data is passed
// through untouched.
type Reply struct {
	Message string
	Data    json.RawMessage
}

type UseCase struct {
	chat   usecase.ChatAPI
	logger *zap.Logger
}

func New(chat usecase.ChatAPI, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{chat: chat, logger: logger}
}

func (uc *UseCase) Send(ctx context.Context, username, prompt string) (*Reply, error) {
	if username == "" {
		return nil, domain.ErrNoSession
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "prompt is required")
	}
	result, err := uc.chat.SendChat(ctx, username, prompt)
	return reply(result, err, "chat is temporarily unavailable")
}

func (uc *UseCase) History(ctx context.Context, username string) (*Reply, error) {
	if username == "" {
		return nil, domain.ErrNoSession
	}
	result, err := uc.chat.ChatHistory(ctx, username)
	return reply(result, err, "could not load chat history")
}

func reply(result *domain.APIResult, err error, fallback string) (*Reply, error) {
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		return nil, usecase.RemoteFailure(result, fallback)
	}
	return &Reply{Message: result.Message, Data: result.Data}, nil
}

// Package remote talks to the account and chat API that owns user data.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/config"
	"github.com/fastygo/mudai/pkg/httpcontext"
	appLogger "github.com/fastygo/mudai/pkg/logger"
	"github.com/fastygo/mudai/usecase"
)

const (
	endpointCreate         = "user/create"
	endpointLogin          = "user/login"
	endpointUpdateUsername = "user/update-username"
	endpointUpdateAPIKey   = "user/update-api-key"
	endpointConnect        = "user/connect"
	endpointChatSend       = "chat/send"
	endpointChatHistory    = "chat/history"
)

// Client is a fasthttp-based client for the remote API. Calls are never retried.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a remote API client.
func NewClient(cfg config.RemoteConfig, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		http: &fasthttp.Client{
			Name:                "mudai-gateway",
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateAccount(ctx context.Context, identity domain.Identity) (*domain.APIResult, error) {
	return c.post(ctx, endpointCreate, map[string]string{
		"username": identity.Username,
		"password": identity.Password,
		"ucode":    identity.UCode,
	})
}

func (c *Client) Login(ctx context.Context, username, password string) (*domain.APIResult, error) {
	return c.post(ctx, endpointLogin, map[string]string{
		"username": username,
		"password": password,
	})
}

func (c *Client) UpdateUsername(ctx context.Context, username, newUsername string) (*domain.APIResult, error) {
	return c.post(ctx, endpointUpdateUsername, map[string]string{
		"username":     username,
		"new_username": newUsername,
	})
}

func (c *Client) UpdateAPIKey(ctx context.Context, username, key string) (*domain.APIResult, error) {
	return c.post(ctx, endpointUpdateAPIKey, map[string]string{
		"username": username,
		"key":      key,
	})
}

func (c *Client) Connect(ctx context.Context, email, message string) (*domain.APIResult, error) {
	return c.post(ctx, endpointConnect, map[string]string{
		"email":   email,
		"message": message,
	})
}

func (c *Client) SendChat(ctx context.Context, username, prompt string) (*domain.APIResult, error) {
	return c.post(ctx, endpointChatSend, map[string]string{
		"username": username,
		"prompt":   prompt,
	})
}

func (c *Client) ChatHistory(ctx context.Context, username string) (*domain.APIResult, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(c.url(endpointChatHistory))
	req.URI().QueryArgs().Add("username", username)
	req.Header.SetMethod(fasthttp.MethodGet)
	return c.do(ctx, endpointChatHistory, req)
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) (*domain.APIResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to encode request", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(c.url(endpoint))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetBody(body)
	return c.do(ctx, endpoint, req)
}

func (c *Client) do(ctx context.Context, endpoint string, req *fasthttp.Request) (*domain.APIResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := appLogger.FromContext(ctx, c.logger).With(zap.String("endpoint", endpoint))

	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	req.Header.SetContentType("application/json")
	if reqID := appLogger.RequestIDFrom(ctx); reqID != "" {
		req.Header.Set(httpcontext.HeaderRequestID, reqID)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	started := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		log.Warn("remote api call failed", zap.Error(err))
		return nil, unavailable(err)
	}

	status := resp.StatusCode()
	log.Debug("remote api call",
		zap.Int("status", status),
		zap.Duration("duration", time.Since(started)))

	var result domain.APIResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		log.Warn("remote api returned a non-envelope body", zap.Int("status", status), zap.Error(err))
		return nil, unavailable(fmt.Errorf("status %d: %w", status, err))
	}
	if result.Code == 0 {
		result.Code = status
	}
	return &result, nil
}

func (c *Client) url(endpoint string) string {
	return c.baseURL + "/" + endpoint
}

func unavailable(err error) error {
	return domain.WrapError(domain.ErrCodeUnavailable, domain.ErrRemoteUnavailable.Message, err)
}

var (
	_ usecase.AccountAPI = (*Client)(nil)
	_ usecase.ChatAPI    = (*Client)(nil)
	_ usecase.ContactAPI = (*Client)(nil)
)

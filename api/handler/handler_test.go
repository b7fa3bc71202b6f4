package handler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/infrastructure/monitor"
	"github.com/fastygo/mudai/internal/middleware"
	"github.com/fastygo/mudai/internal/session"
	"github.com/fastygo/mudai/internal/token"
	accountUC "github.com/fastygo/mudai/usecase/account"
	authUC "github.com/fastygo/mudai/usecase/auth"
	chatUC "github.com/fastygo/mudai/usecase/chat"
	contactUC "github.com/fastygo/mudai/usecase/contact"
	"github.com/fastygo/mudai/usecase/usecasetest"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type sessionData struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
	UCode         string `json:"ucode"`
	Password      string `json:"password"`
}

type cooldowns struct {
	mu   sync.Mutex
	held map[string]bool
}

func (c *cooldowns) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[key] {
		return false, nil
	}
	c.held[key] = true
	return true, nil
}

func (c *cooldowns) Remaining(context.Context, string) (time.Duration, error) {
	return 42 * time.Second, nil
}

func (c *cooldowns) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
	return nil
}

type staticKeys struct{}

func (staticKeys) Generate() (string, error) { return "sfr-swift-otter-abcdefgh-20260601", nil }

type staticStatus monitor.Status

func (s staticStatus) GetStatus() monitor.Status { return monitor.Status(s) }

type harness struct {
	api      *usecasetest.RemoteAPI
	sink     *usecasetest.AuditSink
	sessions *session.Manager
	auth     *AuthHandler
	account  *AccountHandler
	chat     *ChatHandler
	contact  *ContactHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	codec, err := token.NewCodec(token.Config{Secret: "handler-secret"})
	require.NoError(t, err)
	sessions := session.NewManager(codec, session.Config{TTL: time.Hour}, nil)

	api := usecasetest.NewRemoteAPI()
	sink := &usecasetest.AuditSink{}
	account := accountUC.New(accountUC.Deps{
		Accounts:  api,
		Cooldowns: &cooldowns{held: map[string]bool{}},
		Keys:      staticKeys{},
		Audit:     sink,
	}, time.Minute, nil)

	return &harness{
		api:      api,
		sink:     sink,
		sessions: sessions,
		auth:     NewAuthHandler(authUC.New(api, sink, nil), sessions, nil, nil),
		account:  NewAccountHandler(account, sessions, nil, nil),
		chat:     NewChatHandler(chatUC.New(api, nil), sessions, nil, nil),
		contact:  NewContactHandler(contactUC.New(api, sink, nil), nil, nil),
	}
}

// protected wraps a handler the way the router does for session-only routes.
func (h *harness) protected(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return middleware.RequireSession(h.sessions)(next)
}

func request(method, body, cookie string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	if cookie != "" {
		ctx.Request.Header.SetCookie(session.CookieName, cookie)
	}
	return ctx
}

func decode(t *testing.T, ctx *fasthttp.RequestCtx) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	require.Equal(t, ctx.Response.StatusCode(), env.Code)
	return env
}

func issuedCookie(t *testing.T, ctx *fasthttp.RequestCtx) *fasthttp.Cookie {
	t.Helper()
	c := &fasthttp.Cookie{}
	c.SetKey(session.CookieName)
	require.True(t, ctx.Response.Header.Cookie(c), "no session cookie written")
	return c
}

func (h *harness) login(t *testing.T, username string) string {
	t.Helper()
	ctx := request("POST", `{"username":"`+username+`","password":"pw","ucode":"UC1"}`, "")
	h.auth.Login(ctx)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	return string(issuedCookie(t, ctx).Value())
}

func TestAuthHandler_LoginIssuesCookie(t *testing.T) {
	h := newHarness(t)

	ctx := request("POST", `{"username":"alice","password":"secret","ucode":"UC1"}`, "")
	h.auth.Login(ctx)

	env := decode(t, ctx)
	require.True(t, env.Success)
	var view sessionData
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.True(t, view.Authenticated)
	require.Equal(t, "alice", view.Username)
	require.Equal(t, "UC1", view.UCode)
	require.Empty(t, view.Password)

	cookie := issuedCookie(t, ctx)
	require.True(t, cookie.HTTPOnly())
	claims, ok := h.sessions.Current(session.FromRequestCtx(request("GET", "", string(cookie.Value()))))
	require.True(t, ok)
	require.Empty(t, claims.User.Password)

	// the session is audited after its cookie is issued
	require.Equal(t, []domain.AuditKind{domain.AuditAccountCreated, domain.AuditSessionEstablished}, h.sink.Kinds())
}

func TestAuthHandler_LoginFailureKeepsNoCookie(t *testing.T) {
	h := newHarness(t)
	h.api.Reply("user/create", &domain.APIResult{Code: 409, Message: "exists"}).
		Reply("user/login", &domain.APIResult{Code: 401, Message: "wrong password"})

	ctx := request("POST", `{"username":"alice","password":"nope"}`, "")
	h.auth.Login(ctx)

	env := decode(t, ctx)
	require.Equal(t, fasthttp.StatusUnauthorized, env.Code)
	require.Equal(t, "wrong password", env.Message)
	c := &fasthttp.Cookie{}
	c.SetKey(session.CookieName)
	require.False(t, ctx.Response.Header.Cookie(c))
	require.NotContains(t, h.sink.Kinds(), domain.AuditSessionEstablished)
}

func TestAuthHandler_LoginRejectsMalformedBody(t *testing.T) {
	h := newHarness(t)

	ctx := request("POST", `{not json`, "")
	h.auth.Login(ctx)

	env := decode(t, ctx)
	require.Equal(t, fasthttp.StatusBadRequest, env.Code)
	require.Equal(t, "invalid payload", env.Message)
	require.Empty(t, h.api.Calls())
}

func TestAuthHandler_SessionAndLogout(t *testing.T) {
	h := newHarness(t)

	anonymous := request("GET", "", "")
	h.auth.Session(anonymous)
	env := decode(t, anonymous)
	require.True(t, env.Success)
	require.JSONEq(t, `{"authenticated":false}`, string(env.Data))

	garbage := request("GET", "", "not-a-token")
	h.auth.Session(garbage)
	require.JSONEq(t, `{"authenticated":false}`, string(decode(t, garbage).Data))

	raw := h.login(t, "alice")
	current := request("GET", "", raw)
	h.auth.Session(current)
	var view sessionData
	require.NoError(t, json.Unmarshal(decode(t, current).Data, &view))
	require.Equal(t, "alice", view.Username)

	logout := request("POST", "", raw)
	h.auth.Logout(logout)
	require.Equal(t, fasthttp.StatusOK, logout.Response.StatusCode())
	cleared := issuedCookie(t, logout)
	require.Empty(t, cleared.Value())
	require.True(t, cleared.Expire().Before(time.Now()))
	require.Contains(t, h.sink.Kinds(), domain.AuditSessionDestroyed)
}

func TestAccountHandler_UpdateUsernameReissuesSession(t *testing.T) {
	h := newHarness(t)
	raw := h.login(t, "alice")

	ctx := request("PUT", `{"new_username":"alicia"}`, raw)
	h.protected(h.account.UpdateUsername)(ctx)

	env := decode(t, ctx)
	require.True(t, env.Success)
	claims, ok := h.sessions.Current(session.FromRequestCtx(request("GET", "", string(issuedCookie(t, ctx).Value()))))
	require.True(t, ok)
	require.Equal(t, "alicia", claims.User.Username)
	require.Equal(t, "UC1", claims.User.UCode)
}

func TestAccountHandler_UpdateUsernameRequiresSession(t *testing.T) {
	h := newHarness(t)

	ctx := request("PUT", `{"new_username":"alicia"}`, "")
	h.protected(h.account.UpdateUsername)(ctx)

	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	require.Empty(t, h.api.Calls())
}

func TestAccountHandler_IssueAPIKeyCooldown(t *testing.T) {
	h := newHarness(t)
	raw := h.login(t, "alice")
	issue := h.protected(h.account.IssueAPIKey)

	first := request("POST", "", raw)
	issue(first)
	env := decode(t, first)
	require.True(t, env.Success)
	require.JSONEq(t, `{"key":"sfr-swift-otter-abcdefgh-20260601"}`, string(env.Data))

	second := request("POST", "", raw)
	issue(second)
	env = decode(t, second)
	require.Equal(t, fasthttp.StatusTooManyRequests, env.Code)
	require.Equal(t, domain.ErrAPIKeyCooldown.Message, env.Message)
	require.Equal(t, "42", string(second.Response.Header.Peek("Retry-After")))
}

func TestChatHandler(t *testing.T) {
	h := newHarness(t)
	raw := h.login(t, "alice")
	h.api.Reply("chat/send", &domain.APIResult{Success: true, Code: 200, Message: "sent", Data: json.RawMessage(`{"reply":"hello"}`)})

	send := request("POST", `{"prompt":"hi"}`, raw)
	h.protected(h.chat.Send)(send)
	env := decode(t, send)
	require.Equal(t, "sent", env.Message)
	require.JSONEq(t, `{"reply":"hello"}`, string(env.Data))

	empty := request("POST", `{"prompt":"  "}`, raw)
	h.protected(h.chat.Send)(empty)
	require.Equal(t, fasthttp.StatusBadRequest, empty.Response.StatusCode())

	h.api.Fail("chat/history", domain.ErrRemoteUnavailable)
	history := request("GET", "", raw)
	h.protected(h.chat.History)(history)
	require.Equal(t, fasthttp.StatusBadGateway, decode(t, history).Code)
}

func TestContactHandler(t *testing.T) {
	h := newHarness(t)

	bad := request("POST", `{"email":"jane@example.com","message":"hello"}`, "")
	h.contact.Submit(bad)
	env := decode(t, bad)
	require.Equal(t, fasthttp.StatusBadRequest, env.Code)
	require.Equal(t, "please enter a valid gmail address", env.Message)
	require.Empty(t, h.api.Calls())

	good := request("POST", `{"email":"jane@gmail.com","message":"hello"}`, "")
	h.contact.Submit(good)
	require.True(t, decode(t, good).Success)
	require.Equal(t, []string{"user/connect"}, h.api.Endpoints())
}

func TestHealthHandler(t *testing.T) {
	healthy := NewHealthHandler(staticStatus{PostgreSQL: true, Redis: true, Buffer: true}, nil, nil)
	ctx := request("GET", "", "")
	healthy.Check(ctx)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	degraded := NewHealthHandler(staticStatus{Redis: true, Buffer: true, BufferSize: 3}, nil, nil)
	ctx = request("GET", "", "")
	degraded.Check(ctx)
	env := decode(t, ctx)
	require.Equal(t, fasthttp.StatusServiceUnavailable, env.Code)
	require.Contains(t, string(env.Data), `"size":3`)
}

func TestStatusOf(t *testing.T) {
	cases := map[domain.ErrorCode]int{
		domain.ErrCodeInvalid:         400,
		domain.ErrCodeUnauthorized:    401,
		domain.ErrCodeForbidden:       403,
		domain.ErrCodeNotFound:        404,
		domain.ErrCodeConflict:        409,
		domain.ErrCodeTooManyRequests: 429,
		domain.ErrCodeUnavailable:     502,
		domain.ErrCodeInternal:        500,
	}
	for code, want := range cases {
		require.Equal(t, want, statusOf(domain.NewError(code, "x")), string(code))
	}
}

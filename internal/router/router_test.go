package router

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	apiHandler "github.com/fastygo/mudai/api/handler"
	"github.com/fastygo/mudai/internal/infrastructure/monitor"
	"github.com/fastygo/mudai/internal/session"
	"github.com/fastygo/mudai/internal/token"
	accountUC "github.com/fastygo/mudai/usecase/account"
	authUC "github.com/fastygo/mudai/usecase/auth"
	chatUC "github.com/fastygo/mudai/usecase/chat"
	contactUC "github.com/fastygo/mudai/usecase/contact"
	"github.com/fastygo/mudai/usecase/usecasetest"
)

type upStatus struct{}

func (upStatus) GetStatus() monitor.Status {
	return monitor.Status{PostgreSQL: true, Redis: true, Buffer: true}
}

func startServer(t *testing.T) *fasthttp.Client {
	t.Helper()
	codec, err := token.NewCodec(token.Config{Secret: "router-secret"})
	require.NoError(t, err)
	sessions := session.NewManager(codec, session.Config{TTL: time.Hour}, nil)
	api := usecasetest.NewRemoteAPI()

	handler := New(Handlers{
		Auth:    apiHandler.NewAuthHandler(authUC.New(api, nil, nil), sessions, nil, nil),
		Account: apiHandler.NewAccountHandler(accountUC.New(accountUC.Deps{Accounts: api}, time.Minute, nil), sessions, nil, nil),
		Chat:    apiHandler.NewChatHandler(chatUC.New(api, nil), sessions, nil, nil),
		Contact: apiHandler.NewContactHandler(contactUC.New(api, nil, nil), nil, nil),
		Health:  apiHandler.NewHealthHandler(upStatus{}, nil, nil),
	}, sessions, nil)

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() {
		_ = server.Shutdown()
		_ = ln.Close()
	})

	return &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
}

func do(t *testing.T, client *fasthttp.Client, method, path, body, cookie string) (int, map[string]interface{}, string) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://gateway.local" + path)
	req.Header.SetMethod(method)
	if body != "" {
		req.SetBodyString(body)
	}
	if cookie != "" {
		req.Header.SetCookie(session.CookieName, cookie)
	}
	require.NoError(t, client.DoTimeout(req, resp, 2*time.Second))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body(), &payload))

	issued := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(issued)
	issued.SetKey(session.CookieName)
	var value string
	if resp.Header.Cookie(issued) {
		value = string(issued.Value())
	}
	return resp.StatusCode(), payload, value
}

func TestRouter_SessionFlow(t *testing.T) {
	client := startServer(t)

	status, _, _ := do(t, client, "GET", "/health", "", "")
	require.Equal(t, fasthttp.StatusOK, status)

	status, _, _ = do(t, client, "GET", "/api/v1/chat", "", "")
	require.Equal(t, fasthttp.StatusUnauthorized, status)

	status, _, cookie := do(t, client, "POST", "/api/v1/auth/login", `{"username":"alice","password":"pw","ucode":"U"}`, "")
	require.Equal(t, fasthttp.StatusOK, status)
	require.NotEmpty(t, cookie)

	// every request with a valid session gets a refreshed cookie
	status, body, refreshed := do(t, client, "GET", "/api/v1/auth/session", "", cookie)
	require.Equal(t, fasthttp.StatusOK, status)
	require.NotEmpty(t, refreshed)
	require.NotEqual(t, cookie, refreshed)
	data := body["data"].(map[string]interface{})
	require.Equal(t, true, data["authenticated"])
	require.NotContains(t, data, "password")

	status, _, _ = do(t, client, "GET", "/api/v1/chat", "", refreshed)
	require.Equal(t, fasthttp.StatusOK, status)

	status, _, cleared := do(t, client, "POST", "/api/v1/auth/logout", "", refreshed)
	require.Equal(t, fasthttp.StatusOK, status)
	require.Empty(t, cleared)
}

func TestRouter_UnknownRoute(t *testing.T) {
	client := startServer(t)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI("http://gateway.local/nope")
	require.NoError(t, client.DoTimeout(req, resp, 2*time.Second))
	require.Equal(t, fasthttp.StatusNotFound, resp.StatusCode())
}

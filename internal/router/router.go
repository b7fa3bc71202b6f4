package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/mudai/api/handler"
	"github.com/fastygo/mudai/internal/middleware"
	"github.com/fastygo/mudai/internal/session"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Account *apiHandler.AccountHandler
	Chat    *apiHandler.ChatHandler
	Contact *apiHandler.ContactHandler
	Health  *apiHandler.HealthHandler
}

// New registers every route. The returned handler logs each request and
// slides the session before routing.
func New(handlers Handlers, sessions *session.Manager, logger *zap.Logger) fasthttp.RequestHandler {
	r := router.New()
	requireSession := middleware.RequireSession(sessions)

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/logout", handlers.Auth.Logout)
	r.GET("/api/v1/auth/session", handlers.Auth.Session)

	// Protected routes
	r.PUT("/api/v1/account/username", requireSession(handlers.Account.UpdateUsername))
	r.POST("/api/v1/account/api-key", requireSession(handlers.Account.IssueAPIKey))
	r.GET("/api/v1/account/activity", requireSession(handlers.Account.Activity))

	r.POST("/api/v1/chat", requireSession(handlers.Chat.Send))
	r.GET("/api/v1/chat", requireSession(handlers.Chat.History))

	r.POST("/api/v1/connect", handlers.Contact.Submit)

	return middleware.Chain(r.Handler,
		middleware.AccessLog(logger),
		middleware.SlidingSession(sessions, logger),
	)
}

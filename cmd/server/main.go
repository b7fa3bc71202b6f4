package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/mudai/api/handler"
	"github.com/fastygo/mudai/internal/apikey"
	"github.com/fastygo/mudai/internal/config"
	"github.com/fastygo/mudai/internal/infrastructure/buffer"
	"github.com/fastygo/mudai/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/mudai/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/mudai/internal/infrastructure/redis"
	"github.com/fastygo/mudai/internal/remote"
	"github.com/fastygo/mudai/internal/router"
	"github.com/fastygo/mudai/internal/services"
	"github.com/fastygo/mudai/internal/services/lifecycle"
	"github.com/fastygo/mudai/internal/session"
	"github.com/fastygo/mudai/internal/token"
	"github.com/fastygo/mudai/pkg/httpcontext"
	"github.com/fastygo/mudai/pkg/logger"
	"github.com/fastygo/mudai/repository/postgres"
	redisRepo "github.com/fastygo/mudai/repository/redis"
	accountUC "github.com/fastygo/mudai/usecase/account"
	authUC "github.com/fastygo/mudai/usecase/auth"
	chatUC "github.com/fastygo/mudai/usecase/chat"
	contactUC "github.com/fastygo/mudai/usecase/contact"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.IsProduction() && !cfg.Session.Secure {
		zapLogger.Warn("session cookies are not marked Secure in production")
	}

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.WaitForSignal(context.Background())
	defer cancel()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		// audit events are buffered until the schema is reachable
		zapLogger.Warn("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres configuration invalid", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis configuration invalid", zap.Error(err))
	}
	manager.Register("redis", lifecycle.Closer(redisClient.Close))
	cooldowns := redisRepo.NewCooldownRepository(redisClient, "mudai:cooldown:")

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "audit")
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register("buffer", lifecycle.Closer(bufferStore.Close))

	mon := monitor.New(probes(pool, redisClient, bufferStore), 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	auditRepo := postgres.NewAuditRepository(pool)

	bufferProcessor := services.NewBufferProcessor(
		bufferStore,
		mon,
		auditRepo,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  cfg.Buffer.BatchSize,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
		},
	)
	bufferProcessor.Start()
	mon.OnRecover(func() {
		ctx, cancel := context.WithTimeout(appCtx, cfg.Buffer.SyncInterval)
		defer cancel()
		if err := bufferProcessor.Drain(ctx); err != nil {
			zapLogger.Warn("drain after recovery failed", zap.Error(err))
		}
	})
	manager.Register("buffer_processor", func(ctx context.Context) error {
		bufferProcessor.Stop(ctx)
		return nil
	})

	auditBridge := services.NewAuditBridge(auditRepo, bufferStore, mon, zapLogger)

	codec, err := token.NewCodec(token.Config{
		Secret:  cfg.Session.Secret,
		Horizon: cfg.Session.TTL,
		Issuer:  cfg.Session.Issuer,
	})
	if err != nil {
		zapLogger.Fatal("token codec", zap.Error(err))
	}
	sessions := session.NewManager(codec, session.Config{
		TTL: cfg.Session.TTL,
		Cookie: session.CookiePolicy{
			Domain:    cfg.Session.CookieDomain,
			Secure:    cfg.Session.Secure,
			CrossSite: cfg.Session.CrossSite,
		},
	}, zapLogger)

	remoteClient := remote.NewClient(cfg.Remote, zapLogger)

	authUseCase := authUC.New(remoteClient, auditBridge, zapLogger)
	accountUseCase := accountUC.New(accountUC.Deps{
		Accounts:  remoteClient,
		Cooldowns: cooldowns,
		Activity:  auditRepo,
		Keys:      apikey.NewGenerator(),
		Audit:     auditBridge,
	}, cfg.APIKey.Cooldown, zapLogger)
	chatUseCase := chatUC.New(remoteClient, zapLogger)
	contactUseCase := contactUC.New(remoteClient, auditBridge, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authUseCase, sessions, ctxAdapter, zapLogger),
		Account: apiHandler.NewAccountHandler(accountUseCase, sessions, ctxAdapter, zapLogger),
		Chat:    apiHandler.NewChatHandler(chatUseCase, sessions, ctxAdapter, zapLogger),
		Contact: apiHandler.NewContactHandler(contactUseCase, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	server := &fasthttp.Server{
		Handler:      router.New(handlers, sessions, zapLogger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("env", cfg.Environment),
			zap.Duration("session_ttl", sessions.TTL()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server crashed", zap.Error(err))
			cancel()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func probes(pool *pgxpool.Pool, redisClient *goRedis.Client, store *buffer.Store) monitor.Probes {
	return monitor.Probes{
		Postgres: pool.Ping,
		Redis:    redisInfra.Probe(redisClient),
		Buffer:   store.Size,
	}
}

package main

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskboard/api/handler"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/infrastructure/journal"
	"github.com/fastygo/taskboard/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskboard/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/taskboard/internal/infrastructure/redis"
	"github.com/fastygo/taskboard/internal/middleware"
	"github.com/fastygo/taskboard/internal/router"
	"github.com/fastygo/taskboard/internal/services"
	"github.com/fastygo/taskboard/internal/services/lifecycle"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	"github.com/fastygo/taskboard/repository/postgres"
	redisRepo "github.com/fastygo/taskboard/repository/redis"
	authUC "github.com/fastygo/taskboard/usecase/auth"
	"github.com/fastygo/taskboard/usecase/workspace"
)

func runServe(parent context.Context) error {
	cfg, zapLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	appCtx, cancel := context.WithCancel(parent)
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(appCtx, cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Error("migrations failed", zap.Error(err))
		return err
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Error("postgres connection failed", zap.Error(err))
		return err
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Error("redis connection failed", zap.Error(err))
		_ = manager.Shutdown(context.Background())
		return err
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	driftJournal, err := journal.Open(cfg.Journal.Path, "drift")
	if err != nil {
		zapLogger.Error("failed to open drift journal", zap.Error(err))
		_ = manager.Shutdown(context.Background())
		return err
	}
	manager.Register("journal", func(ctx context.Context) error {
		return driftJournal.Close()
	})

	mon := monitor.New(monitor.Checks{
		Postgres:    monitor.PingPostgres(pool),
		Redis:       monitor.PingRedis(redisClient),
		JournalSize: driftJournal.Size,
	}, 10*time.Second, zapLogger.Named("monitor"))
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	clock := domain.RealClock{}
	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.Session.TTL)

	authUseCase := authUC.New(userRepo, sessionRepo, clock, zapLogger.Named("auth"))

	registry := workspace.NewRegistry(
		workspace.RegistryConfig{
			MaxWorkspaces: cfg.Workspace.MaxWorkspaces,
			IdleTTL:       cfg.Workspace.IdleTTL,
		},
		authUseCase,
		workspace.Deps{
			Tasks:      taskRepo,
			Categories: categoryRepo,
			Clock:      clock,
			Logger:     zapLogger.Named("workspace"),
		},
	)
	manager.Register("workspaces", func(ctx context.Context) error {
		registry.Purge()
		return nil
	})

	reconciler := services.NewReconciler(
		registry,
		driftJournal,
		mon,
		clock,
		zapLogger.Named("reconciler"),
		services.ReconcilerConfig{
			Interval:  cfg.Journal.ReconcileInterval,
			Retention: cfg.JournalRetention(),
		},
	)
	reconciler.Start()
	manager.Register("reconciler", func(ctx context.Context) error {
		reconciler.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout).WithSessionHeader(middleware.HeaderSessionID)
	tokens := middleware.NewTokens(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	handlers := router.Handlers{
		Auth:      apiHandler.NewAuthHandler(authUseCase, tokens, registry, ctxAdapter, zapLogger, cfg.Session.TTL),
		Task:      apiHandler.NewTaskHandler(registry, reconciler, ctxAdapter, zapLogger),
		Category:  apiHandler.NewCategoryHandler(registry, ctxAdapter, zapLogger),
		Dashboard: apiHandler.NewDashboardHandler(registry, driftJournal, ctxAdapter, zapLogger),
		Health:    apiHandler.NewHealthHandler(mon, registry.Len, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(tokens, zapLogger)
	r := router.New(handlers, authMiddleware, router.Options{EnablePprof: cfg.HTTP.EnablePprof})

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			serveErr <- err
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	var runErr error
	select {
	case <-appCtx.Done():
	case runErr = <-serveErr:
		zapLogger.Error("server crashed", zap.Error(runErr))
	}

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
	return runErr
}

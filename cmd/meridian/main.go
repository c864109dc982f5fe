package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/principal"
	"github.com/meridian-erp/meridian-erp/internal/projects"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
	"github.com/meridian-erp/meridian-erp/internal/token"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{
		Addr:        cfg.RedisAddr,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.RedisDialTimeout,
	})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := audit.NewLogger(pool, logger)
	guard := tenant.NewGuard(logger, auditLogger)

	tenantRepo := tenant.NewRepository(pool, guard)
	platformHandler := tenant.NewHandler(logger, tenantRepo)

	rbacRepo := rbac.NewRepository(pool, guard)
	rbacService := rbac.NewService(rbacRepo, logger)
	rbacResolver := rbac.NewResolver(rbacRepo, logger)
	rbacHandler := rbac.NewHandler(logger, rbacService)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	denylist := token.NewDenylist(redisClient, cfg.AccessTTL)
	tokenRepo := token.NewRepository(pool)
	tokenService := token.NewService(tokenRepo, denylist, auditLogger, logger, cfg.RefreshTTL)

	minter, err := auth.NewMinter(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL)
	if err != nil {
		logger.Error("configure token minter", slog.Any("error", err))
		os.Exit(1)
	}

	authRepo := auth.NewRepository(pool, guard)
	authService := auth.NewService(authRepo, tenantRepo)
	authHandler := auth.NewHandler(logger, authService, tokenService, minter)
	authenticator := &auth.Authenticator{
		Logger:   logger,
		Minter:   minter,
		Service:  authService,
		Sessions: denylist,
		Resolver: rbacResolver,
	}

	principalRepo := principal.NewRepository(pool, guard)
	principalService := principal.NewService(principalRepo, tokenService, logger)
	principalHandler := principal.NewHandler(logger, principalService)

	projectsRepo := projects.NewRepository(pool, guard)
	projectsService := projects.NewService(projectsRepo)
	projectsHandler := projects.NewHandler(logger, projectsService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Authenticator:    authenticator,
		AuthHandler:      authHandler,
		RBACHandler:      rbacHandler,
		RBACMiddleware:   rbacMiddleware,
		PrincipalHandler: principalHandler,
		ProjectsHandler:  projectsHandler,
		PlatformHandler:  platformHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

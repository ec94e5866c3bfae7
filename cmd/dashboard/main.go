package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inspeksi/audit-dashboard/internal/app"
	"github.com/inspeksi/audit-dashboard/internal/audits"
	"github.com/inspeksi/audit-dashboard/internal/auth"
	dashboardhttp "github.com/inspeksi/audit-dashboard/internal/dashboard/http"
	"github.com/inspeksi/audit-dashboard/internal/observability"
	"github.com/inspeksi/audit-dashboard/internal/platform/cache"
	"github.com/inspeksi/audit-dashboard/internal/remote"
	"github.com/inspeksi/audit-dashboard/internal/shared"
	"github.com/inspeksi/audit-dashboard/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "inspeksi_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	var source remote.ConfigSource = remote.StaticSource(cfg.APIBaseURL)
	if cfg.ConfigSourceURL != "" {
		source = remote.NewHTTPSource(cfg.ConfigSourceURL)
	}
	apiClient := remote.NewClient(source, &http.Client{Timeout: cfg.APITimeout}, logger)
	if _, err := apiClient.Configure(ctx); err != nil {
		// Resolution is retried lazily on the next request.
		logger.Error("resolve api base url", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()
	stateStore := audits.NewRedisStore(redisClient, cfg.SessionTTL)

	authService := auth.NewService(apiClient, metrics, logger)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, stateStore)

	dashboardHandler := dashboardhttp.NewHandler(logger, apiClient, stateStore, templates, csrfManager, dashboardhttp.Config{
		FetchSize: cfg.AuditFetchPageSize,
		Location:  cfg.DisplayLocation(),
		Metrics:   metrics,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("dashboard listening", slog.String("addr", cfg.AppAddr))
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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/cache"
	"github.com/quillhub/backend/internal/config"
	"github.com/quillhub/backend/internal/container"
	"github.com/quillhub/backend/internal/database"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/notifications"
	"github.com/quillhub/backend/internal/search"
	"github.com/quillhub/backend/internal/telemetry"
	"github.com/quillhub/backend/internal/validation"
	"github.com/quillhub/backend/internal/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "quill-backend"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quill: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Quill server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port))

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		Enabled:      cfg.Tracing.Enabled,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	if err := database.Initialize(cfg.Database, cfg.IsDevelopment()); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if tp != nil {
		if err := database.EnableTracing(); err != nil {
			logger.Log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	opts := container.Options{
		JWTSecret: []byte(cfg.JWTSecret),
		WSRateLimit: &websocket.RateLimitConfig{
			MaxMessagesPerSecond: cfg.WSRateLimitPerSecond,
			BurstSize:            cfg.WSRateLimitBurst,
		},
	}

	if cfg.Redis.Enabled() {
		rc, err := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			logger.Log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		} else {
			opts.Redis = rc
		}
	}

	if cfg.ElasticsearchURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		client, err := search.NewClient(ctx, cfg.ElasticsearchURL)
		if err == nil {
			err = client.EnsureIndex(ctx)
		}
		cancel()
		if err != nil {
			logger.Log.Warn("Elasticsearch unavailable, search falls back to the database", zap.Error(err))
		} else {
			opts.SearchClient = client
		}
	}

	if err := requiredServices(cfg, opts).ValidateServices(context.Background()); err != nil {
		return err
	}

	app, err := container.Build(database.DB, opts)
	if err != nil {
		return err
	}
	if opts.Redis != nil {
		app.OnCleanup(func(context.Context) error { return opts.Redis.Close() })
	}
	if tp != nil {
		app.OnCleanup(func(ctx context.Context) error { return telemetry.Shutdown(ctx, tp) })
	}

	scheduler := notifications.NewScheduler(
		notifications.NewRetentionJob(app.NotificationStore(), cfg.NotificationRetentionDays),
		cfg.RetentionSchedule,
	)
	if err := scheduler.RegisterJobs(); err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	if app.Search().Enabled() && cfg.SearchReconcileSchedule != "" {
		if err := scheduler.AddJob(cfg.SearchReconcileSchedule, search.NewReconcileJob(app.Search())); err != nil {
			return fmt.Errorf("failed to schedule search reconciliation: %w", err)
		}
	}
	scheduler.Start()
	app.OnCleanup(func(context.Context) error {
		scheduler.Stop()
		return nil
	})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Hub().Run()
		return nil
	})
	g.Go(func() error {
		logger.Log.Info("Quill backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// stop accepting requests before closing sockets
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Server forced to shutdown", zap.Error(err))
		}
		if err := app.WebSocketHandler().Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
		}
		return app.Cleanup(shutdownCtx)
	})

	err = g.Wait()
	logger.Log.Info("Server exited")
	return err
}

// requiredServices checks what was actually connected, so a required
// service that failed to connect above aborts startup
func requiredServices(cfg *config.Config, opts container.Options) *validation.ServiceValidator {
	sv := validation.NewServiceValidator(cfg.RequiredServices)
	sv.Register(validation.ServiceRedis, func(ctx context.Context) error {
		if opts.Redis == nil {
			return validation.ErrNotConfigured
		}
		return opts.Redis.Ping(ctx)
	})
	sv.Register(validation.ServiceElasticsearch, func(ctx context.Context) error {
		if opts.SearchClient == nil {
			return validation.ErrNotConfigured
		}
		return opts.SearchClient.Ping(ctx)
	})
	return sv
}

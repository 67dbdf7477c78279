package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio/backend/internal/config"
	"portfolio/backend/internal/health"
	"portfolio/backend/internal/logger"
	"portfolio/backend/internal/mailer"
	"portfolio/backend/internal/monitoring"
	"portfolio/backend/internal/ratelimit"
	"portfolio/backend/internal/service"
	httptransport "portfolio/backend/internal/transport/http"
)

// main 启动联系表单 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting contact server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("mail_provider", cfg.Mail.Provider),
		zap.String("ratelimit_backend", cfg.RateLimit.Backend),
	)

	if cfg.Mail.To == "" || cfg.Mail.From == "" {
		// 仍然启动，每次提交都会返回配置缺失
		log.Warn("mail.to or mail.from not configured, submissions will fail")
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(log)

	// 初始化限流存储
	var store ratelimit.Store
	switch cfg.RateLimit.Backend {
	case "redis":
		client, err := ratelimit.DialRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.String("address", cfg.Redis.Address), zap.Error(err))
		}
		redisStore := ratelimit.NewRedisStore(client)
		defer func() { _ = redisStore.Close() }()

		healthChecker.AddReadinessPinger("redis", redisStore, 2*time.Second)
		store = redisStore
		log.Info("using redis rate limit store", zap.String("address", cfg.Redis.Address))
	default:
		memoryStore := ratelimit.NewMemoryStore()
		memoryStore.StartSweeper(groupCtx, cfg.RateLimit.SweepInterval, func(removed int) {
			if removed > 0 {
				log.Debug("expired rate limit entries swept", zap.Int("count", removed))
			}
		})
		store = memoryStore
		log.Info("using in-memory rate limit store", zap.Duration("sweep_interval", cfg.RateLimit.SweepInterval))
	}

	limiter, err := ratelimit.NewLimiter(store, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	if err != nil {
		log.Fatal("failed to create rate limiter", zap.Error(err))
	}

	sender, err := mailer.New(cfg.Mail, cfg.SMTP, log)
	if err != nil {
		log.Fatal("failed to create mail sender", zap.Error(err))
	}
	if check, ok := mailer.ReadinessCheck(sender); ok {
		healthChecker.AddReadinessCheck("mail-provider", check)
	}

	contactService := service.NewContactService(limiter, sender, service.ContactConfig{
		To:          cfg.Mail.To,
		From:        cfg.Mail.From,
		Acknowledge: cfg.Mail.Acknowledge,
	}, log)
	contactService.SetRecorder(metrics)

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:  cfg,
		Contact: contactService,
		Health:  healthChecker,
		Metrics: metrics,
		Logger:  log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

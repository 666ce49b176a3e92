package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nabz/internal/config"
	"nabz/internal/controllers"
	"nabz/internal/middleware"
	"nabz/internal/routes"
	"nabz/internal/services"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := services.NewWebSocketHub(logger)

	probes := services.NewProbeSet(cfg.ProbeTimeout, logger)
	probes.System = services.NewSystemProbe()
	probes.Realtime = hub

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	probes.Cache = services.NewRedisCacheProbe(rdb)
	probes.Messaging = services.NewRedisMessagingProbe(rdb)

	buffer := services.NewSampleBuffer()

	if cfg.DatabaseURL != "" {
		pool, poolProbe, err := services.NewInstrumentedPool(ctx, cfg.DatabaseURL, buffer, cfg.SlowQueryMS)
		if err != nil {
			logger.Warn("database pool disabled", zap.Error(err))
		} else {
			defer pool.Close()
			probes.Database = poolProbe
		}
	}

	var emitter *services.TelemetryEmitter
	if cfg.TelemetryURL != "" {
		emitter, err = services.NewTelemetryEmitter(cfg.TelemetryURL, cfg.TelemetryToken, nil)
		if err != nil {
			logger.Warn("telemetry disabled", zap.Error(err))
		}
	}

	evaluator := services.NewAlertEvaluator(services.DefaultThresholds())
	monitor := services.NewMonitor(services.MonitorOptions{
		CollectInterval:  cfg.CollectInterval,
		AlertInterval:    cfg.AlertInterval,
		CleanupInterval:  cfg.CleanupInterval,
		Retention:        cfg.Retention,
		ThroughputWindow: cfg.ThroughputWindow,
	}, buffer, probes, evaluator, hub, hub, emitter, logger)
	go monitor.Run(ctx)

	services.InitAuthService(cfg.JWTSecret, cfg.TokenExpiry, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(), logger))
	r.Use(middleware.RequestTimingMiddleware(monitor))

	mc := controllers.NewMonitorController(monitor)
	wc := controllers.NewWebSocketController(hub, logger)
	routes.RegisterMonitorRoutes(r, mc, logger)
	routes.RegisterAuthRoutes(r, wc, logger)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	hub.Stop()
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/apiclient"
	"storefront/internal/broker"
	"storefront/internal/checkout"
	"storefront/internal/redisclient"
	"storefront/internal/session"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront", zap.String("backend", cfg.Backend.BaseURL))

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	var (
		snapshots checkout.SnapshotStore
		purger    worker.Purger
		ready     func(ctx context.Context) error
	)
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		snapshots = redisClient
		ready = redisClient.Ping
	} else {
		memory := checkout.NewMemoryStore()
		snapshots = memory
		purger = memory
		logger.Warn("Redis disabled, checkout snapshots are kept in memory")
	}

	var publisher *broker.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicActivity)
		publisher = broker.NewEventPublisher(producer)
		defer publisher.Close()
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	pricing := checkout.Pricing{
		FlatShipping:     cfg.Business.FlatShipping,
		FreeShippingOver: cfg.Business.FreeShippingOver,
	}
	handoff := checkout.NewHandoff(snapshots, pricing, cfg.Business.SnapshotTTL)

	sessCfg := session.Config{
		BackendURL: cfg.Backend.BaseURL,
		Handoff:    handoff,
	}
	if cfg.Backend.Timeout > 0 {
		sessCfg.ClientOptions = append(sessCfg.ClientOptions, apiclient.WithTimeout(cfg.Backend.Timeout))
	}
	if publisher.Enabled() {
		sessCfg.Publisher = publisher
	}
	sessions := session.NewRegistry(sessCfg)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	reaper := worker.NewSessionReaper(sessions, purger, cfg.Business.ReapInterval, cfg.Business.SessionIdleTimeout)
	go func() {
		if err := reaper.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Session reaper error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(sessions, api.Options{
		Pricing:       pricing,
		SecureCookies: cfg.Server.Env == "production",
		SessionMaxAge: cfg.Business.SessionIdleTimeout,
		Ready:         ready,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	reaper.Stop()

	logger.Info("Server exited")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"crmsweep/internal/config"
	"crmsweep/internal/httpserver"
	"crmsweep/internal/mqhandler"
	"crmsweep/internal/repository"
	"crmsweep/internal/service/push"
	"crmsweep/pkg/db"
	"crmsweep/pkg/logger"
	"crmsweep/pkg/mq"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting pusher...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("push_url", cfg.Push.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Repositories
	deviceRepo := repository.NewDeviceRepository(dbConn, log)

	// Push provider + fan-out
	provider := push.NewProvider(cfg.Push.URL, time.Duration(cfg.Push.TimeoutSeconds)*time.Second, log)
	fanout := push.NewFanout(deviceRepo, provider, log)

	// DLQ publisher for permanently failed deliveries
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()
	if err := publisher.SetupDLQ("notification.created"); err != nil {
		log.Fatal("Failed to set up DLQ", zap.Error(err))
	}

	// MQ consumer for notification.created
	handler := mqhandler.NewNotificationCreatedHandler(fanout, publisher, log)

	consumer, err := mq.NewConsumer(cfg.MQ.URL, "notification.created.push.q", "notification.created", log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	consumer.SetHandler(handler.Handle)

	go func() {
		log.Info("Starting notification.created consumer...")
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Notification consumer failed", zap.Error(err))
		}
	}()

	// HTTP server (health checks, metrics)
	port := cfg.Server.Port
	if port == "" {
		port = "8085"
	}
	router := httpserver.NewRouter(log, dbConn)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("pusher is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down pusher gracefully...")

	consumer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("pusher shutdown complete")
}

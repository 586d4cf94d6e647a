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
	"crmsweep/internal/model"
	"crmsweep/internal/repository"
	"crmsweep/internal/service/sweep"
	"crmsweep/pkg/db"
	"crmsweep/pkg/logger"
	"crmsweep/pkg/mq"
	"crmsweep/pkg/outbox"
	"crmsweep/pkg/redis"
	"crmsweep/pkg/runlock"
	"crmsweep/pkg/trace"
)

const (
	taskSweepLock = "tasks"
	leadSweepLock = "leads"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting sweeper...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.Int("task_interval_minutes", cfg.Sweep.TaskIntervalMinutes),
		zap.String("lead_check_time", cfg.Sweep.LeadCheckTime),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis (run locks)
	rdb := redis.NewClient(cfg.Redis)
	defer rdb.Close()
	lock := runlock.New(rdb, time.Duration(cfg.Sweep.LockTTLSeconds)*time.Second, log)

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	taskRepo := repository.NewTaskRepository(dbConn, log)
	leadRepo := repository.NewLeadRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)

	// Sweeper
	leadRules := []sweep.StaleLeadRule{
		{
			Status:         model.LeadStatusCaring,
			InactivityDays: cfg.Sweep.CaringInactivityDays,
			Reason:         model.ReasonCaringNoActivity7d,
		},
		{
			Status:         model.LeadStatusLead,
			InactivityDays: cfg.Sweep.LeadInactivityDays,
			Reason:         model.ReasonLeadNoActivity3d,
		},
	}
	sweeper := sweep.NewSweeper(taskRepo, leadRepo, notificationRepo, leadRules, log)

	// Outbox dispatcher
	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()
	go dispatcher.Start(dispatcherCtx)

	// Task sweep - runs on a fixed interval
	taskSweepCtx, taskSweepCancel := context.WithCancel(context.Background())
	defer taskSweepCancel()

	go func() {
		interval := time.Duration(cfg.Sweep.TaskIntervalMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Run immediately on startup
		runTaskSweep(taskSweepCtx, sweeper, lock, log)

		for {
			select {
			case <-taskSweepCtx.Done():
				log.Info("Task sweep scheduler stopped")
				return
			case <-ticker.C:
				runTaskSweep(taskSweepCtx, sweeper, lock, log)
			}
		}
	}()

	// Lead sweep - runs once daily at the configured time
	leadSweepCtx, leadSweepCancel := context.WithCancel(context.Background())
	defer leadSweepCancel()

	go func() {
		delay, err := delayUntil(time.Now(), cfg.Sweep.LeadCheckTime)
		if err != nil {
			log.Error("Invalid lead_check_time, lead sweep disabled", zap.Error(err))
			return
		}
		log.Info("Lead sweep scheduled",
			zap.Duration("initial_delay", delay),
		)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-leadSweepCtx.Done():
			return
		case <-timer.C:
		}

		runLeadSweep(leadSweepCtx, sweeper, lock, log)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-leadSweepCtx.Done():
				log.Info("Lead sweep scheduler stopped")
				return
			case <-ticker.C:
				runLeadSweep(leadSweepCtx, sweeper, lock, log)
			}
		}
	}()

	// HTTP server (health checks, metrics)
	port := cfg.Server.Port
	if port == "" {
		port = "8084"
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

	log.Info("sweeper is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down sweeper gracefully...")

	taskSweepCancel()
	leadSweepCancel()
	dispatcherCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("sweeper shutdown complete")
}

func runTaskSweep(ctx context.Context, sweeper *sweep.Sweeper, lock *runlock.Lock, log *zap.Logger) {
	ctx = trace.WithContext(ctx, trace.GenerateTraceID())
	if !lock.TryAcquire(ctx, taskSweepLock) {
		return
	}
	defer lock.Release(ctx, taskSweepLock)

	if err := sweeper.RunTaskSweep(ctx, time.Now()); err != nil {
		logger.WithTrace(ctx, log).Error("Task sweep failed", zap.Error(err))
	}
}

func runLeadSweep(ctx context.Context, sweeper *sweep.Sweeper, lock *runlock.Lock, log *zap.Logger) {
	ctx = trace.WithContext(ctx, trace.GenerateTraceID())
	if !lock.TryAcquire(ctx, leadSweepLock) {
		return
	}
	defer lock.Release(ctx, leadSweepLock)

	if err := sweeper.RunLeadSweep(ctx, time.Now()); err != nil {
		logger.WithTrace(ctx, log).Error("Lead sweep failed", zap.Error(err))
	}
}

// delayUntil returns how long to wait from now until the next occurrence of
// the HH:MM wall-clock time, in now's location.
func delayUntil(now time.Time, hhmm string) (time.Duration, error) {
	at, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now), nil
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/functions/internal/metrics"
	"github.com/anonto42/nano-midea/functions/internal/router"
	"github.com/anonto42/nano-midea/functions/internal/triggers"
	"github.com/anonto42/nano-midea/functions/pkg/config"
	"github.com/anonto42/nano-midea/functions/pkg/firebase"
	"github.com/anonto42/nano-midea/functions/pkg/logger"
	"github.com/anonto42/nano-midea/functions/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()
	slogger := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Initialize Firebase
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseProjectID, cfg.StorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	defer firebaseApp.Close()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	e.Server.WriteTimeout = cfg.TriggerTimeout + 10*time.Second

	router.SetupMiddleware(e, slogger)
	registry, err := router.SetupRoutes(e, cfg, db, firebaseApp, slogger)
	if err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// Metrics
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metrics.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("metrics_server_failed", "error", err)
		}
	}()

	// Scheduled triggers
	var scheduler *triggers.Scheduler
	if cfg.SchedulerEnabled {
		scheduler = triggers.NewScheduler(registry, cfg.TriggerTimeout, slogger)
		scheduler.Start(ctx)
	} else {
		log.Println("SCHEDULER_ENABLED is false, scheduled triggers only run through /triggers/schedule.")
	}

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()
	slogger.Info("server_started", "port", cfg.Port, "metrics_port", cfg.MetricsPort, "env", cfg.Env)

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.TriggerTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slogger.Error("server_shutdown_failed", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		slogger.Error("metrics_shutdown_failed", "error", err)
	}
	if scheduler != nil {
		scheduler.Wait()
	}
	log.Println("Server stopped.")
}

// cmd/server/main.go
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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/paydesk/commission-backend/internal/config"
	"github.com/paydesk/commission-backend/internal/database"
	"github.com/paydesk/commission-backend/internal/jobs"
	"github.com/paydesk/commission-backend/internal/router"
	"github.com/paydesk/commission-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Seed initial data
	if err := database.SeedInitialData(db); err != nil {
		log.Fatal("Failed to seed initial data:", err)
	}

	// Background job queue for ingestion processing
	queue := jobs.NewQueue(cfg.Jobs.Workers, cfg.Jobs.QueueSize, cfg.Jobs.MaxRetries)
	queue.Start()
	defer queue.Stop()

	// Cutoff-day scheduler runs the inactivity expiration once per billing
	// cycle and mails the outcome. Replicas that should not run scheduled
	// expirations disable it via JOBS_SCHEDULER_ENABLED.
	if cfg.Jobs.SchedulerEnabled {
		expirationService := services.NewExpirationService(db, cfg.Commission.CutoffDay)
		notificationService := services.NewNotificationService(cfg)
		scheduler := jobs.NewCutoffScheduler(cfg.Commission.CutoffDay, func() {
			referenceMonth := time.Now()
			result, err := expirationService.ExpireInactive(referenceMonth)
			if err != nil {
				logrus.WithError(err).Error("Scheduled inactivity expiration failed")
				return
			}
			if err := notificationService.SendExpirationSummary(referenceMonth.Format("2006-01"), result.ExpiredCount); err != nil {
				logrus.WithError(err).Warn("Failed to send expiration summary notification")
			}
		})
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(db, cfg, queue)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvallois/rendez/internal/backup"
	"github.com/mvallois/rendez/internal/config"
	"github.com/mvallois/rendez/internal/database"
	"github.com/mvallois/rendez/internal/email"
	"github.com/mvallois/rendez/internal/logging"
	"github.com/mvallois/rendez/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	mailClient := email.NewClient(cfg.MailServerToken, cfg.MailFrom, email.WithAPIURL(cfg.MailAPIURL))
	if !mailClient.Configured() {
		logger.Warn("mail client not configured; confirmation and reminder emails will fail")
	}

	srv := server.New(db, mailClient, server.Config{
		MeetingBaseURL:    cfg.MeetingBaseURL,
		ReminderOffset:    cfg.ReminderOffset,
		DispatchTimeout:   cfg.DispatchTimeout,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}, logger)

	// Reminder registrations live only in memory: replay every future
	// appointment before serving traffic.
	scheduler := srv.ReminderScheduler()
	if err := scheduler.Restore(srv.AppointmentStore()); err != nil {
		logger.Error("failed to restore reminders", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	backupMgr := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"))
	if backupMgr.Configured() {
		backupMgr.Start(ctx)
		defer backupMgr.Stop()
	} else {
		logger.Info("backups disabled; set S3 credentials and a passphrase to enable")
	}

	// Periodically drop expired rate-limiter entries.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("rendez listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

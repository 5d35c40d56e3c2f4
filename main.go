package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"taskhub/config"
	"taskhub/middleware"
	"taskhub/routes"
	"taskhub/utils"
	"taskhub/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	utils.SetupLogger(cfg.Environment, cfg.LogLevel)
	logger := utils.Logger("main")
	cfg.LogConfig()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	var mailer utils.Mailer
	if smtp := utils.NewSMTPMailer(utils.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromEmail: cfg.SMTP.FromEmail,
		FromName:  cfg.SMTP.FromName,
	}); smtp != nil {
		mailer = smtp
	} else {
		logger.Info("SMTP not configured, emails are disabled")
	}

	app := routes.NewApp(routes.Dependencies{
		DB:               db,
		Config:           cfg,
		Issuer:           utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTTL),
		Mailer:           mailer,
		RateLimitStorage: middleware.NewRateLimitStorage(cfg.Redis),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	overdueWorker := worker.NewOverdueWorker(db, mailer, utils.Logger("overdue"), cfg.OverdueScan)
	go overdueWorker.Start(ctx)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	// Start server
	logger.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

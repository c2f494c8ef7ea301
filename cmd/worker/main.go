package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/TANKominator5/crowdmedics-api/internal/config"
	"github.com/TANKominator5/crowdmedics-api/internal/email"
	"github.com/TANKominator5/crowdmedics-api/internal/repository/postgres"
	"github.com/TANKominator5/crowdmedics-api/pkg/logger"
	"github.com/TANKominator5/crowdmedics-api/pkg/metrics"
	"github.com/TANKominator5/crowdmedics-api/pkg/worker"
)

// Standalone notification dispatcher for deployments that keep SMTP
// traffic out of the API pods.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("crowdmedics", "worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	notificationRepo := postgres.NewNotificationRepository(postgres.NewBaseRepository(db))
	emailSvc := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	dispatcher := worker.NewDispatcher(notificationRepo, emailSvc, worker.DispatcherConfig{
		BatchSize:     cfg.Notifications.BatchSize,
		PollInterval:  cfg.Notifications.PollInterval,
		RetryAttempts: cfg.Notifications.RetryAttempts,
		RetryDelay:    cfg.Notifications.RetryDelay,
	}, appLogger, appMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down dispatcher...")
		cancel()
	}()

	dispatcher.Start(ctx)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/TANKominator5/crowdmedics-api/internal/config"
	"github.com/TANKominator5/crowdmedics-api/internal/email"
	"github.com/TANKominator5/crowdmedics-api/internal/handler"
	adminHandler "github.com/TANKominator5/crowdmedics-api/internal/handler/admin"
	authHandler "github.com/TANKominator5/crowdmedics-api/internal/handler/auth"
	clientHandler "github.com/TANKominator5/crowdmedics-api/internal/handler/client"
	medicHandler "github.com/TANKominator5/crowdmedics-api/internal/handler/medic"
	sosHandler "github.com/TANKominator5/crowdmedics-api/internal/handler/sos"
	"github.com/TANKominator5/crowdmedics-api/internal/middleware"
	"github.com/TANKominator5/crowdmedics-api/internal/repository/postgres"
	"github.com/TANKominator5/crowdmedics-api/internal/repository/redisstore"
	"github.com/TANKominator5/crowdmedics-api/internal/router"
	authService "github.com/TANKominator5/crowdmedics-api/internal/service/auth"
	clientService "github.com/TANKominator5/crowdmedics-api/internal/service/client"
	matcherService "github.com/TANKominator5/crowdmedics-api/internal/service/matcher"
	medicService "github.com/TANKominator5/crowdmedics-api/internal/service/medic"
	notificationService "github.com/TANKominator5/crowdmedics-api/internal/service/notification"
	sosService "github.com/TANKominator5/crowdmedics-api/internal/service/sos"
	"github.com/TANKominator5/crowdmedics-api/pkg/auth"
	"github.com/TANKominator5/crowdmedics-api/pkg/logger"
	redisBroker "github.com/TANKominator5/crowdmedics-api/pkg/messaging/redis"
	"github.com/TANKominator5/crowdmedics-api/pkg/metrics"
	"github.com/TANKominator5/crowdmedics-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("crowdmedics", "api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	medicRepo := postgres.NewMedicRepository(baseRepo)
	clientRepo := postgres.NewClientRepository(baseRepo)
	sosRepo := postgres.NewSOSRepository(baseRepo)
	notificationRepo := postgres.NewNotificationRepository(baseRepo)
	tokenStore := redisstore.NewTokenStore(broker.Client())

	// Services
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})
	notificationSvc := notificationService.NewService(notificationRepo, broker, cfg.Notifications.AdminEmails)
	medicSvc := medicService.NewService(medicRepo, notificationSvc, appMetrics)
	clientSvc := clientService.NewService(clientRepo)
	authSvc := authService.NewService(userRepo, tokenStore, jwtSvc, medicSvc, clientSvc)
	matcherSvc := matcherService.NewService(medicRepo, matcherService.Config{
		CacheTTL:        cfg.Matcher.CacheTTL,
		CleanupInterval: cfg.Matcher.CleanupInterval,
	}, appMetrics)
	sosSvc := sosService.NewService(sosRepo, medicRepo, broker, appMetrics)

	// Notification dispatcher shares the process in single-binary deploys;
	// cmd/worker runs it standalone.
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

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	go dispatcher.Start(dispatcherCtx)

	// HTTP layer
	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	healthH := handler.NewHealthHandler(db)
	authH := authHandler.NewHandler(authSvc)
	medicH := medicHandler.NewHandler(medicSvc)
	clientH := clientHandler.NewHandler(clientSvc)
	sosH := sosHandler.NewHandler(sosSvc, matcherSvc)
	adminH := adminHandler.NewHandler(medicSvc, sosSvc, clientSvc)

	r := router.NewRouter(authMiddleware, authH, medicH, clientH, sosH, adminH, healthH, router.RouterConfig{
		RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:     cfg.RateLimit.Burst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "crowdmedics_http",
	})
	if err := r.Setup(); err != nil {
		log.Fatal().Err(err).Msg("failed to set up router")
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopDispatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

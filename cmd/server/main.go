// @title           Storefront Identity Service API
// @version         1.0
// @description     Signup, email verification, role-gated login, seller approval and password recovery.
// @BasePath        /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer ` prefix
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/identity-service/internal/api"
	"github.com/storefront/identity-service/internal/api/handler"
	"github.com/storefront/identity-service/internal/core/ports"
	"github.com/storefront/identity-service/internal/core/service"
	mongodb "github.com/storefront/identity-service/internal/infrastructure/db/mongo"
	redisdb "github.com/storefront/identity-service/internal/infrastructure/db/redis"
	"github.com/storefront/identity-service/internal/infrastructure/notify"
	"github.com/storefront/identity-service/internal/infrastructure/queue"
	"github.com/storefront/identity-service/internal/infrastructure/token"
	"github.com/storefront/identity-service/internal/pkg/config"
	"github.com/storefront/identity-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "identity service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "identity-service",
	})

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
		AppName:  "identity-service",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}()

	accounts := mongodb.NewAccountRepository(db)
	events := mongodb.NewEventRepository(db)
	if err := mongodb.EnsureIndexes(ctx, accounts, events); err != nil {
		return err
	}
	images, err := mongodb.NewImageStore(db, cfg.App.ImageBaseURL)
	if err != nil {
		return err
	}

	// --- Notifications ---
	notifier, closeNotifier, err := buildNotifier(cfg, logger.Component("notifier"))
	if err != nil {
		return err
	}
	defer func() {
		if err := closeNotifier.Close(); err != nil {
			log.Error().Err(err).Msg("notifier close")
		}
	}()

	templates, err := service.NewTemplates(service.TemplateOptions{
		AppName:      cfg.AppName,
		FrontendURL:  cfg.App.FrontendURL,
		SupportEmail: cfg.App.SupportEmail,
	})
	if err != nil {
		return err
	}

	// --- Audit trail ---
	dispatcher := queue.NewDispatcher(cfg.App.EventWorkers,
		service.NewEventService(events, logger.Component("audit")),
		logger.Component("dispatcher"))
	dispatcher.Start(context.Background())
	// Runs after the HTTP server has drained, before storage disconnects.
	defer dispatcher.Close()

	// --- Core services ---
	issuer, err := token.NewIssuer(cfg.Token.Secret, cfg.Token.Issuer, cfg.Token.TTL)
	if err != nil {
		return err
	}
	otp := service.NewOTPEngine(accounts, notifier, templates, service.WithOTPTTL(cfg.OTP.TTL))
	throttle := redisdb.NewChallengeThrottle(rdb, redisdb.ThrottleConfig{
		Cooldown:     cfg.OTP.Cooldown,
		Window:       cfg.OTP.Window,
		MaxPerWindow: cfg.OTP.MaxPerWindow,
	})

	onboarding := service.NewOnboardingService(accounts, otp, issuer, logger.Component("onboarding"),
		service.WithThrottle(throttle),
		service.WithEvents(dispatcher),
		service.WithPhoneRegion(cfg.App.PhoneRegion),
		service.WithBcryptCost(cfg.App.BcryptCost),
	)
	admin := service.NewAdminService(accounts, images, notifier, templates, logger.Component("admin"),
		service.WithAdminEvents(dispatcher),
		service.WithAdminPhoneRegion(cfg.App.PhoneRegion),
		service.WithAdminBcryptCost(cfg.App.BcryptCost),
	)
	gate := service.NewAccessGate(accounts, issuer)

	if cfg.Admin.Email != "" {
		acc, err := admin.BootstrapAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info().Str("account_id", acc.ID).Msg("admin account ready")
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:               logger.Component("http"),
		ExposeErrorDetail: !cfg.IsProduction(),
		PhoneRegion:       cfg.App.PhoneRegion,
		MaxImageBytes:     cfg.App.MaxImageBytes,
		Onboarding:        onboarding,
		Admin:             admin,
		Gate:              gate,
		Readiness:         []handler.DependencyCheck{handler.MongoCheck(db), handler.RedisCheck(rdb)},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("identity service listening")
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	return nil
}

// buildNotifier picks the notification driver. The returned closer is always
// non-nil.
func buildNotifier(cfg *config.Config, log zerolog.Logger) (ports.Notifier, io.Closer, error) {
	switch cfg.Notifier.Driver {
	case config.NotifierSMTP:
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Notifier.SMTPHost,
			Port:     cfg.Notifier.SMTPPort,
			Username: cfg.Notifier.SMTPUsername,
			Password: cfg.Notifier.SMTPPassword,
			From:     cfg.Notifier.SMTPFrom,
			FromName: cfg.AppName,
			Timeout:  cfg.Notifier.SMTPTimeout,
		})
		return n, noopCloser{}, err
	case config.NotifierKafka:
		n := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.Notifier.KafkaBrokers, cfg.Notifier.KafkaTopic))
		return n, n, nil
	default:
		log.Warn().Msg("log notifier in use, emails are not delivered")
		return notify.NewLogNotifier(log, cfg.Notifier.LogBody), noopCloser{}, nil
	}
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

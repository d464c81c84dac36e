// @title                       DocBook Booking API
// @version                     1.0
// @description                 Doctor appointment booking: accounts, doctor catalogue and per-user appointment sessions.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docbook/booking-system/internal/api"
	"github.com/docbook/booking-system/internal/api/handler"
	"github.com/docbook/booking-system/internal/core/ports"
	"github.com/docbook/booking-system/internal/core/service"
	mongostore "github.com/docbook/booking-system/internal/infrastructure/db/mongo"
	redisstore "github.com/docbook/booking-system/internal/infrastructure/db/redis"
	"github.com/docbook/booking-system/internal/infrastructure/identity"
	"github.com/docbook/booking-system/internal/infrastructure/queue"
	"github.com/docbook/booking-system/internal/pkg/config"
	"github.com/docbook/booking-system/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "booking-api",
		Env:     cfg.Env,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:          cfg.Mongo.URI,
		Database:     cfg.Mongo.Database,
		Transactions: cfg.Mongo.Transactions,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	directory := mongostore.NewDirectory(mongoClient, db, cfg.Mongo.Transactions)
	accounts := mongostore.NewAccountRepository(db)
	if err := directory.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure directory indexes")
	}
	if err := accounts.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure account indexes")
	}

	denylist := redisstore.NewTokenDenylist(rdb)
	locker := service.ChainLockers(
		service.NewLocalSlotLocker(),
		redisstore.NewSlotLocker(rdb, cfg.Redis.LockTTL, logger.Component("slot_lock")),
	)

	// --- Identity ---
	tokens := identity.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	providerCfg := identity.Config{
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		MaxFailures:       cfg.Auth.MaxFailures,
		FailureWindow:     cfg.Auth.FailureWindow,
	}
	if cfg.Google.Enabled() {
		providerCfg.Google = &identity.GoogleConfig{ClientID: cfg.Google.ClientID, Keys: cfg.Google.Keys}
	}
	provider, err := identity.NewProvider(accounts, tokens, providerCfg, logger.Component("identity"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build identity provider")
	}
	var federated ports.FederatedProvider
	if provider.GoogleEnabled() {
		federated = provider
	}

	// --- Core services ---
	opts := service.Options{
		Retry: service.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			Multiplier:  cfg.Retry.Multiplier,
		},
		CallTimeout: cfg.Directory.CallTimeout,
	}
	registry := service.NewSessionRegistry(directory, locker, directory, opts, logger.Component("session"))
	defer registry.Close()

	dispatcher := queue.NewDispatcher(cfg.IdentityWorkers, registry, logger.Component("dispatcher"))
	dispatcher.Start(ctx)
	go registry.RunEviction(ctx, cfg.Session.IdleTimeout, cfg.Session.SweepInterval)
	go provider.RunLimiterCleanup(ctx, cfg.Auth.FailureWindow)
	unsubscribe := provider.Subscribe(dispatcher.Enqueue)
	defer unsubscribe()

	authService := service.NewAuthService(provider, federated, denylist, directory, opts, logger.Component("auth"))
	doctorService := service.NewDoctorService(directory, opts, logger.Component("doctors"))

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Auth:     authService,
		Doctors:  doctorService,
		Sessions: registry,
		Verifier: tokens,
		Denylist: denylist,
		Checks: map[string]handler.Check{
			"mongodb": directory.Ping,
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Logger: logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	dispatcher.Wait()
	log.Info().Msg("stopped")
}

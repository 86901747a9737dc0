package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/fitcoach/payment-service/internal/config"
	"github.com/fjod/fitcoach/payment-service/internal/gateway"
	"github.com/fjod/fitcoach/payment-service/internal/provider"
	"github.com/fjod/fitcoach/payment-service/internal/publisher"
	"github.com/fjod/fitcoach/payment-service/internal/repository"
	"github.com/fjod/fitcoach/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("payment-service", "info").Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New("payment-service", cfg.LogLevel)

	creds := cfg.Credentials()
	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	handler := gateway.NewHandler(provider.NewStripe(cfg.StripeSecretKey, log), repo, gateway.Options{
		DefaultOrigin:    cfg.SiteURL,
		AllowedCountries: cfg.Countries(),
	})

	var webhooks *gateway.WebhookHandler
	if cfg.StripeWebhookSecret != "" {
		webhooks = gateway.NewWebhookHandler(cfg.StripeWebhookSecret, repo)
	} else {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET not set, webhook endpoint disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		outbox := publisher.NewOutboxPoller(repo, log, brokers...)
		defer outbox.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			outbox.Run(ctx)
		}()
		log.Info().Strs("brokers", brokers).Msg("outbox poller started")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      gateway.NewRouter(handler, webhooks, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("payment service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down payment service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("outbox poller stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn().Msg("outbox poller shutdown timed out")
	}

	log.Info().Msg("payment service stopped")
}

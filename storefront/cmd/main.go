package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/fitcoach/pkg/circuitbreaker"
	"github.com/fjod/fitcoach/pkg/logger"
	"github.com/fjod/fitcoach/storefront/internal/cache"
	"github.com/fjod/fitcoach/storefront/internal/catalog"
	"github.com/fjod/fitcoach/storefront/internal/checkout"
	"github.com/fjod/fitcoach/storefront/internal/config"
	"github.com/fjod/fitcoach/storefront/internal/gateway"
	h "github.com/fjod/fitcoach/storefront/internal/http"
	"github.com/fjod/fitcoach/storefront/internal/poller"
	"github.com/fjod/fitcoach/storefront/internal/stripeconfirm"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("storefront", "info").Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New("storefront", cfg.LogLevel)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, carts will not survive restarts")
	}
	pingCancel()
	mirror := cache.NewRedisMirror(rdb, cfg.CartTTL)

	breaker := circuitbreaker.DefaultConfig()
	breaker.ConsecutiveFailures = cfg.BreakerFailures
	breaker.Timeout = cfg.BreakerTimeout
	gw := gateway.NewClient(cfg.PaymentServiceURL, cfg.PaymentServiceTimeout, breaker, log)

	sessions := h.NewSessions(gw, mirror, func(r checkout.Result) {
		log.Info().Str("cart_id", r.CartID).Str("intent_id", r.IntentID).Msg("checkout succeeded")
	}, log)

	var prices h.Prices
	if cfg.CatalogServiceURL != "" {
		prices = catalog.NewClient(cfg.CatalogServiceURL, cfg.CatalogServiceTimeout, breaker, log)
	} else {
		log.Warn().Msg("CATALOG_SERVICE_URL is empty, cart prices are taken from the client")
	}

	elements := stripeconfirm.NewFactory(stripeconfirm.NewConfirmer(cfg.StripeSecretKey), log)

	handler := h.NewRouter(
		h.NewCartHandler(sessions, prices),
		h.NewCheckoutHandler(sessions, elements, cfg.SiteURL, cfg.PaymentServiceTimeout),
		log,
		cfg.RequestTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sessions.Run(ctx, cfg.SessionSweepInterval, cfg.SessionIdleTTL)

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		p := poller.NewPoller(mirror, sessions.Drop, log, brokers...)
		defer p.Close()
		go p.Run(ctx)
		log.Info().Strs("brokers", brokers).Msg("checkout-completed consumer started")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited")
}

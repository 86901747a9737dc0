package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/fitcoach/catalog-service/internal/config"
	h "github.com/fjod/fitcoach/catalog-service/internal/http"
	"github.com/fjod/fitcoach/catalog-service/internal/repository"
	"github.com/fjod/fitcoach/catalog-service/internal/service"
	"github.com/fjod/fitcoach/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("catalog-service", "info").Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New("catalog-service", cfg.LogLevel)

	backend, err := openBackend(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("failed to open catalog backend")
	}
	defer backend.Close()

	catalog := service.NewCatalogService(backend, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(h.NewCatalogHandler(catalog), log, cfg.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("backend", cfg.Backend).Msg("catalog service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down catalog service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("catalog service stopped")
}

func openBackend(cfg *config.Config, log zerolog.Logger) (repository.Backend, error) {
	if cfg.Backend == config.BackendMongo {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b := repository.NewMongoBackend(db)
		if err := b.CreateIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to create catalog indexes")
		}
		return b, nil
	}

	b, err := repository.NewSQLBackend(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := b.RunMigrations(cfg.MigrationsPath); err != nil {
		_ = b.Close()
		return nil, err
	}
	log.Info().Msg("catalog migrations completed")
	return b, nil
}

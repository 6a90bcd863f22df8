package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinerate/db"
	"github.com/Clark-Hu/cinerate/internal/catalog"
	"github.com/Clark-Hu/cinerate/internal/config"
	httpserver "github.com/Clark-Hu/cinerate/internal/http"
	"github.com/Clark-Hu/cinerate/internal/identity"
	"github.com/Clark-Hu/cinerate/internal/logging"
	"github.com/Clark-Hu/cinerate/internal/omdb"
	"github.com/Clark-Hu/cinerate/internal/repository"
	"github.com/Clark-Hu/cinerate/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(logging.Config{})
		boot.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn().Err(err).Msg("sentry disabled")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.DBAutoMigrate {
		n, err := db.Up(dbCtx, st.Pool())
		if err != nil {
			return err
		}
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	repo := repository.New(st)

	idp, err := identity.NewProvider(repo.Users, identity.Options{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.JWTAccessTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		return err
	}

	omdbClient, err := omdb.NewHTTPClient(cfg.OMDbURL, cfg.OMDbAPIKey, cfg.OMDbTimeout(), logger)
	if err != nil {
		return err
	}
	if cfg.OMDbAPIKey == config.PlaceholderOMDbKey {
		logger.Warn().Msg("OMDB_API_KEY not set; IMDb search will be rejected upstream")
	}

	server := httpserver.New(cfg, httpserver.Deps{
		Health:   st,
		Movies:   catalog.NewMovieService(repo.Movies, repo.Ratings, logger),
		Ratings:  catalog.NewRatingService(repo.Movies, repo.Ratings, logger),
		Search:   omdb.NewGateway(omdbClient, logger),
		Identity: idp,
	}, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var runErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	stats := st.Stats()
	logger.Info().
		Int32("acquired_conns", stats.AcquiredConns()).
		Int32("total_conns", stats.TotalConns()).
		Int64("acquire_count", stats.AcquireCount()).
		Msg("server stopped")
	return runErr
}

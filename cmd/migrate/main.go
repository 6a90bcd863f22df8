// Command migrate applies or rolls back the embedded database migrations.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/Clark-Hu/cinerate/db"
	"github.com/Clark-Hu/cinerate/internal/config"
	"github.com/Clark-Hu/cinerate/internal/logging"
	"github.com/Clark-Hu/cinerate/internal/store"
)

func main() {
	var (
		direction = flag.String("direction", "up", "up or down")
		steps     = flag.Int("steps", 0, "maximum migrations to run; 0 means all (down defaults to 1)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(logging.Config{})
		boot.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	var dir migrate.MigrationDirection
	limit := *steps
	switch *direction {
	case "up":
		dir = migrate.Up
	case "down":
		dir = migrate.Down
		if limit == 0 {
			limit = 1
		}
	default:
		logger.Fatal().Str("direction", *direction).Msg("direction must be up or down")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	st, err := store.New(ctx, cfg.DBURL, store.Options{
		MaxConns:    2,
		ConnTimeout: time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	n, err := db.Migrate(ctx, st.Pool(), dir, limit)
	if err != nil {
		logger.Error().Err(err).Int("applied", n).Msg("migration failed")
		st.Close()
		os.Exit(1)
	}
	logger.Info().Str("direction", *direction).Int("applied", n).Msg("migrations complete")
}

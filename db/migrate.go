// Package db embeds the SQL migrations and applies them with sql-migrate.
package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Source returns the embedded migration set.
func Source() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations",
	}
}

// Migrate applies (dir == migrate.Up) or rolls back migrations over the pool and returns how many
// were run. max limits the count; 0 means all.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dir migrate.MigrationDirection, max int) (int, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping for migrations: %w", err)
	}
	n, err := migrate.ExecMaxContext(ctx, sqlDB, "postgres", Source(), dir, max)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}
	return n, nil
}

// Up applies every pending migration.
func Up(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	return Migrate(ctx, pool, migrate.Up, 0)
}

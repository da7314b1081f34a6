package repository

import (
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"saga-server/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ApplyMigrations применяет встроенные миграции схемы.
func ApplyMigrations(pool *pgxpool.Pool, logger *zap.Logger) error {
	m := migration.NewMigrator(migration.Config{
		MigrationsPath: "migrations",
		MigrationsFS:   migrationsFS,
	}, pool, logger)
	return m.Up()
}

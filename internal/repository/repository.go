// Package repository persists player story progress. The canonical store is
// Postgres (one JSONB row per player); a Redis decorator caches hot
// snapshots in front of it.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"saga-server/internal/models"
)

// DBTX абстрагирует pgxpool.Pool и pgx.Tx, чтобы репозиторий работал и в транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// ProgressRepository stores and retrieves per-player progress snapshots.
type ProgressRepository interface {
	// Load returns the player's snapshot, or models.ErrProgressNotFound
	// when the player has never been saved.
	Load(ctx context.Context, playerID uuid.UUID) (*models.StoryProgress, error)

	// Save upserts the snapshot.
	Save(ctx context.Context, p *models.StoryProgress) error
}

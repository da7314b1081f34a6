package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"saga-server/internal/models"
)

// Compile-time check
var _ ProgressRepository = (*pgProgressRepository)(nil)

type pgProgressRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgProgressRepository(db DBTX, logger *zap.Logger) ProgressRepository {
	return &pgProgressRepository{
		db:     db,
		logger: logger.Named("PgProgressRepo"),
	}
}

func (r *pgProgressRepository) Load(ctx context.Context, playerID uuid.UUID) (*models.StoryProgress, error) {
	query := `
        SELECT progress, updated_at
        FROM player_progress
        WHERE player_id = $1
    `
	logFields := []zap.Field{zap.String("playerID", playerID.String())}
	r.logger.Debug("Loading player progress", logFields...)

	var raw []byte
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, query, playerID).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Player progress not found", logFields...)
			return nil, models.ErrProgressNotFound
		}
		r.logger.Error("Failed to load player progress", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка загрузки прогресса игрока: %w", err)
	}

	p := &models.StoryProgress{}
	if err := json.Unmarshal(raw, p); err != nil {
		r.logger.Error("Failed to decode player progress", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка декодирования прогресса игрока: %w", err)
	}
	p.PlayerID = playerID
	p.UpdatedAt = updatedAt
	return p, nil
}

func (r *pgProgressRepository) Save(ctx context.Context, p *models.StoryProgress) error {
	query := `
        INSERT INTO player_progress (player_id, progress, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (player_id) DO UPDATE
        SET progress = EXCLUDED.progress, updated_at = EXCLUDED.updated_at
    `
	logFields := []zap.Field{
		zap.String("playerID", p.PlayerID.String()),
		zap.String("chapterID", p.CurrentChapterID),
	}

	raw, err := json.Marshal(p)
	if err != nil {
		r.logger.Error("Failed to encode player progress", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка кодирования прогресса игрока: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.Exec(ctx, query, p.PlayerID, raw, now)
	if err != nil {
		r.logger.Error("Failed to save player progress", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка сохранения прогресса игрока: %w", err)
	}
	p.UpdatedAt = now
	r.logger.Debug("Player progress saved", logFields...)
	return nil
}

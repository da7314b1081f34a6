package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"saga-server/internal/models"
)

// Compile-time check
var _ ProgressRepository = (*memoryProgressRepository)(nil)

// memoryProgressRepository keeps snapshots in a map. Used in tests and in
// local runs without Postgres.
type memoryProgressRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*models.StoryProgress
}

func NewMemoryProgressRepository() ProgressRepository {
	return &memoryProgressRepository{data: make(map[uuid.UUID]*models.StoryProgress)}
}

func (r *memoryProgressRepository) Load(_ context.Context, playerID uuid.UUID) (*models.StoryProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[playerID]
	if !ok {
		return nil, models.ErrProgressNotFound
	}
	return p.Clone(), nil
}

func (r *memoryProgressRepository) Save(_ context.Context, p *models.StoryProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.PlayerID] = p.Clone()
	return nil
}
